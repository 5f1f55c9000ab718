package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
)

// Postgres keeps every collection in one JSONB table.
type Postgres struct {
	db *sql.DB
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`,
	`CREATE INDEX IF NOT EXISTS documents_collection_created_idx ON documents (collection, created_at DESC)`,
}

// stampExpr expands a JSON array of field names into an object of now() values.
const stampExpr = `(SELECT coalesce(jsonb_object_agg(k, to_jsonb(now())), '{}'::jsonb) FROM jsonb_array_elements_text(%s::jsonb) AS t(k))`

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Migrate creates the documents table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
	return utils.ExecAll(ctx, p.db, postgresSchema...)
}

func (p *Postgres) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	payload, stamps, err := splitStamps(data)
	if err != nil {
		return "", err
	}
	q := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb || ` + fmt.Sprintf(stampExpr, "$4") + `)`
	if _, err := p.db.ExecContext(ctx, q, collection, id, payload, stamps); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]any) error {
	payload, stamps, err := splitStamps(data)
	if err != nil {
		return err
	}
	q := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb || ` + fmt.Sprintf(stampExpr, "$4") + `)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`
	_, err = p.db.ExecContext(ctx, q, collection, id, payload, stamps)
	return err
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, err
	}
	return decodeRow(id, raw)
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, stamps, err := splitStamps(fields)
	if err != nil {
		return err
	}
	q := `UPDATE documents SET data = data || $3::jsonb || ` + fmt.Sprintf(stampExpr, "$4") + `, updated_at = now() WHERE collection = $1 AND id = $2`
	res, err := p.db.ExecContext(ctx, q, collection, id, payload, stamps)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return err
}

func (p *Postgres) FindOne(ctx context.Context, collection string, filters ...Filter) (Doc, bool, error) {
	where, args := whereClause(collection, filters)
	docs, err := p.query(ctx, `SELECT id, data FROM documents WHERE `+where+` ORDER BY created_at ASC LIMIT 1`, args...)
	if err != nil {
		return Doc{}, false, err
	}
	if len(docs) == 0 {
		return Doc{}, false, nil
	}
	return docs[0], true, nil
}

func (p *Postgres) List(ctx context.Context, collection string, q Query) ([]Doc, error) {
	where, args := whereClause(collection, q.Filters)
	stmt := `SELECT id, data FROM documents WHERE ` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		stmt += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return p.query(ctx, stmt, args...)
}

func (p *Postgres) query(ctx context.Context, stmt string, args ...any) ([]Doc, error) {
	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doc
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		d, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func whereClause(collection string, filters []Filter) (string, []any) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString("collection = $1")
	for _, f := range filters {
		args = append(args, f.Field, f.Value)
		fmt.Fprintf(&b, " AND data->>$%d = $%d", len(args)-1, len(args))
	}
	return b.String(), args
}

// splitStamps separates ServerTimestamp fields from the JSON payload.
func splitStamps(data map[string]any) (string, string, error) {
	payload := make(map[string]any, len(data))
	stamps := []string{}
	for k, v := range data {
		if IsServerTimestamp(v) {
			stamps = append(stamps, k)
			continue
		}
		payload[k] = v
	}
	sort.Strings(stamps)
	pb, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("docstore: encode document: %w", err)
	}
	sb, err := json.Marshal(stamps)
	if err != nil {
		return "", "", err
	}
	return string(pb), string(sb), nil
}

func decodeRow(id string, raw []byte) (Doc, error) {
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Doc{}, fmt.Errorf("docstore: decode %s: %w", id, err)
	}
	return Doc{ID: id, Data: data}, nil
}
