package audit

import (
	"context"
	"fmt"

	"restaurant-ops/internal/docstore"
)

// Collection holds audit events in the document store.
const Collection = "audit"

// DocstoreRepo appends events as documents keyed by event id.
type DocstoreRepo struct {
	store docstore.Store
}

func NewDocstoreRepo(store docstore.Store) *DocstoreRepo { return &DocstoreRepo{store: store} }

func (r *DocstoreRepo) Append(ctx context.Context, e Event) error {
	data, err := docstore.Encode(e)
	if err != nil {
		return fmt.Errorf("audit: encode: %w", err)
	}
	delete(data, "id")
	return r.store.Set(ctx, Collection, e.ID, data)
}

func (r *DocstoreRepo) List(ctx context.Context, f ListFilter) ([]Event, error) {
	q := docstore.Query{Limit: f.Limit}
	if f.Type != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "type", Value: string(f.Type)})
	}
	docs, err := r.store.List(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	out := make([]Event, 0, len(docs))
	for _, d := range docs {
		var e Event
		if err := docstore.Decode(d, &e); err != nil {
			return nil, fmt.Errorf("audit: decode %s: %w", d.ID, err)
		}
		e.ID = d.ID
		out = append(out, e)
	}
	return out, nil
}
