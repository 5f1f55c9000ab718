// Package knowledge manages the knowledge-base collection.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-ops/internal/docstore"
	"restaurant-ops/internal/locale"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidEntry = errors.New("knowledge: invalid entry")
	ErrNotFound     = errors.New("knowledge: not found")
)

const maxListLimit = 500

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service { return &Service{store: store} }

func (s *Service) Create(ctx context.Context, e Entry) (Entry, error) {
	e.ID = ""
	data, err := encode(e)
	if err != nil {
		return Entry{}, err
	}
	data[docstore.CreatedAtField] = docstore.ServerTimestamp
	id, err := s.store.Add(ctx, Collection, data)
	if err != nil {
		return Entry{}, fmt.Errorf("knowledge: insert: %w", err)
	}
	return s.Get(ctx, id)
}

// Update replaces the editable fields of an existing entry.
func (s *Service) Update(ctx context.Context, id string, e Entry) (Entry, error) {
	data, err := encode(e)
	if err != nil {
		return Entry{}, err
	}
	// Cleared optional fields are written empty so they overwrite the stored value.
	for _, k := range []string{"category", "locale"} {
		if _, ok := data[k]; !ok {
			data[k] = ""
		}
	}
	if _, ok := data["tags"]; !ok {
		data["tags"] = []any{}
	}
	data["updatedAt"] = docstore.ServerTimestamp
	if err := s.store.Update(ctx, Collection, id, data); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("knowledge: update %s: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Upsert writes e under its own id, creating it when missing. It reports whether it was created.
func (s *Service) Upsert(ctx context.Context, e Entry) (bool, error) {
	if e.ID == "" {
		_, err := s.Create(ctx, e)
		return err == nil, err
	}
	_, err := s.Update(ctx, e.ID, e)
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	data, err := encode(e)
	if err != nil {
		return false, err
	}
	data[docstore.CreatedAtField] = docstore.ServerTimestamp
	if err := s.store.Set(ctx, Collection, e.ID, data); err != nil {
		return false, fmt.Errorf("knowledge: insert %s: %w", e.ID, err)
	}
	return true, nil
}

func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	d, err := s.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return decode(d)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, Collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.store.Delete(ctx, Collection, id)
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	q := docstore.Query{Limit: f.Limit}
	if q.Limit <= 0 || q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if f.Category != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "category", Value: f.Category})
	}
	if f.Locale != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "locale", Value: f.Locale})
	}
	docs, err := s.store.List(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list: %w", err)
	}
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func encode(e Entry) (map[string]any, error) {
	e.Title = norm.NFC.String(strings.TrimSpace(e.Title))
	e.Content = norm.NFC.String(e.Content)
	if e.Title == "" || strings.TrimSpace(e.Content) == "" {
		return nil, ErrInvalidEntry
	}
	if e.Locale != "" {
		if _, ok := locale.Parse(e.Locale); !ok {
			return nil, fmt.Errorf("%w: locale %q", ErrInvalidEntry, e.Locale)
		}
	}
	e.CreatedAt, e.UpdatedAt = nil, nil
	data, err := docstore.Encode(e)
	if err != nil {
		return nil, fmt.Errorf("knowledge: encode: %w", err)
	}
	delete(data, "id")
	return data, nil
}

func decode(d docstore.Doc) (Entry, error) {
	var e Entry
	if err := docstore.Decode(d, &e); err != nil {
		return Entry{}, fmt.Errorf("knowledge: decode %s: %w", d.ID, err)
	}
	e.ID = d.ID
	return e, nil
}
