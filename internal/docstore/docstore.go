// Package docstore is a small document-database contract shaped after Firestore: schemaless
// documents in named collections, server-assigned timestamps, equality queries.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("docstore: not found")

// CreatedAtField is the field List orders by. Every collection written through this package sets it.
const CreatedAtField = "createdAt"

// Doc is one stored document.
type Doc struct {
	ID   string
	Data map[string]any
}

// Filter is an equality condition on a top-level string field.
type Filter struct {
	Field string
	Value string
}

// Query selects documents for List. Limit <= 0 means no limit.
type Query struct {
	Filters []Filter
	Limit   int
}

// Store is implemented by the Firestore, Postgres and in-memory backends.
type Store interface {
	// Add inserts a document under a generated id.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Get(ctx context.Context, collection, id string) (Doc, error)
	// Update merges fields into an existing document. Missing documents yield ErrNotFound.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// FindOne returns a document matching all filters. Backends that track insertion order
	// return the earliest match.
	FindOne(ctx context.Context, collection string, filters ...Filter) (Doc, bool, error)
	// List returns matching documents, newest first.
	List(ctx context.Context, collection string, q Query) ([]Doc, error)
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the backend's clock when written as a top-level field value.
var ServerTimestamp any = serverTimestamp{}

func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Encode converts a tagged struct into document fields. Fields tagged omitempty that are empty
// are absent from the result, never null.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode fills v from the document fields.
func Decode(d Doc, v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		s, ok := data[f.Field].(string)
		if !ok || s != f.Value {
			return false
		}
	}
	return true
}
