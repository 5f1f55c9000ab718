package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores documents in Cloud Firestore collections of the same name.
type Firestore struct {
	client *firestore.Client
}

// OpenFirestore creates a client for projectID. With an empty credentialsFile the client uses
// application default credentials.
func OpenFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("docstore: firestore project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("docstore: firestore client: %w", err)
	}
	return NewFirestore(c), nil
}

func NewFirestore(c *firestore.Client) *Firestore { return &Firestore{client: c} }

func (f *Firestore) Close() error { return f.client.Close() }

func (f *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, toFirestore(data))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, toFirestore(data))
	return err
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Doc, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Doc{}, ErrNotFound
		}
		return Doc{}, err
	}
	return Doc{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: toFirestoreValue(v)})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (f *Firestore) FindOne(ctx context.Context, collection string, filters ...Filter) (Doc, bool, error) {
	q := f.query(collection, filters).Limit(1)
	it := q.Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if errors.Is(err, iterator.Done) {
		return Doc{}, false, nil
	}
	if err != nil {
		return Doc{}, false, err
	}
	return Doc{ID: snap.Ref.ID, Data: snap.Data()}, true, nil
}

// List orders by createdAt. Combined with filters this needs a composite index in Firestore.
func (f *Firestore) List(ctx context.Context, collection string, q Query) ([]Doc, error) {
	fq := f.query(collection, q.Filters).OrderBy(CreatedAtField, firestore.Desc)
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]Doc, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Doc{ID: s.Ref.ID, Data: s.Data()})
	}
	return out, nil
}

func (f *Firestore) query(collection string, filters []Filter) firestore.Query {
	q := f.client.Collection(collection).Query
	for _, flt := range filters {
		q = q.Where(flt.Field, "==", flt.Value)
	}
	return q
}

func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	if IsServerTimestamp(v) {
		return firestore.ServerTimestamp
	}
	return v
}
