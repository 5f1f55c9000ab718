// Package bookings stores table reservations. Bookings are written by automation workflows and
// read by the dashboard.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-ops/internal/docstore"
)

var (
	ErrInvalidBooking = errors.New("bookings: invalid booking")
	ErrNotFound       = errors.New("bookings: not found")
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service { return &Service{store: store} }

// Upsert creates b, or merges it into the existing booking with the same id.
// It reports whether a new booking was created. New bookings without a status are pending; an
// update without a status keeps the stored one.
func (s *Service) Upsert(ctx context.Context, b Booking) (Booking, bool, error) {
	keepStatus := b.Status == ""
	if keepStatus {
		b.Status = StatusPending
	}
	if err := validate(b); err != nil {
		return Booking{}, false, err
	}
	b.CreatedAt, b.UpdatedAt = nil, nil

	data, err := docstore.Encode(b)
	if err != nil {
		return Booking{}, false, fmt.Errorf("bookings: encode: %w", err)
	}
	delete(data, "id")

	if b.ID == "" {
		data[docstore.CreatedAtField] = docstore.ServerTimestamp
		id, err := s.store.Add(ctx, Collection, data)
		if err != nil {
			return Booking{}, false, fmt.Errorf("bookings: insert: %w", err)
		}
		b.ID = id
		return b, true, nil
	}

	patch := make(map[string]any, len(data)+1)
	for k, v := range data {
		patch[k] = v
	}
	if keepStatus {
		delete(patch, "status")
	}
	patch["updatedAt"] = docstore.ServerTimestamp
	err = s.store.Update(ctx, Collection, b.ID, patch)
	if err == nil {
		if keepStatus {
			stored, err := s.Get(ctx, b.ID)
			if err != nil {
				return Booking{}, false, err
			}
			return stored, false, nil
		}
		return b, false, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Booking{}, false, fmt.Errorf("bookings: update %s: %w", b.ID, err)
	}

	data[docstore.CreatedAtField] = docstore.ServerTimestamp
	if err := s.store.Set(ctx, Collection, b.ID, data); err != nil {
		return Booking{}, false, fmt.Errorf("bookings: insert %s: %w", b.ID, err)
	}
	return b, true, nil
}

// SetStatus changes the status of an existing booking.
func (s *Service) SetStatus(ctx context.Context, id string, st Status) error {
	if id == "" || !st.Valid() {
		return ErrInvalidBooking
	}
	err := s.store.Update(ctx, Collection, id, map[string]any{
		"status":    string(st),
		"updatedAt": docstore.ServerTimestamp,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	d, err := s.store.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, err
	}
	return decode(d)
}

// List returns bookings newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	q := docstore.Query{Limit: f.Limit}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if f.Status != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "status", Value: string(f.Status)})
	}
	if f.Date != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "date", Value: f.Date})
	}
	docs, err := s.store.List(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	out := make([]Booking, 0, len(docs))
	for _, d := range docs {
		b, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func decode(d docstore.Doc) (Booking, error) {
	var b Booking
	if err := docstore.Decode(d, &b); err != nil {
		return Booking{}, fmt.Errorf("bookings: decode %s: %w", d.ID, err)
	}
	b.ID = d.ID
	return b, nil
}

func validate(b Booking) error {
	if strings.TrimSpace(b.GuestName) == "" || b.PartySize <= 0 || !b.Status.Valid() {
		return ErrInvalidBooking
	}
	if _, err := time.Parse("2006-01-02", b.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidBooking, b.Date)
	}
	if _, err := time.Parse("15:04", b.Time); err != nil {
		return fmt.Errorf("%w: time %q", ErrInvalidBooking, b.Time)
	}
	return nil
}
