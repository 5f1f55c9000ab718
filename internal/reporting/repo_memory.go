package reporting

import (
	"context"
	"sync"
	"time"

	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
)

// MemoryRepo is a simple in-memory reporting repository for tests.
type MemoryRepo struct {
	mu sync.Mutex

	Records  []calllog.Record
	Bookings []bookings.Booking
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCallRecords(ctx context.Context, from, to time.Time) ([]calllog.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calllog.Record, 0)
	for _, rec := range r.Records {
		if inRange(rec.CreatedAt, from, to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListBookings(ctx context.Context, from, to time.Time) ([]bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bookings.Booking, 0)
	for _, b := range r.Bookings {
		if inRange(b.CreatedAt, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// inRange keeps undated rows; the store assigns createdAt on every write.
func inRange(t *time.Time, from, to time.Time) bool {
	if t == nil || t.IsZero() {
		return true
	}
	return !t.Before(from) && t.Before(to)
}
