package reporting

import (
	"context"
	"time"

	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
)

// scanLimit bounds how many recent documents a summary reads per collection.
const scanLimit = 500

// StoreRepo reads the live logs and bookings collections.
type StoreRepo struct {
	Logs     *calllog.Service
	Bookings *bookings.Service
}

func (r StoreRepo) ListCallRecords(ctx context.Context, from, to time.Time) ([]calllog.Record, error) {
	recs, err := r.Logs.List(ctx, calllog.ListFilter{Limit: scanLimit})
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, rec := range recs {
		if inRange(rec.CreatedAt, from, to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r StoreRepo) ListBookings(ctx context.Context, from, to time.Time) ([]bookings.Booking, error) {
	bs, err := r.Bookings.List(ctx, bookings.ListFilter{Limit: scanLimit})
	if err != nil {
		return nil, err
	}
	out := bs[:0]
	for _, b := range bs {
		if inRange(b.CreatedAt, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}
