// Package reporting aggregates call and booking activity for the dashboard.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restaurant-ops/internal/bookings"
	"restaurant-ops/internal/calllog"
	"restaurant-ops/pkg/logger"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// DefaultCacheTTL is how long a summary is served from cache.
const DefaultCacheTTL = 30 * time.Second

// Repository abstracts data access for reporting.
type Repository interface {
	ListCallRecords(ctx context.Context, from, to time.Time) ([]calllog.Record, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]bookings.Booking, error)
}

type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

func NewService(repo Repository) *Service { return &Service{repo: repo, ttl: DefaultCacheTTL} }

// WithCache enables caching of summaries. A nil cache disables it.
func (s *Service) WithCache(c Cache, ttl time.Duration) *Service {
	s.cache = c
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if !validRange(req.Range) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	key := cacheKey("calls", req.Range)
	var out CallsSummary
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	rows, err := s.repo.ListCallRecords(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out = CallsSummary{Range: req.Range, EndedReasons: map[string]int{}}
	calls := map[string]calllog.Status{}
	for _, r := range rows {
		switch r.Status {
		case calllog.StatusCallStarted:
			if _, seen := calls[r.CallID]; !seen && r.CallID != "" {
				calls[r.CallID] = r.Status
			}
		case calllog.StatusCallEnded:
			// Records without a call id cannot be told apart and are not calls.
			if r.CallID == "" {
				continue
			}
			calls[r.CallID] = r.Status
			if r.Duration != nil {
				out.TotalDurationSeconds += *r.Duration
			}
			if r.EndedReason != "" {
				out.EndedReasons[r.EndedReason]++
			}
		case calllog.StatusMessage:
			out.Messages++
		case calllog.StatusTranscript:
			out.Transcripts++
		}
	}
	for _, st := range calls {
		out.TotalCalls++
		if st == calllog.StatusCallEnded {
			out.EndedCalls++
		} else {
			out.InProgressCalls++
		}
	}
	if out.EndedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / float64(out.EndedCalls)
	}

	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) ConversionMetrics(ctx context.Context, req ConversionMetricsRequest) (ConversionMetrics, error) {
	if !validRange(req.Range) {
		return ConversionMetrics{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ConversionMetrics{}, errors.New("reporting: repository not configured")
	}

	key := cacheKey("conversion", req.Range)
	var out ConversionMetrics
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	var (
		rows []calllog.Record
		bs   []bookings.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = s.repo.ListCallRecords(gctx, req.Range.From, req.Range.To)
		return err
	})
	g.Go(func() (err error) {
		bs, err = s.repo.ListBookings(gctx, req.Range.From, req.Range.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return ConversionMetrics{}, err
	}

	out = ConversionMetrics{Range: req.Range}
	ended := map[string]bool{}
	for _, r := range rows {
		if r.Status == calllog.StatusCallEnded && r.CallID != "" {
			ended[r.CallID] = true
		}
	}
	out.CallsEnded = len(ended)
	booked := map[string]bool{}
	for _, b := range bs {
		if b.CallID != "" && !booked[b.CallID] && b.Status != bookings.StatusCancelled {
			booked[b.CallID] = true
			out.BookingsFromCalls++
		}
	}
	if out.CallsEnded > 0 {
		out.ConversionRate = float64(out.BookingsFromCalls) / float64(out.CallsEnded)
	}

	s.store(ctx, key, out)
	return out, nil
}

func cacheKey(kind string, r TimeRange) string {
	return fmt.Sprintf("stats:%s:%d:%d", kind, r.From.Unix(), r.To.Unix())
}

func (s *Service) cached(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.From(ctx).Warn("stats cache read failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		logger.From(ctx).Warn("stats cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = s.cache.Set(ctx, key, b, s.ttl)
	}
	if err != nil {
		logger.From(ctx).Warn("stats cache write failed", "key", key, "err", err)
	}
}
