// Package calllog persists voice-call events into the logs collection.
package calllog

import (
	"context"
	"errors"
	"fmt"

	"restaurant-ops/internal/docstore"
	"restaurant-ops/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var ErrInvalidRecord = errors.New("calllog: invalid record")

type Service struct {
	store  docstore.Store
	locker Locker
}

// NewService returns a Service. A nil locker falls back to an in-process keyed mutex.
func NewService(store docstore.Store, locker Locker) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Service{store: store, locker: locker}
}

// Append inserts r as a new record with a store-assigned createdAt.
func (s *Service) Append(ctx context.Context, r Record) (string, error) {
	if r.Status == "" {
		return "", ErrInvalidRecord
	}
	if r.Channel == "" {
		r.Channel = ChannelCall
	}
	r.ID, r.CreatedAt, r.UpdatedAt = "", nil, nil

	data, err := docstore.Encode(r)
	if err != nil {
		return "", fmt.Errorf("calllog: encode: %w", err)
	}
	data[docstore.CreatedAtField] = docstore.ServerTimestamp

	id, err := s.store.Add(ctx, Collection, data)
	if err != nil {
		return "", fmt.Errorf("calllog: insert %s: %w", r.Status, err)
	}
	return id, nil
}

// MarkCallEnded patches the record of callID to call_ended, preferring its call_started record
// and then an earlier call_ended record. Without either, a new call_ended record is inserted.
// Deliveries for the same call id are serialized through the locker; when the lock cannot be
// taken the write proceeds unlocked.
func (s *Service) MarkCallEnded(ctx context.Context, callID string, f EndedFields) (id string, created bool, err error) {
	if callID != "" {
		unlock, lerr := s.locker.Lock(ctx, callID)
		if lerr != nil {
			logger.From(ctx).Warn("call log lock unavailable", "call_id", callID, "err", lerr)
		} else {
			defer unlock()
		}
	}

	existing, found, err := s.findForCall(ctx, callID)
	if err != nil {
		return "", false, err
	}

	if !found {
		id, err := s.Append(ctx, Record{
			CallID:      callID,
			Channel:     ChannelCall,
			Status:      StatusCallEnded,
			PhoneNumber: f.PhoneNumber,
			AssistantID: f.AssistantID,
			Duration:    f.Duration,
			EndedReason: f.EndedReason,
			Transcript:  f.Transcript,
			Summary:     f.Summary,
			Analysis:    f.Analysis,
		})
		return id, true, err
	}

	patch := endedPatch(f)
	if err := s.store.Update(ctx, Collection, existing.ID, patch); err != nil {
		return "", false, fmt.Errorf("calllog: patch %s: %w", existing.ID, err)
	}
	return existing.ID, false, nil
}

func (s *Service) findForCall(ctx context.Context, callID string) (docstore.Doc, bool, error) {
	if callID == "" {
		return docstore.Doc{}, false, nil
	}
	for _, st := range []Status{StatusCallStarted, StatusCallEnded} {
		d, ok, err := s.store.FindOne(ctx, Collection,
			docstore.Filter{Field: "callId", Value: callID},
			docstore.Filter{Field: "status", Value: string(st)},
		)
		if err != nil {
			return docstore.Doc{}, false, fmt.Errorf("calllog: lookup %s: %w", callID, err)
		}
		if ok {
			return d, true, nil
		}
	}
	return docstore.Doc{}, false, nil
}

func endedPatch(f EndedFields) map[string]any {
	patch := map[string]any{
		"status":    string(StatusCallEnded),
		"updatedAt": docstore.ServerTimestamp,
	}
	if f.PhoneNumber != "" {
		patch["phoneNumber"] = f.PhoneNumber
	}
	if f.AssistantID != "" {
		patch["assistantId"] = f.AssistantID
	}
	if f.Duration != nil {
		patch["duration"] = *f.Duration
	}
	if f.EndedReason != "" {
		patch["endedReason"] = f.EndedReason
	}
	if f.Transcript != "" {
		patch["transcript"] = f.Transcript
	}
	if f.Summary != "" {
		patch["summary"] = f.Summary
	}
	if len(f.Analysis) > 0 {
		patch["analysis"] = f.Analysis
	}
	return patch
}

// List returns records newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Record, error) {
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
	if f.CallID != "" {
		q.Filters = append(q.Filters, docstore.Filter{Field: "callId", Value: f.CallID})
	}

	docs, err := s.store.List(ctx, Collection, q)
	if err != nil {
		return nil, fmt.Errorf("calllog: list: %w", err)
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		var r Record
		if err := docstore.Decode(d, &r); err != nil {
			return nil, fmt.Errorf("calllog: decode %s: %w", d.ID, err)
		}
		r.ID = d.ID
		out = append(out, r)
	}
	return out, nil
}
