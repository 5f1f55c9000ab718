package calllog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"restaurant-ops/internal/docstore"
)

func newTestService() (*Service, *docstore.Memory) {
	store := docstore.NewMemory().WithClock(func() time.Time { return time.Unix(1700000000, 0) })
	return NewService(store, nil), store
}

func TestAppend_OmitsAbsentOptionalFields(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, err := svc.Append(ctx, Record{CallID: "c1", Status: StatusCallStarted})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	d, err := store.Get(ctx, Collection, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Data["channel"] != ChannelCall {
		t.Fatalf("expected default channel, got %v", d.Data["channel"])
	}
	for _, k := range []string{"phoneNumber", "assistantId", "duration", "endedReason", "transcript", "summary", "analysis", "message", "role", "updatedAt"} {
		if _, ok := d.Data[k]; ok {
			t.Fatalf("expected %s to be absent, doc=%v", k, d.Data)
		}
	}
	if _, ok := d.Data[docstore.CreatedAtField].(time.Time); !ok {
		t.Fatalf("expected server createdAt, got %v", d.Data[docstore.CreatedAtField])
	}
}

func TestAppend_RequiresStatus(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Append(context.Background(), Record{CallID: "c1"}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestMarkCallEnded_PatchesCallStartedRecord(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	startedID, _ := svc.Append(ctx, Record{CallID: "c1", Status: StatusCallStarted, PhoneNumber: "+38591"})
	dur := 42.5
	id, created, err := svc.MarkCallEnded(ctx, "c1", EndedFields{Duration: &dur, EndedReason: "customer-ended-call"})
	if err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	if created || id != startedID {
		t.Fatalf("expected patch of %s, got id=%s created=%v", startedID, id, created)
	}

	d, _ := store.Get(ctx, Collection, startedID)
	if d.Data["status"] != string(StatusCallEnded) {
		t.Fatalf("expected status call_ended, got %v", d.Data["status"])
	}
	if d.Data["phoneNumber"] != "+38591" {
		t.Fatalf("expected untouched phone number, got %v", d.Data["phoneNumber"])
	}
	if d.Data["duration"] != 42.5 || d.Data["endedReason"] != "customer-ended-call" {
		t.Fatalf("expected ended fields, got %v", d.Data)
	}
	if _, ok := d.Data["updatedAt"]; !ok {
		t.Fatalf("expected updatedAt")
	}

	recs, _ := svc.List(ctx, ListFilter{CallID: "c1"})
	if len(recs) != 1 {
		t.Fatalf("expected a single record for c1, got %d", len(recs))
	}
}

func TestMarkCallEnded_InsertsWhenNoPriorRecord(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	id, created, err := svc.MarkCallEnded(ctx, "c9", EndedFields{Summary: "booked a table"})
	if err != nil {
		t.Fatalf("mark ended: %v", err)
	}
	if !created {
		t.Fatalf("expected insert")
	}
	d, _ := store.Get(ctx, Collection, id)
	if d.Data["status"] != string(StatusCallEnded) || d.Data["summary"] != "booked a table" || d.Data["callId"] != "c9" {
		t.Fatalf("unexpected record %v", d.Data)
	}
}

func TestMarkCallEnded_RepeatedDeliveryPatchesSameRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, _, err := svc.MarkCallEnded(ctx, "c2", EndedFields{})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, created, err := svc.MarkCallEnded(ctx, "c2", EndedFields{Transcript: "hello"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if created || second != first {
		t.Fatalf("expected second delivery to patch %s, got %s created=%v", first, second, created)
	}
}

func TestMarkCallEnded_ConcurrentDeliveriesYieldOneRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.MarkCallEnded(ctx, "c3", EndedFields{}); err != nil {
				t.Errorf("mark ended: %v", err)
			}
		}()
	}
	wg.Wait()

	recs, err := svc.List(ctx, ListFilter{CallID: "c3"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errors.New("redis down")
}

func TestMarkCallEnded_ProceedsWhenLockUnavailable(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, failingLocker{})

	if _, created, err := svc.MarkCallEnded(context.Background(), "c4", EndedFields{}); err != nil || !created {
		t.Fatalf("expected unlocked insert, created=%v err=%v", created, err)
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _ = svc.Append(ctx, Record{CallID: "c1", Status: StatusMessage, Message: "first"})
	_, _ = svc.Append(ctx, Record{CallID: "c1", Status: StatusTranscript, Message: "t"})
	_, _ = svc.Append(ctx, Record{CallID: "c1", Status: StatusMessage, Message: "second"})

	recs, err := svc.List(ctx, ListFilter{Status: StatusMessage})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].Message != "second" || recs[1].Message != "first" {
		t.Fatalf("unexpected records %+v", recs)
	}
	if recs[0].ID == "" || recs[0].CreatedAt == nil {
		t.Fatalf("expected id and createdAt populated")
	}
}
