package calllog

import (
	"context"
	"testing"
	"time"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "c1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(waitCtx, "c1"); err == nil {
		t.Fatalf("expected second lock on same key to wait")
	}

	other, err := l.Lock(ctx, "c2")
	if err != nil {
		t.Fatalf("expected independent key to lock: %v", err)
	}
	other()

	unlock()
	again, err := l.Lock(ctx, "c1")
	if err != nil {
		t.Fatalf("expected lock after release: %v", err)
	}
	again()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.locks) != 0 {
		t.Fatalf("expected lock table drained, got %d entries", len(l.locks))
	}
}
