package n8n

import (
	"context"
	"errors"
	"sync"
	"time"

	"restaurant-ops/pkg/utils"

	"github.com/redis/go-redis/v9"
)

var ErrWorkflowBusy = errors.New("n8n: workflow already running")

// Guard admits at most one run per workflow at a time.
type Guard interface {
	// Acquire returns ok=false when a run is already in flight.
	Acquire(ctx context.Context, workflow string) (release func(), ok bool, err error)
}

// RedisGuard shares the cap across replicas through the concurrency-cap Lua script.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, workflow string) (func(), bool, error) {
	key := "cap:n8n:" + workflow
	ok, err := utils.AcquireConcurrencyCap(ctx, g.rdb, key, 1, g.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = utils.ReleaseConcurrencyCap(rctx, g.rdb, key)
	}, true, nil
}

// LocalGuard is the single-process Guard.
type LocalGuard struct {
	mu      sync.Mutex
	running map[string]bool
}

func NewLocalGuard() *LocalGuard { return &LocalGuard{running: map[string]bool{}} }

func (g *LocalGuard) Acquire(_ context.Context, workflow string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running[workflow] {
		return nil, false, nil
	}
	g.running[workflow] = true
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.running, workflow)
	}, true, nil
}

// Runner triggers workflows under a Guard.
type Runner struct {
	Client *Client
	Guard  Guard
}

func (r Runner) Run(ctx context.Context, workflow string, payload any) (Result, error) {
	if !r.Client.Has(workflow) {
		return Result{}, ErrUnknownWorkflow
	}
	if r.Guard != nil {
		release, ok, err := r.Guard.Acquire(ctx, workflow)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, ErrWorkflowBusy
		}
		defer release()
	}
	return r.Client.Trigger(ctx, workflow, payload)
}
