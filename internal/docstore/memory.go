package docstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store for local runs and tests.
type Memory struct {
	mu    sync.Mutex
	clock func() time.Time
	seq   int64
	cols  map[string]map[string]*memDoc
}

type memDoc struct {
	data map[string]any
	seq  int64
}

func NewMemory() *Memory {
	return &Memory{clock: time.Now, cols: map[string]map[string]*memDoc{}}
}

// WithClock sets the clock used for ServerTimestamp values.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
	return m
}

func (m *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, data)
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.cols[collection][id]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: id, Data: maps.Clone(d.data)}, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.cols[collection][id]
	if !ok {
		return ErrNotFound
	}
	now := m.clock().UTC()
	for k, v := range fields {
		d.data[k] = m.resolve(v, now)
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cols[collection], id)
	return nil
}

func (m *Memory) FindOne(ctx context.Context, collection string, filters ...Filter) (Doc, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.sorted(collection, filters, false)
	if len(docs) == 0 {
		return Doc{}, false, nil
	}
	return docs[0], true, nil
}

func (m *Memory) List(ctx context.Context, collection string, q Query) ([]Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.sorted(collection, q.Filters, true)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// put must be called with mu held.
func (m *Memory) put(collection, id string, data map[string]any) {
	col, ok := m.cols[collection]
	if !ok {
		col = map[string]*memDoc{}
		m.cols[collection] = col
	}
	now := m.clock().UTC()
	stored := make(map[string]any, len(data))
	for k, v := range data {
		stored[k] = m.resolve(v, now)
	}
	m.seq++
	col[id] = &memDoc{data: stored, seq: m.seq}
}

func (m *Memory) resolve(v any, now time.Time) any {
	if IsServerTimestamp(v) {
		return now
	}
	return v
}

func (m *Memory) sorted(collection string, filters []Filter, newestFirst bool) []Doc {
	type entry struct {
		id string
		d  *memDoc
	}
	var entries []entry
	for id, d := range m.cols[collection] {
		if matches(d.data, filters) {
			entries = append(entries, entry{id: id, d: d})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if newestFirst {
			return entries[i].d.seq > entries[j].d.seq
		}
		return entries[i].d.seq < entries[j].d.seq
	})
	out := make([]Doc, 0, len(entries))
	for _, e := range entries {
		out = append(out, Doc{ID: e.id, Data: maps.Clone(e.d.data)})
	}
	return out
}
