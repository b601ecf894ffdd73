package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and DATABASE_URL=memory
// runs. Documents round-trip through JSON on write so reads see the same value
// shapes (float64 numbers, RFC3339 timestamp strings) as the JSONB backend.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	sequences   map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Document),
		sequences:   make(map[string]int64),
	}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memCollection{store: s, name: name}
}

func (s *MemoryStore) NextSeq(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[name]++
	return s.sequences[name], nil
}

func (s *MemoryStore) EnsureSeq(ctx context.Context, name string, min int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sequences[name] < min {
		s.sequences[name] = min
	}
	return nil
}

func (s *MemoryStore) Close() {}

// --- Collection ---

type memCollection struct {
	store *MemoryStore
	name  string
}

func (c *memCollection) Add(ctx context.Context, data map[string]any) (string, error) {
	normalized, err := normalize(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.collections[c.name] = append(c.store.collections[c.name], Document{ID: id, Data: normalized})
	return id, nil
}

func (c *memCollection) Get(ctx context.Context, id string) (Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	for _, doc := range c.store.collections[c.name] {
		if doc.ID == id {
			return copyDoc(doc), nil
		}
	}
	return Document{}, ErrNotFound
}

func (c *memCollection) Set(ctx context.Context, id string, data map[string]any, merge bool) error {
	normalized, err := normalize(data)
	if err != nil {
		return err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	docs := c.store.collections[c.name]
	for i, doc := range docs {
		if doc.ID != id {
			continue
		}
		if merge {
			for k, v := range normalized {
				doc.Data[k] = v
			}
			docs[i] = doc
			return nil
		}
		docs[i] = Document{ID: id, Data: normalized}
		return nil
	}
	if merge {
		return ErrNotFound
	}
	c.store.collections[c.name] = append(docs, Document{ID: id, Data: normalized})
	return nil
}

func (c *memCollection) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	docs := c.store.collections[c.name]
	for i, doc := range docs {
		if doc.ID == id {
			c.store.collections[c.name] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (c *memCollection) GetAll(ctx context.Context) ([]Document, error) {
	return c.match(nil)
}

func (c *memCollection) Count(ctx context.Context) (int64, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return int64(len(c.store.collections[c.name])), nil
}

func (c *memCollection) Where(field, op string, value any) Query {
	return &memQuery{coll: c, conds: []condition{{field: field, op: op, value: value}}}
}

// match returns copies of all documents satisfying every condition, in
// insertion order.
func (c *memCollection) match(conds []condition) ([]Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []Document
	for _, doc := range c.store.collections[c.name] {
		ok, err := matches(doc, conds)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyDoc(doc))
		}
	}
	return out, nil
}

// --- Query ---

type memQuery struct {
	coll  *memCollection
	conds []condition
}

func (q *memQuery) Where(field, op string, value any) Query {
	next := &memQuery{coll: q.coll, conds: make([]condition, 0, len(q.conds)+1)}
	next.conds = append(next.conds, q.conds...)
	next.conds = append(next.conds, condition{field: field, op: op, value: value})
	return next
}

func (q *memQuery) GetAll(ctx context.Context) ([]Document, error) {
	return q.coll.match(q.conds)
}

// --- Matching ---

func matches(doc Document, conds []condition) (bool, error) {
	for _, cond := range conds {
		raw, present := doc.Data[cond.field]
		if !present {
			return false, nil
		}
		ok, err := evaluate(raw, cond)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func evaluate(raw any, cond condition) (bool, error) {
	switch cond.op {
	case OpIn:
		values, err := inValues(cond.value)
		if err != nil {
			return false, err
		}
		s := fmt.Sprint(raw)
		for _, v := range values {
			if s == v {
				return true, nil
			}
		}
		return false, nil
	case OpEqual, OpGTE, OpLTE:
		cmp, err := compare(raw, cond.value)
		if err != nil {
			return false, err
		}
		switch cond.op {
		case OpEqual:
			return cmp == 0, nil
		case OpGTE:
			return cmp >= 0, nil
		default:
			return cmp <= 0, nil
		}
	default:
		return false, fmt.Errorf("unsupported operator %q", cond.op)
	}
}

// compare orders a stored value against a predicate value, coercing by the
// predicate's Go type the same way the JSONB backend casts.
func compare(raw, want any) (int, error) {
	switch w := want.(type) {
	case time.Time:
		t, ok := asTime(raw)
		if !ok {
			return 0, fmt.Errorf("value %v is not a timestamp", raw)
		}
		switch {
		case t.Before(w):
			return -1, nil
		case t.After(w):
			return 1, nil
		default:
			return 0, nil
		}
	case int, int32, int64, float32, float64:
		f, ok := asFloat(raw)
		if !ok {
			return 0, fmt.Errorf("value %v is not numeric", raw)
		}
		wf, _ := asFloat(w)
		switch {
		case f < wf:
			return -1, nil
		case f > wf:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		a, b := fmt.Sprint(raw), fmt.Sprint(want)
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// normalize resolves timestamp sentinels and round-trips through JSON so the
// stored shapes match what the Postgres backend returns.
func normalize(data map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(resolveTimestamps(data, time.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}

func copyDoc(doc Document) Document {
	data := make(map[string]any, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	return Document{ID: doc.ID, Data: data}
}
