// internal/store/memory.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store keeping documents as raw JSON. It backs tests
// and single-node runs; all operations are serialized by one mutex, which
// makes Update the atomic compare-and-update the ledger relies on.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]json.RawMessage)}
}

func (m *Memory) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, raw := range m.collections[collection] {
		ok, err := matches(raw, filter)
		if err != nil {
			return err
		}
		if ok {
			return json.Unmarshal(raw, out)
		}
	}
	return ErrNoDocument
}

func (m *Memory) Find(ctx context.Context, collection string, filter Filter, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for _, raw := range m.collections[collection] {
		ok, err := matches(raw, filter)
		if err != nil {
			return err
		}
		if ok {
			if n > 0 {
				buf.WriteByte(',')
			}
			buf.Write(raw)
			n++
		}
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}

func (m *Memory) Insert(ctx context.Context, collection string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], raw)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection string, filter Filter, doc any) (bool, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[collection]
	for i, existing := range docs {
		ok, err := matches(existing, filter)
		if err != nil {
			return false, err
		}
		if ok {
			docs[i] = raw
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Upsert(ctx context.Context, collection string, filter Filter, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[collection]
	for i, existing := range docs {
		ok, err := matches(existing, filter)
		if err != nil {
			return err
		}
		if ok {
			docs[i] = raw
			return nil
		}
	}
	m.collections[collection] = append(docs, raw)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection string, filter Filter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[collection]
	kept := docs[:0]
	deleted := false
	for _, existing := range docs {
		ok, err := matches(existing, filter)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = true
			continue
		}
		kept = append(kept, existing)
	}
	m.collections[collection] = kept
	return deleted, nil
}

// matches evaluates a filter against one raw document.
func matches(raw json.RawMessage, filter Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, err
	}
	for _, c := range filter {
		field, present := doc[c.Field]
		if !present {
			return false, nil
		}
		ok, err := compare(field, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func compare(field any, c Clause) (bool, error) {
	switch c.Op {
	case OpEq:
		return equalJSON(field, normalize(c.Value)), nil
	case OpIn:
		values, ok := normalize(c.Value).([]any)
		if !ok {
			return false, fmt.Errorf("in clause on %q requires a slice value", c.Field)
		}
		for _, v := range values {
			if equalJSON(field, v) {
				return true, nil
			}
		}
		return false, nil
	case OpGt, OpGte, OpLt, OpLte:
		a, aok := asNumber(field)
		b, bok := asNumber(normalize(c.Value))
		if !aok || !bok {
			return false, fmt.Errorf("range clause on %q requires numeric values", c.Field)
		}
		switch c.Op {
		case OpGt:
			return a > b, nil
		case OpGte:
			return a >= b, nil
		case OpLt:
			return a < b, nil
		default:
			return a <= b, nil
		}
	default:
		return false, fmt.Errorf("unknown filter op %d", c.Op)
	}
}

// normalize round-trips a Go value through JSON so typed values (int64,
// custom string types, slices of either) compare like decoded documents do.
func normalize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func equalJSON(a, b any) bool {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
		return false
	}
	ra, err1 := json.Marshal(a)
	rb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
