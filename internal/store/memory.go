// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store with the same filter and batch
// semantics as the Postgres implementation. Used in tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]map[string]interface{}{}}
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters []Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for path, fields := range s.records {
		if CollectionOf(path) != collection {
			continue
		}
		if !matches(fields, filters) {
			continue
		}
		out = append(out, Record{Path: path, Fields: copyFields(fields)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.records[path]
	if !ok {
		return nil, nil
	}
	return &Record{Path: path, Fields: copyFields(fields)}, nil
}

func (s *MemoryStore) BatchWrite(_ context.Context, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		existing, ok := s.records[w.Path]
		if !ok {
			existing = map[string]interface{}{}
			s.records[w.Path] = existing
		}
		for k, v := range w.Fields {
			existing[k] = v
		}
	}
	return nil
}

// matches applies the AND-combined filters. A record missing the filtered
// field never matches, mirroring SQL NULL comparison semantics.
func matches(fields map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		raw, ok := fields[f.Field]
		if !ok || raw == nil {
			return false
		}
		have := FormatValue(raw)
		want := FormatValue(f.Value)
		switch f.Op {
		case OpEq:
			if have != want {
				return false
			}
		case OpLte:
			if have > want {
				return false
			}
		case OpGte:
			if have < want {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
