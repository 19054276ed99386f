package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string]Doc
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string]Doc)}
}

func (m *Memory) col(name string) map[string]Doc {
	c, ok := m.cols[name]
	if !ok {
		c = make(map[string]Doc)
		m.cols[name] = c
	}
	return c
}

func (m *Memory) Get(_ context.Context, collection, id string) (Doc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.cols[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return normalizeDoc(d)
}

func (m *Memory) Create(_ context.Context, collection, id string, data Doc) (string, error) {
	d, err := normalizeDoc(data)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.col(collection)
	if _, exists := c[id]; exists {
		return "", fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	c[id] = d
	return id, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, data Doc) error {
	d, err := normalizeDoc(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.col(collection)[id] = d
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	patch, err := normalizeDoc(fields)
	if err != nil {
		return err
	}
	for path := range patch {
		if !ValidField(path) {
			return fmt.Errorf("%w: %q", ErrInvalidField, path)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.cols[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	for path, v := range patch {
		SetPath(d, path, v)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cols[collection], id)
	return nil
}

func (m *Memory) All(ctx context.Context, collection string) ([]Snapshot, error) {
	return m.Query(ctx, collection, Query{})
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []Snapshot
	for id, d := range m.cols[collection] {
		if matches(d, q.Filters) {
			cp, err := normalizeDoc(d)
			if err != nil {
				m.mu.RUnlock()
				return nil, err
			}
			out = append(out, Snapshot{ID: id, Data: cp})
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy != "" {
			a, _ := GetPath(out[i].Data, q.OrderBy)
			b, _ := GetPath(out[j].Data, q.OrderBy)
			if c, ok := compareValues(a, b); ok && c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(d Doc, filters []Filter) bool {
	for _, f := range filters {
		v, ok := GetPath(d, f.Field)
		if !ok {
			return false
		}
		want := normalizeValue(f.Value)
		switch f.Op {
		case Eq:
			if c, ok := compareValues(v, want); !ok || c != 0 {
				if !reflect.DeepEqual(v, want) {
					return false
				}
			}
		case ArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			found := false
			for _, el := range arr {
				if c, ok := compareValues(el, want); ok && c == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			c, ok := compareValues(v, want)
			if !ok {
				return false
			}
			switch f.Op {
			case Lt:
				if c >= 0 {
					return false
				}
			case Lte:
				if c > 0 {
					return false
				}
			case Gt:
				if c <= 0 {
					return false
				}
			case Gte:
				if c < 0 {
					return false
				}
			}
		}
	}
	return true
}
