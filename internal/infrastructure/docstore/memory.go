package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Memory keeps collections in process. Used in development and tests.
type Memory struct {
	mu   sync.RWMutex
	cols map[string]map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{cols: make(map[string]map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.cols[collection][id]
	if !ok {
		return nil, ErrNoDocument
	}
	return doc, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "docstore: encode document")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.cols[collection]
	if !ok {
		col = make(map[string]json.RawMessage)
		m.cols[collection] = col
	}
	col[id] = raw
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cols[collection], id)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Document
	for id, raw := range m.cols[collection] {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		if !matchesAll(fields, q.Filters) {
			continue
		}
		out = append(out, Document{ID: id, Data: raw})
	}
	sortDocs(out, q)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchesAll(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case "==":
			if asText(v) != asText(f.Value) {
				return false
			}
		case ">=":
			if compareValues(v, f.Value) < 0 {
				return false
			}
		case "<=":
			if compareValues(v, f.Value) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compareValues compares numerically when both sides parse as numbers,
// textually otherwise (RFC3339 timestamps compare correctly as text).
func compareValues(a, b any) int {
	af, aerr := strconv.ParseFloat(asText(a), 64)
	bf, berr := strconv.ParseFloat(asText(b), 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := asText(a), asText(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func asText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

func sortDocs(docs []Document, q Query) {
	key := func(d Document) string {
		if q.OrderBy == "" {
			return d.ID
		}
		var fields map[string]any
		if err := json.Unmarshal(d.Data, &fields); err != nil {
			return ""
		}
		return asText(fields[q.OrderBy])
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if q.Desc && q.OrderBy != "" {
			return key(docs[i]) > key(docs[j])
		}
		return key(docs[i]) < key(docs[j])
	})
}
