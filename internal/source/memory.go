package source

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// MemorySource serves rows held in memory, in key order. It stands in for a
// table in tests and dry runs.
type MemorySource struct {
	mu     sync.Mutex
	rows   map[string][]types.Cell
	keys   []string
	next   int
	window int
}

// NewMemorySource creates a source over rows keyed by row key.
func NewMemorySource(rows map[string][]types.Cell, window int) *MemorySource {
	keys := make([]string, 0, len(rows))
	copied := make(map[string][]types.Cell, len(rows))
	for k, cells := range rows {
		keys = append(keys, k)
		c := append([]types.Cell(nil), cells...)
		sortCells(c)
		copied[k] = c
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare([]byte(keys[i]), []byte(keys[j])) < 0
	})
	return &MemorySource{rows: copied, keys: keys, window: window}
}

// Next returns the next row.
func (m *MemorySource) Next(ctx context.Context) (*merge.RowHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.keys) {
		return nil, io.EOF
	}
	key := m.keys[m.next]
	m.next++
	return m.build(key, m.window)
}

// Reread rebuilds one row with a different window.
func (m *MemorySource) Reread(ctx context.Context, key []byte, window int) (*merge.RowHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.build(string(key), window)
}

func (m *MemorySource) build(key string, window int) (*merge.RowHistory, error) {
	w := newWindowed([]byte(key), window)
	for _, c := range m.rows[key] {
		if err := w.add(c); err != nil {
			return nil, err
		}
	}
	return w.history, nil
}

// Close is a no-op.
func (m *MemorySource) Close() error { return nil }
