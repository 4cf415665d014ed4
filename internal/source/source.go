// Package source reads the stored cell history of wide-column rows.
package source

import (
	"context"
	"sort"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// RowSource yields one row history at a time.
type RowSource interface {
	// Next returns the next row, or io.EOF once every row was returned.
	Next(ctx context.Context) (*merge.RowHistory, error)

	// Reread scans a single row again keeping window put versions per qualifier.
	// A window of zero keeps every version.
	Reread(ctx context.Context, key []byte, window int) (*merge.RowHistory, error)

	Close() error
}

// windowed accumulates the cells of one row, keeping at most window puts per
// qualifier. Cells of a qualifier must arrive newest first.
type windowed struct {
	history *merge.RowHistory
	window  int
	puts    map[merge.QualifierRef]int
}

func newWindowed(key []byte, window int) *windowed {
	return &windowed{
		history: merge.NewRowHistory(key, window),
		window:  window,
		puts:    make(map[merge.QualifierRef]int),
	}
}

func (w *windowed) add(c types.Cell) error {
	if c.Kind == types.CellPut && w.window > 0 {
		ref := merge.QualifierRef{Family: c.Family, Qualifier: c.Qualifier}
		if w.puts[ref] >= w.window {
			return nil
		}
		w.puts[ref]++
	}
	return w.history.Add(c)
}

// sortCells orders cells by family, qualifier and descending timestamp.
func sortCells(cells []types.Cell) {
	sort.SliceStable(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		if a.Qualifier != b.Qualifier {
			return a.Qualifier < b.Qualifier
		}
		return a.Timestamp > b.Timestamp
	})
}
