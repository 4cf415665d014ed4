// Package merge resolves the multi-version put and delete history of one row into
// its final visible cells. The engine is pure: it performs no I/O and keeps no
// state between rows.
package merge

import (
	"fmt"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// RowHistory is the scanned history of one row.
type RowHistory struct {
	Key []byte

	// Cells maps family -> qualifier -> timestamp -> value for every scanned put
	Cells map[string]map[string]map[int64][]byte

	Deletes DeletionMetadata

	// Window is the number of versions per qualifier the scan kept; 0 means every
	// version was scanned.
	Window int
}

// NewRowHistory returns an empty history for key.
func NewRowHistory(key []byte, window int) *RowHistory {
	return &RowHistory{
		Key:     key,
		Cells:   make(map[string]map[string]map[int64][]byte),
		Deletes: NewDeletionMetadata(),
		Window:  window,
	}
}

// FromCells groups stored cells into a history.
func FromCells(key []byte, cells []types.Cell, window int) (*RowHistory, error) {
	h := NewRowHistory(key, window)
	for _, c := range cells {
		if err := h.Add(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Add records one stored cell.
func (h *RowHistory) Add(c types.Cell) error {
	switch c.Kind {
	case types.CellPut:
		h.Put(c.Family, c.Qualifier, c.Timestamp, c.Value)
	case types.CellDelete:
		h.Deletes.AddVersionDelete(c.Family, c.Qualifier, c.Timestamp)
	case types.CellDeleteColumn:
		h.Deletes.AddColumnDelete(c.Family, c.Qualifier, c.Timestamp)
	case types.CellDeleteFamily:
		h.Deletes.AddFamilyDelete(c.Family, c.Timestamp, true)
	case types.CellDeleteFamilyVersion:
		h.Deletes.AddFamilyDelete(c.Family, c.Timestamp, false)
	case types.CellDeleteRow:
		h.Deletes.SetRowDelete(c.Timestamp)
	default:
		return merrors.NewMergeError(merrors.CodeInvalidOperation,
			fmt.Sprintf("unknown cell kind %q", c.Kind), nil)
	}
	return nil
}

// Put records a put version. A nil value is stored as empty.
func (h *RowHistory) Put(family, qualifier string, ts int64, value []byte) {
	if h.Cells == nil {
		h.Cells = make(map[string]map[string]map[int64][]byte)
	}
	if h.Cells[family] == nil {
		h.Cells[family] = make(map[string]map[int64][]byte)
	}
	if h.Cells[family][qualifier] == nil {
		h.Cells[family][qualifier] = make(map[int64][]byte)
	}
	if value == nil {
		value = []byte{}
	}
	h.Cells[family][qualifier][ts] = value
}

// VersionCount returns the number of put versions scanned.
func (h *RowHistory) VersionCount() int {
	n := 0
	for _, quals := range h.Cells {
		for _, versions := range quals {
			n += len(versions)
		}
	}
	return n
}
