package merge

import (
	"fmt"
	"sort"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

// Engine resolves row histories against a column catalog.
type Engine struct {
	catalog *schema.ColumnCatalog
}

// NewEngine creates an engine for catalog.
func NewEngine(catalog *schema.ColumnCatalog) *Engine {
	return &Engine{catalog: catalog}
}

// Process computes the visible state of a row. For every qualifier the winner is
// the newest scanned version no marker hides. A qualifier with no visible version
// is resolved as deleted when the scan saw all its versions or when its oldest
// scanned version is hidden by a covering marker (row, family or column), since
// that marker hides every older version too. Otherwise an unscanned older version
// might be visible: the qualifier is left out and the row is flagged for reprocessing.
func (e *Engine) Process(h *RowHistory) (*ProcessMutationResult, error) {
	if err := e.validate(h); err != nil {
		return nil, err
	}

	res := &ProcessMutationResult{
		Key:        h.Key,
		Cells:      make(map[string]map[string]CellVersion),
		Tombstones: h.Deletes.HasAny(),
	}

	for _, family := range sortedKeys(h.Cells) {
		quals := h.Cells[family]
		for _, qualifier := range sortedKeys(quals) {
			versions := quals[qualifier]
			ref := QualifierRef{Family: family, Qualifier: qualifier}

			winner, ok, oldest := resolve(&h.Deletes, family, qualifier, versions)
			switch {
			case ok:
				if res.Cells[family] == nil {
					res.Cells[family] = make(map[string]CellVersion)
				}
				res.Cells[family][qualifier] = CellVersion{Timestamp: winner, Value: versions[winner]}
			case h.Window > 0 && len(versions) >= h.Window && !oldest.Covering():
				res.Pending = append(res.Pending, ref)
			default:
				res.DeletedQualifiers = append(res.DeletedQualifiers, ref)
			}
		}
	}

	res.ReprocessRow = len(res.Pending) > 0
	res.RowDeleted = res.VisibleCount() == 0 && !res.ReprocessRow && h.Deletes.HasCovering()
	return res, nil
}

// resolve returns the newest visible timestamp, or the delete status of the oldest
// scanned version when none is visible.
func resolve(d *DeletionMetadata, family, qualifier string, versions map[int64][]byte) (int64, bool, DeleteStatus) {
	ts := make([]int64, 0, len(versions))
	for t := range versions {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] > ts[j] })

	status := NotDeleted
	for _, t := range ts {
		status = d.Status(family, qualifier, t)
		if status == NotDeleted {
			return t, true, NotDeleted
		}
	}
	return 0, false, status
}

// validate checks that every put and qualifier-level tombstone names a known column.
func (e *Engine) validate(h *RowHistory) error {
	for family, quals := range h.Cells {
		for qualifier := range quals {
			if err := e.check(family, qualifier); err != nil {
				return err
			}
		}
	}
	for family, quals := range h.Deletes.Columns {
		for qualifier := range quals {
			if err := e.check(family, qualifier); err != nil {
				return err
			}
		}
	}
	for family, quals := range h.Deletes.Versions {
		for qualifier := range quals {
			if err := e.check(family, qualifier); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) check(family, qualifier string) error {
	if _, err := e.catalog.Resolve(family, qualifier); err != nil {
		return merrors.NewMergeError(merrors.CodeInvalidColumn,
			fmt.Sprintf("mutation references unknown column %s:%s", family, qualifier), err)
	}
	return nil
}

// Decode converts the visible cells of r to strings using the catalog types.
func (e *Engine) Decode(r *ProcessMutationResult, c *codec.Codec) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(r.Cells))
	for family, quals := range r.Cells {
		out[family] = make(map[string]string, len(quals))
		for qualifier, cv := range quals {
			dt, err := e.catalog.GetDataType(family, qualifier)
			if err != nil {
				return nil, err
			}
			v, _, err := c.Decode(cv.Value, dt)
			if err != nil {
				return nil, fmt.Errorf("decode %s:%s: %w", family, qualifier, err)
			}
			out[family][qualifier] = v
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
