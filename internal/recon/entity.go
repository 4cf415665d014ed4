package recon

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
)

// ReconEntity is a mutable accumulator owned by one worker. It is not safe for
// concurrent use; workers merge their entities after they finish.
type ReconEntity struct {
	rowCount          int64
	columns           map[string]decimal.Decimal
	insertAdded       bool
	deleteAllAdded    bool
	deleteSingleAdded bool
	decimals          codec.DecimalContext
}

// NewReconEntity returns an empty accumulator.
func NewReconEntity() *ReconEntity {
	return &ReconEntity{
		columns:  make(map[string]decimal.Decimal),
		decimals: codec.DefaultDecimalContext(),
	}
}

// Add folds one observed row into the accumulator. record maps target column names
// to their string values; a missing key is an absent column. Null sentinels are
// skipped by both operations, and an empty string is skipped by sums. The entity
// is unchanged when an error is returned.
func (e *ReconEntity) Add(record map[string]string, ops ColumnOperations) error {
	type delta struct {
		key   string
		value decimal.Decimal
	}
	var deltas []delta

	for column, colOps := range ops {
		v, present := record[column]
		if !present || codec.IsNullSentinel(v) {
			continue
		}
		for _, op := range colOps {
			switch op {
			case OpSum:
				if v == "" {
					continue
				}
				d, err := e.decimals.Parse(v)
				if err != nil {
					return merrors.Wrap(merrors.ErrCategoryRecon, merrors.CodeDecodeFailed,
						fmt.Sprintf("column %q value %q is not numeric", column, v), err)
				}
				deltas = append(deltas, delta{op.Key(column), d})
			case OpCount:
				deltas = append(deltas, delta{op.Key(column), decimal.NewFromInt(1)})
			default:
				return merrors.NewReconError(merrors.CodeUnknownOperation,
					fmt.Sprintf("unknown operation %s on column %q", op, column))
			}
		}
	}

	e.rowCount++
	e.insertAdded = true
	for _, d := range deltas {
		e.columns[d.key] = e.decimals.Add(e.columns[d.key], d.value)
	}
	return nil
}

// AddDeletionMetadata ORs the delete flags into the accumulator.
func (e *ReconEntity) AddDeletionMetadata(deleteAll, deleteSingle bool) {
	e.deleteAllAdded = e.deleteAllAdded || deleteAll
	e.deleteSingleAdded = e.deleteSingleAdded || deleteSingle
}

// CheckAndSetDeletionFlags records the delete classification of a merged row.
func (e *ReconEntity) CheckAndSetDeletionFlags(outcome merge.RowOutcome) {
	e.AddDeletionMetadata(outcome.DeleteAll, outcome.DeleteSingle)
}

// AddReconEntity merges other into e: row counts and column totals add, with a
// missing key counting as zero, and flags OR.
func (e *ReconEntity) AddReconEntity(other *ReconEntity) {
	if other == nil {
		return
	}
	e.rowCount += other.rowCount
	e.insertAdded = e.insertAdded || other.insertAdded
	e.deleteAllAdded = e.deleteAllAdded || other.deleteAllAdded
	e.deleteSingleAdded = e.deleteSingleAdded || other.deleteSingleAdded
	for k, v := range other.columns {
		e.columns[k] = e.decimals.Add(e.columns[k], v)
	}
}

// AreHdfsFilesCreated reports whether any insert or delete output was produced,
// which decides whether the writer emits files for this unit at all.
func (e *ReconEntity) AreHdfsFilesCreated() bool {
	return e.insertAdded || e.deleteAllAdded || e.deleteSingleAdded
}

func (e *ReconEntity) RowCount() int64 { return e.rowCount }
func (e *ReconEntity) InsertAdded() bool { return e.insertAdded }
func (e *ReconEntity) DeleteAllAdded() bool { return e.deleteAllAdded }
func (e *ReconEntity) DeleteSingleAdded() bool { return e.deleteSingleAdded }

// Value returns the total under key.
func (e *ReconEntity) Value(key string) (decimal.Decimal, bool) {
	v, ok := e.columns[key]
	return v, ok
}

// Columns returns a copy of the column totals.
func (e *ReconEntity) Columns() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(e.columns))
	for k, v := range e.columns {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (e *ReconEntity) Clone() *ReconEntity {
	cp := *e
	cp.columns = e.Columns()
	return &cp
}

// Equal reports whether both entities hold the same counts, totals and flags.
// Totals compare by value, so 1.50 equals 1.5.
func (e *ReconEntity) Equal(o *ReconEntity) bool {
	if e.rowCount != o.rowCount || e.insertAdded != o.insertAdded ||
		e.deleteAllAdded != o.deleteAllAdded || e.deleteSingleAdded != o.deleteSingleAdded ||
		len(e.columns) != len(o.columns) {
		return false
	}
	for k, v := range e.columns {
		ov, ok := o.columns[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
