// Package recon accumulates reconciliation counters: row counts, per-column sums
// and counts, and flags recording which kinds of output a unit of work produced.
// Partial accumulators from independent workers merge in any order or tree shape
// to the same totals.
package recon

import (
	"fmt"
	"sort"
	"strings"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

// Operation is a tracked per-column aggregate.
type Operation int

const (
	OpSum Operation = iota + 1
	OpCount
)

// ParseOperation converts an operation name.
func ParseOperation(name string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sum":
		return OpSum, nil
	case "count":
		return OpCount, nil
	}
	return 0, merrors.NewReconError(merrors.CodeUnknownOperation,
		fmt.Sprintf("unknown recon operation %q", name))
}

func (o Operation) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpCount:
		return "count"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// Key returns the counter key for column, "<column>_<operation>".
func (o Operation) Key(column string) string {
	return column + "_" + o.String()
}

// ColumnOperations maps a target column to its tracked operations.
type ColumnOperations map[string][]Operation

// FromTable builds the tracked operations of a table. Sums need a numeric static
// column; a dynamic column projects to one JSON object per row and only supports
// count.
func FromTable(t *schema.Table) (ColumnOperations, error) {
	ops := make(ColumnOperations, len(t.ReconColumns))
	for _, rc := range t.ReconColumns {
		col, ok := t.Catalog.ByTarget(rc.Column)
		if !ok {
			return nil, merrors.NewReconError(merrors.CodeColumnNotFound,
				fmt.Sprintf("recon column %q is not defined", rc.Column))
		}
		for _, name := range rc.Operations {
			op, err := ParseOperation(name)
			if err != nil {
				return nil, err
			}
			if op == OpSum && !col.DataType().IsNumeric() {
				return nil, merrors.NewReconError(merrors.CodeInvalidOperation,
					fmt.Sprintf("cannot sum %s column %q", col.DataType(), rc.Column))
			}
			if op == OpSum && col.IsDynamic() {
				return nil, merrors.NewReconError(merrors.CodeInvalidOperation,
					fmt.Sprintf("cannot sum dynamic column %q, its target holds a JSON object", rc.Column))
			}
			ops[rc.Column] = append(ops[rc.Column], op)
		}
	}
	return ops, nil
}

// Keys returns every counter key in sorted order.
func (c ColumnOperations) Keys() []string {
	var keys []string
	for col, ops := range c {
		for _, op := range ops {
			keys = append(keys, op.Key(col))
		}
	}
	sort.Strings(keys)
	return keys
}
