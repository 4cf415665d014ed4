package recon

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
)

// RowCountKey names the row count in comparisons.
const RowCountKey = "row_count"

// Report is the serialised form of a reduced entity for one grouping key.
type Report struct {
	GroupKey          string            `json:"group_key"`
	RowCount          int64             `json:"row_count"`
	Columns           map[string]string `json:"columns"`
	InsertAdded       bool              `json:"insert_added"`
	DeleteAllAdded    bool              `json:"delete_all_added"`
	DeleteSingleAdded bool              `json:"delete_single_added"`
}

// ToReport renders e under groupKey. Totals keep their scale.
func (e *ReconEntity) ToReport(groupKey string) Report {
	cols := make(map[string]string, len(e.columns))
	for k, v := range e.columns {
		cols[k] = codec.FormatDecimal(v)
	}
	return Report{
		GroupKey:          groupKey,
		RowCount:          e.rowCount,
		Columns:           cols,
		InsertAdded:       e.insertAdded,
		DeleteAllAdded:    e.deleteAllAdded,
		DeleteSingleAdded: e.deleteSingleAdded,
	}
}

// Marshal encodes the report as indented JSON.
func (r Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ParseReport decodes a report.
func ParseReport(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, merrors.Wrap(merrors.ErrCategoryRecon, merrors.CodeDecodeFailed, "invalid recon report", err)
	}
	return r, nil
}

// Entity rebuilds the accumulator a report was rendered from.
func (r Report) Entity() (*ReconEntity, error) {
	e := NewReconEntity()
	e.rowCount = r.RowCount
	e.insertAdded = r.InsertAdded
	e.deleteAllAdded = r.DeleteAllAdded
	e.deleteSingleAdded = r.DeleteSingleAdded
	for k, v := range r.Columns {
		d, err := e.decimals.Parse(v)
		if err != nil {
			return nil, merrors.Wrap(merrors.ErrCategoryRecon, merrors.CodeDecodeFailed,
				fmt.Sprintf("report column %q is not numeric", k), err)
		}
		e.columns[k] = d
	}
	return e, nil
}

// Mismatch is one counter that differs between source and target.
type Mismatch struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Compare lists the counters that differ between a source-side and a target-side
// entity, sorted by key. A key missing on one side counts as zero.
func Compare(source, target *ReconEntity) []Mismatch {
	var out []Mismatch
	if source.rowCount != target.rowCount {
		out = append(out, Mismatch{
			Key:    RowCountKey,
			Source: strconv.FormatInt(source.rowCount, 10),
			Target: strconv.FormatInt(target.rowCount, 10),
		})
	}

	keys := make(map[string]struct{})
	for k := range source.columns {
		keys[k] = struct{}{}
	}
	for k := range target.columns {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		s, t := valueOrZero(source, k), valueOrZero(target, k)
		if !s.Equal(t) {
			out = append(out, Mismatch{Key: k, Source: codec.FormatDecimal(s), Target: codec.FormatDecimal(t)})
		}
	}
	return out
}

func valueOrZero(e *ReconEntity, key string) decimal.Decimal {
	if v, ok := e.columns[key]; ok {
		return v
	}
	return decimal.Zero
}
