package merge

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	var cols []*schema.Column
	for _, def := range []types.ColumnDef{
		{Family: "D", Qualifier: "RC", Type: "string"},
		{Family: "D", Qualifier: "AMT", Type: "long"},
		{Family: "D", Prefix: "itm_", Type: "string", Target: "items"},
		{Family: "M", Qualifier: "MD", Type: "snappy_json", Target: "metadata"},
	} {
		c, err := schema.NewColumn(def)
		require.NoError(t, err)
		cols = append(cols, c)
	}
	cat, err := schema.NewColumnCatalog(cols...)
	require.NoError(t, err)
	return NewEngine(cat)
}

func put(f, q string, ts int64, v string) types.Cell {
	return types.Cell{Family: f, Qualifier: q, Timestamp: ts, Kind: types.CellPut, Value: []byte(v)}
}

func tomb(kind types.CellKind, f, q string, ts int64) types.Cell {
	return types.Cell{Family: f, Qualifier: q, Timestamp: ts, Kind: kind}
}

func process(t *testing.T, e *Engine, window int, cells ...types.Cell) *ProcessMutationResult {
	t.Helper()
	h, err := FromCells([]byte("row"), cells, window)
	require.NoError(t, err)
	res, err := e.Process(h)
	require.NoError(t, err)
	return res
}

func TestProcess_FamilyDeleteKeepsNewerPut(t *testing.T) {
	res := process(t, testEngine(t), 1,
		put("D", "RC", 5, "Y"),
		tomb(types.CellDeleteFamily, "D", "", 3),
	)
	v, ok := res.Value("D", "RC")
	require.True(t, ok)
	assert.Equal(t, "Y", string(v))
	assert.False(t, res.ReprocessRow)
	assert.Equal(t, RowOutcome{Insert: true}, res.Outcome())
}

func TestProcess_FamilyDeleteHidesOlderPut(t *testing.T) {
	res := process(t, testEngine(t), 1,
		put("D", "RC", 2, "N"),
		tomb(types.CellDeleteFamily, "D", "", 3),
	)
	_, ok := res.Value("D", "RC")
	assert.False(t, ok)
	assert.False(t, res.ReprocessRow, "a covering marker fully resolves the qualifier")
	assert.Equal(t, []QualifierRef{{"D", "RC"}}, res.DeletedQualifiers)
	assert.True(t, res.RowDeleted)
	assert.Equal(t, RowOutcome{DeleteAll: true}, res.Outcome())
}

func TestProcess_PointDeletedWindowNeedsReprocess(t *testing.T) {
	res := process(t, testEngine(t), 2,
		put("D", "RC", 4, "b"),
		put("D", "RC", 3, "a"),
		tomb(types.CellDelete, "D", "RC", 4),
		tomb(types.CellDelete, "D", "RC", 3),
		put("D", "AMT", 7, "\x00\x00\x00\x00\x00\x00\x00\x07"),
	)
	assert.True(t, res.ReprocessRow)
	assert.Equal(t, []QualifierRef{{"D", "RC"}}, res.Pending)
	_, ok := res.Value("D", "RC")
	assert.False(t, ok, "ambiguous qualifier is omitted")
	_, ok = res.Value("D", "AMT")
	assert.True(t, ok, "other qualifiers still resolve")
	assert.False(t, res.Outcome().DeleteAll)
}

func TestProcess_PointDeletedButFullyScanned(t *testing.T) {
	res := process(t, testEngine(t), 3,
		put("D", "RC", 4, "b"),
		put("D", "RC", 3, "a"),
		tomb(types.CellDelete, "D", "RC", 4),
		tomb(types.CellDelete, "D", "RC", 3),
	)
	assert.False(t, res.ReprocessRow)
	assert.Equal(t, []QualifierRef{{"D", "RC"}}, res.DeletedQualifiers)

	// window 0 means every version was scanned
	res = process(t, testEngine(t), 0,
		put("D", "RC", 4, "b"),
		tomb(types.CellDelete, "D", "RC", 4),
	)
	assert.False(t, res.ReprocessRow)
}

func TestProcess_PointDeleteRevealsOlderVersion(t *testing.T) {
	res := process(t, testEngine(t), 3,
		put("D", "RC", 5, "new"),
		put("D", "RC", 4, "old"),
		tomb(types.CellDelete, "D", "RC", 5),
	)
	cv := res.Cells["D"]["RC"]
	assert.Equal(t, int64(4), cv.Timestamp)
	assert.Equal(t, "old", string(cv.Value))
}

func TestProcess_ColumnDelete(t *testing.T) {
	e := testEngine(t)

	res := process(t, e, 3,
		put("D", "RC", 5, "c"),
		put("D", "RC", 4, "b"),
		put("D", "RC", 3, "a"),
		tomb(types.CellDeleteColumn, "D", "RC", 4),
	)
	assert.Equal(t, int64(5), res.Cells["D"]["RC"].Timestamp)

	res = process(t, e, 2,
		put("D", "RC", 5, "c"),
		put("D", "RC", 4, "b"),
		tomb(types.CellDeleteColumn, "D", "RC", 6),
		put("D", "AMT", 1, "\x00\x00\x00\x00\x00\x00\x00\x01"),
	)
	assert.False(t, res.ReprocessRow)
	assert.Equal(t, []QualifierRef{{"D", "RC"}}, res.DeletedQualifiers)
	assert.Equal(t, RowOutcome{Insert: true, DeleteSingle: true}, res.Outcome())
}

func TestProcess_FamilyVersionDelete(t *testing.T) {
	res := process(t, testEngine(t), 3,
		put("D", "RC", 5, "x"),
		put("D", "AMT", 5, "\x00\x00\x00\x00\x00\x00\x00\x05"),
		put("D", "AMT", 4, "\x00\x00\x00\x00\x00\x00\x00\x04"),
		tomb(types.CellDeleteFamilyVersion, "D", "", 5),
	)
	_, ok := res.Value("D", "RC")
	assert.False(t, ok)
	assert.Equal(t, int64(4), res.Cells["D"]["AMT"].Timestamp)
	assert.False(t, res.ReprocessRow)

	// a version marker is a point delete: a full window stays ambiguous
	res = process(t, testEngine(t), 1,
		put("D", "RC", 5, "x"),
		tomb(types.CellDeleteFamilyVersion, "D", "", 5),
	)
	assert.True(t, res.ReprocessRow)
}

func TestProcess_RowDelete(t *testing.T) {
	res := process(t, testEngine(t), 1,
		put("D", "RC", 5, "x"),
		put("M", "MD", 9, "{}"),
		tomb(types.CellDeleteRow, "", "", 6),
	)
	_, ok := res.Value("D", "RC")
	assert.False(t, ok)
	_, ok = res.Value("M", "MD")
	assert.True(t, ok)
	assert.False(t, res.RowDeleted)

	res = process(t, testEngine(t), 1,
		put("D", "RC", 5, "x"),
		put("M", "MD", 4, "{}"),
		tomb(types.CellDeleteRow, "", "", 6),
	)
	assert.True(t, res.RowDeleted)
	assert.Equal(t, 0, res.VisibleCount())
	assert.Equal(t, RowOutcome{DeleteAll: true}, res.Outcome())
}

func TestProcess_TombstoneOnlyRow(t *testing.T) {
	res := process(t, testEngine(t), 1, tomb(types.CellDeleteRow, "", "", 6))
	assert.True(t, res.RowDeleted)
	assert.Equal(t, RowOutcome{DeleteAll: true}, res.Outcome())

	res = process(t, testEngine(t), 1)
	assert.Equal(t, RowOutcome{}, res.Outcome())
}

func TestProcess_UnknownQualifier(t *testing.T) {
	e := testEngine(t)
	for _, cells := range [][]types.Cell{
		{put("D", "ZZ", 1, "x")},
		{put("X", "RC", 1, "x")},
		{tomb(types.CellDeleteColumn, "D", "ZZ", 1)},
		{tomb(types.CellDelete, "D", "ZZ", 1)},
	} {
		h, err := FromCells([]byte("row"), cells, 1)
		require.NoError(t, err)
		_, err = e.Process(h)
		require.Error(t, err)
		assert.Equal(t, merrors.CodeInvalidColumn, merrors.GetCode(err))
		assert.True(t, merrors.HasCode(err, merrors.CodeColumnNotFound))
		assert.True(t, errors.Is(err, types.ErrColumnNotFound))
	}
}

func TestProcess_DynamicQualifier(t *testing.T) {
	res := process(t, testEngine(t), 1, put("D", "itm_1", 1, "pen"), put("D", "itm_2", 1, "ink"))
	assert.Equal(t, 2, res.VisibleCount())
}

func TestFromCells_UnknownKind(t *testing.T) {
	_, err := FromCells(nil, []types.Cell{{Family: "D", Qualifier: "RC", Kind: "truncate"}}, 1)
	assert.Error(t, err)
}

func TestDeletionMetadata_Markers(t *testing.T) {
	var d DeletionMetadata
	assert.False(t, d.HasAny())

	d.AddFamilyDelete("D", 3, true)
	d.AddFamilyDelete("D", 2, true)
	d.AddFamilyDelete("D", 7, false)
	d.AddFamilyDelete("D", 9, false)

	markers := d.Markers("D")
	require.Len(t, markers, 3)
	assert.Equal(t, DeleteFamilyMarkerInfo{Present: true, ForAll: true, Timestamp: 3}, markers[0])
	assert.Equal(t, int64(9), markers[1].Timestamp)
	assert.False(t, markers[1].ForAll)
	assert.True(t, d.HasAny())
	assert.True(t, d.HasCovering())

	d.SetRowDelete(4)
	d.SetRowDelete(1)
	assert.Equal(t, int64(4), *d.Row)
	assert.Equal(t, RowDeleted, d.Status("E", "q", 4))
	assert.Equal(t, NotDeleted, d.Status("E", "q", 5))
	assert.Equal(t, FamilyVersionDeleted, d.Status("D", "q", 7))
}

func TestEngine_Decode(t *testing.T) {
	e := testEngine(t)
	c := codec.New()
	amt, err := c.Encode("1250", codec.Long)
	require.NoError(t, err)
	md, err := c.Encode(`{"src":"api"}`, codec.CompressedJSON)
	require.NoError(t, err)

	h := NewRowHistory([]byte("row"), 1)
	h.Put("D", "AMT", 1, amt)
	h.Put("M", "MD", 1, md)
	h.Put("D", "RC", 1, []byte(`\N`))
	res, err := e.Process(h)
	require.NoError(t, err)

	values, err := e.Decode(res, c)
	require.NoError(t, err)
	assert.Equal(t, "1250", values["D"]["AMT"])
	assert.Equal(t, `{"src":"api"}`, values["M"]["MD"])
	assert.Equal(t, `\N`, values["D"]["RC"])
}

// TestProperty_MergeVisibility checks that winners are never hidden, that no newer
// visible version exists, and that cell order does not matter.
func TestProperty_MergeVisibility(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	kinds := []types.CellKind{types.CellPut, types.CellPut, types.CellDelete,
		types.CellDeleteColumn, types.CellDeleteFamily, types.CellDeleteFamilyVersion}
	quals := []string{"RC", "itm_1"}

	toCells := func(codes []int) []types.Cell {
		cells := make([]types.Cell, 0, len(codes))
		for _, c := range codes {
			kind := kinds[c%len(kinds)]
			ts := int64(c/len(kinds)%10) + 1
			q := quals[c/60%len(quals)]
			cell := types.Cell{Family: "D", Qualifier: q, Timestamp: ts, Kind: kind}
			if kind == types.CellPut {
				cell.Value = []byte{byte(ts)}
			}
			cells = append(cells, cell)
		}
		return cells
	}

	properties.Property("winners are visible and newest", prop.ForAll(
		func(codes []int, window int) bool {
			e := testEngine(t)
			h, err := FromCells(nil, toCells(codes), window)
			if err != nil {
				return false
			}
			res, err := e.Process(h)
			if err != nil {
				return false
			}
			for q, cv := range res.Cells["D"] {
				if h.Deletes.Status("D", q, cv.Timestamp) != NotDeleted {
					return false
				}
				for ts := range h.Cells["D"][q] {
					if ts > cv.Timestamp && h.Deletes.Status("D", q, ts) == NotDeleted {
						return false
					}
				}
			}
			return res.ReprocessRow == (len(res.Pending) > 0)
		},
		gen.SliceOf(gen.IntRange(0, 119)),
		gen.IntRange(0, 4),
	))

	properties.Property("cell order does not matter", prop.ForAll(
		func(codes []int, window int) bool {
			e := testEngine(t)
			cells := toCells(codes)
			reversed := make([]types.Cell, len(cells))
			for i, c := range cells {
				reversed[len(cells)-1-i] = c
			}
			h1, _ := FromCells(nil, cells, window)
			h2, _ := FromCells(nil, reversed, window)
			r1, err1 := e.Process(h1)
			r2, err2 := e.Process(h2)
			if err1 != nil || err2 != nil {
				return false
			}
			return assert.ObjectsAreEqual(r1, r2)
		},
		gen.SliceOf(gen.IntRange(0, 119)),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
