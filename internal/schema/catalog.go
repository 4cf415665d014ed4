package schema

import (
	"fmt"
	"sort"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

type familyColumns struct {
	static  map[string]*Column
	dynamic []*Column
	ordered []*Column
}

// ColumnCatalog maps families to their columns. It is read-only after construction
// and safe for concurrent use.
type ColumnCatalog struct {
	families map[string]*familyColumns
	targets  map[string]*Column
}

// NewColumnCatalog indexes cols. It fails with an InvalidSchema error when two
// columns of a family could both claim the same qualifier, or when two columns
// share a target name.
func NewColumnCatalog(cols ...*Column) (*ColumnCatalog, error) {
	cat := &ColumnCatalog{
		families: make(map[string]*familyColumns),
		targets:  make(map[string]*Column, len(cols)),
	}

	for _, c := range cols {
		fc, ok := cat.families[c.family]
		if !ok {
			fc = &familyColumns{static: make(map[string]*Column)}
			cat.families[c.family] = fc
		}

		if c.IsDynamic() {
			for _, other := range fc.dynamic {
				if c.overlaps(other) {
					return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
						fmt.Sprintf("dynamic columns %s and %s are ambiguous", other, c), nil)
				}
			}
			fc.dynamic = append(fc.dynamic, c)
		} else {
			if _, dup := fc.static[c.qualifier]; dup {
				return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
					fmt.Sprintf("duplicate qualifier %s", c), nil)
			}
			fc.static[c.qualifier] = c
		}
		fc.ordered = append(fc.ordered, c)

		if prev, dup := cat.targets[c.target]; dup {
			return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
				fmt.Sprintf("columns %s and %s share target %q", prev, c, c.target), nil)
		}
		cat.targets[c.target] = c
	}
	return cat, nil
}

// Families returns the family names in sorted order.
func (cat *ColumnCatalog) Families() []string {
	out := make([]string, 0, len(cat.families))
	for f := range cat.families {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Columns returns the columns of family in definition order.
func (cat *ColumnCatalog) Columns(family string) []*Column {
	fc, ok := cat.families[family]
	if !ok {
		return nil
	}
	out := make([]*Column, len(fc.ordered))
	copy(out, fc.ordered)
	return out
}

// All returns every column, grouped by sorted family.
func (cat *ColumnCatalog) All() []*Column {
	var out []*Column
	for _, f := range cat.Families() {
		out = append(out, cat.families[f].ordered...)
	}
	return out
}

// ByTarget returns the column projecting to the given target name.
func (cat *ColumnCatalog) ByTarget(target string) (*Column, bool) {
	c, ok := cat.targets[target]
	return c, ok
}

// Resolve finds the column for a fully formed qualifier. An exact static match
// wins over dynamic columns.
func (cat *ColumnCatalog) Resolve(family, qualifier string) (*Column, error) {
	if fc, ok := cat.families[family]; ok {
		if c, ok := fc.static[qualifier]; ok {
			return c, nil
		}
		for _, c := range fc.dynamic {
			if c.Matches(qualifier) {
				return c, nil
			}
		}
	}
	return nil, merrors.NewSchemaError(merrors.CodeColumnNotFound,
		fmt.Sprintf("no column for %s:%s", family, qualifier), types.ErrColumnNotFound)
}

// IsColumnPresent reports whether family:qualifier resolves to a column.
func (cat *ColumnCatalog) IsColumnPresent(family, qualifier string) bool {
	_, err := cat.Resolve(family, qualifier)
	return err == nil
}

// IsDynamicColumn reports whether family:qualifier resolves to a dynamic column.
func (cat *ColumnCatalog) IsDynamicColumn(family, qualifier string) bool {
	c, err := cat.Resolve(family, qualifier)
	return err == nil && c.IsDynamic()
}

// GetDataType returns the logical data type of family:qualifier.
func (cat *ColumnCatalog) GetDataType(family, qualifier string) (codec.DataType, error) {
	c, err := cat.Resolve(family, qualifier)
	if err != nil {
		return 0, err
	}
	return c.dataType, nil
}

// GetDataTypeClass returns the type class of family:qualifier.
func (cat *ColumnCatalog) GetDataTypeClass(family, qualifier string) (codec.TypeClass, error) {
	dt, err := cat.GetDataType(family, qualifier)
	if err != nil {
		return 0, err
	}
	return dt.Class(), nil
}

// DefaultValue returns the default of family:qualifier and whether one is set.
func (cat *ColumnCatalog) DefaultValue(family, qualifier string) (string, bool, error) {
	c, err := cat.Resolve(family, qualifier)
	if err != nil {
		return "", false, err
	}
	v, ok := c.DefaultValue()
	return v, ok, nil
}
