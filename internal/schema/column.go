// Package schema describes how wide-column families and qualifiers map to target
// columns. A column is either static (fixed qualifier) or dynamic (a fixed prefix
// and/or suffix around a variable component carrying data).
package schema

import (
	"fmt"
	"strings"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// Column is one logical field. It is immutable after construction.
type Column struct {
	family       string
	qualifier    string
	prefix       string
	suffix       string
	dataType     codec.DataType
	defaultValue *string
	jsonLike     bool
	target       string
}

// NewColumn validates def and builds a Column.
func NewColumn(def types.ColumnDef) (*Column, error) {
	if def.Family == "" {
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema, "column family is required", nil)
	}

	dynamic := def.Prefix != "" || def.Suffix != ""
	switch {
	case dynamic && def.Qualifier != "":
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("column %s:%s cannot have both a qualifier and a prefix/suffix", def.Family, def.Qualifier), nil)
	case !dynamic && def.Qualifier == "":
		return nil, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("column in family %s needs a qualifier or a prefix/suffix", def.Family), nil)
	}

	dt, err := codec.ParseDataType(def.Type)
	if err != nil {
		return nil, err
	}

	c := &Column{
		family:    def.Family,
		qualifier: def.Qualifier,
		prefix:    def.Prefix,
		suffix:    def.Suffix,
		dataType:  dt,
		jsonLike:  def.JSON || dt.IsJSONLike(),
		target:    def.Target,
	}
	if def.Default != nil {
		v := *def.Default
		c.defaultValue = &v
	}
	if c.target == "" {
		if dynamic {
			c.target = def.Prefix + def.Suffix
		} else {
			c.target = def.Qualifier
		}
	}
	return c, nil
}

// Family returns the column family.
func (c *Column) Family() string { return c.family }

// StaticQualifier returns the fixed qualifier; empty for dynamic columns.
func (c *Column) StaticQualifier() string { return c.qualifier }

// Prefix returns the dynamic prefix.
func (c *Column) Prefix() string { return c.prefix }

// Suffix returns the dynamic suffix.
func (c *Column) Suffix() string { return c.suffix }

// DataType returns the logical data type.
func (c *Column) DataType() codec.DataType { return c.dataType }

// IsJSONLike reports whether the payload is a JSON document.
func (c *Column) IsJSONLike() bool { return c.jsonLike }

// TargetName returns the target column name.
func (c *Column) TargetName() string { return c.target }

// DefaultValue returns the default and whether one is defined. A column without a
// default projects to NULL when absent.
func (c *Column) DefaultValue() (string, bool) {
	if c.defaultValue == nil {
		return "", false
	}
	return *c.defaultValue, true
}

// IsDynamic reports whether the column has a prefix or suffix.
func (c *Column) IsDynamic() bool {
	return c.prefix != "" || c.suffix != ""
}

// Matches reports whether qualifier belongs to this column. Dynamic columns need a
// non-empty variable component between prefix and suffix.
func (c *Column) Matches(qualifier string) bool {
	if !c.IsDynamic() {
		return qualifier == c.qualifier
	}
	return len(qualifier) > len(c.prefix)+len(c.suffix) &&
		strings.HasPrefix(qualifier, c.prefix) &&
		strings.HasSuffix(qualifier, c.suffix)
}

// DynamicComponent strips prefix and suffix from qualifier.
func (c *Column) DynamicComponent(qualifier string) (string, error) {
	if !c.IsDynamic() {
		return "", merrors.NewSchemaError(merrors.CodeInvalidOperation,
			fmt.Sprintf("column %s:%s is static", c.family, c.qualifier), types.ErrNotDynamic)
	}
	if !c.Matches(qualifier) {
		return "", merrors.NewSchemaError(merrors.CodeColumnNotFound,
			fmt.Sprintf("qualifier %q does not match %s", qualifier, c), types.ErrColumnNotFound)
	}
	return qualifier[len(c.prefix) : len(qualifier)-len(c.suffix)], nil
}

// Qualifier returns the stored qualifier for a dynamic component. For static
// columns the component is ignored.
func (c *Column) Qualifier(component string) string {
	if !c.IsDynamic() {
		return c.qualifier
	}
	return c.prefix + component + c.suffix
}

// String renders the column as family:qualifier or family:prefix*suffix.
func (c *Column) String() string {
	if c.IsDynamic() {
		return c.family + ":" + c.prefix + "*" + c.suffix
	}
	return c.family + ":" + c.qualifier
}

// overlaps reports whether some qualifier could match both dynamic columns.
func (c *Column) overlaps(o *Column) bool {
	prefixes := strings.HasPrefix(c.prefix, o.prefix) || strings.HasPrefix(o.prefix, c.prefix)
	suffixes := strings.HasSuffix(c.suffix, o.suffix) || strings.HasSuffix(o.suffix, c.suffix)
	return prefixes && suffixes
}
