// Package codec converts between raw wide-column cell bytes and logical values.
//
// Numeric layouts are fixed-width big-endian, decimals are a 4-byte scale followed by
// the two's-complement unscaled value, and compressed kinds fall back to plain text
// when the payload does not decompress (rows written before compression was enabled).
package codec

import (
	"fmt"
	"strings"

	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/pkg/types"
)

// DataType is the logical type of a column. The set is closed; every switch over
// DataType in this module is exhaustive.
type DataType int

const (
	Boolean DataType = iota + 1
	Short
	Integer
	Long
	Float
	Double
	Decimal
	String
	Character
	CompressedText
	JSON
	CompressedJSON
)

// TypeClass groups data types that share a value representation.
type TypeClass int

const (
	ClassBoolean TypeClass = iota + 1
	ClassIntegral
	ClassFloating
	ClassDecimal
	ClassText
	ClassJSON
)

var dataTypeNames = map[DataType]string{
	Boolean:        "boolean",
	Short:          "short",
	Integer:        "integer",
	Long:           "long",
	Float:          "float",
	Double:         "double",
	Decimal:        "decimal",
	String:         "string",
	Character:      "character",
	CompressedText: "compressed_text",
	JSON:           "json",
	CompressedJSON: "compressed_json",
}

// dataTypeAliases maps every accepted type name (lower case) to its DataType.
var dataTypeAliases = map[string]DataType{
	"boolean":         Boolean,
	"bool":            Boolean,
	"short":           Short,
	"smallint":        Short,
	"int":             Integer,
	"integer":         Integer,
	"long":            Long,
	"bigint":          Long,
	"float":           Float,
	"double":          Double,
	"decimal":         Decimal,
	"bigdecimal":      Decimal,
	"string":          String,
	"varchar":         String,
	"text":            String,
	"char":            Character,
	"character":       Character,
	"compressed":      CompressedText,
	"compressed_text": CompressedText,
	"snappy":          CompressedText,
	"json":            JSON,
	"compressed_json": CompressedJSON,
	"snappy_json":     CompressedJSON,
}

// ParseDataType resolves a type name from a table definition. Names outside the
// supported set are rejected rather than defaulted to string.
func ParseDataType(name string) (DataType, error) {
	t, ok := dataTypeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, merrors.NewSchemaError(merrors.CodeInvalidSchema,
			fmt.Sprintf("data type %q is not supported", name), types.ErrUnknownDataType)
	}
	return t, nil
}

// String returns the canonical type name.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Valid reports whether t is one of the declared types.
func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// Class returns the value class of t.
func (t DataType) Class() TypeClass {
	switch t {
	case Boolean:
		return ClassBoolean
	case Short, Integer, Long:
		return ClassIntegral
	case Float, Double:
		return ClassFloating
	case Decimal:
		return ClassDecimal
	case String, Character, CompressedText:
		return ClassText
	case JSON, CompressedJSON:
		return ClassJSON
	}
	return 0
}

// IsCompressed reports whether the stored bytes are compressor output.
func (t DataType) IsCompressed() bool {
	return t == CompressedText || t == CompressedJSON
}

// IsJSONLike reports whether the decoded text is a JSON document.
func (t DataType) IsJSONLike() bool {
	return t == JSON || t == CompressedJSON
}

// IsNumeric reports whether values of t take part in sum aggregation.
func (t DataType) IsNumeric() bool {
	switch t.Class() {
	case ClassIntegral, ClassFloating, ClassDecimal:
		return true
	}
	return false
}

// Width returns the fixed byte width of t, or 0 for variable-width types.
func (t DataType) Width() int {
	switch t {
	case Boolean:
		return 1
	case Short:
		return 2
	case Integer, Float:
		return 4
	case Long, Double:
		return 8
	}
	return 0
}

func (c TypeClass) String() string {
	switch c {
	case ClassBoolean:
		return "boolean"
	case ClassIntegral:
		return "integral"
	case ClassFloating:
		return "floating"
	case ClassDecimal:
		return "decimal"
	case ClassText:
		return "text"
	case ClassJSON:
		return "json"
	}
	return fmt.Sprintf("TypeClass(%d)", int(c))
}
