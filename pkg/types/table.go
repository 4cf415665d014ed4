// Package types provides the serialisable definitions shared by the schema loader,
// row sources and sinks.
package types

// TableDef describes one source table and the target table it migrates into.
type TableDef struct {
	// Name is the target table name
	Name string `json:"name" yaml:"name"`

	// Columns lists every column the migration knows about
	Columns []ColumnDef `json:"columns" yaml:"columns"`

	// RowKey describes how the stored row key is composed
	RowKey RowKeyDef `json:"row_key" yaml:"row_key"`

	// Recon lists the columns tracked by reconciliation and their operations
	Recon []ReconColumnDef `json:"recon" yaml:"recon"`
}

// ColumnDef defines a single wide-column qualifier and its target column.
type ColumnDef struct {
	// Family is the column family the qualifier lives in
	Family string `json:"family" yaml:"family"`

	// Qualifier is the fixed qualifier; empty for purely dynamic columns
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`

	// Prefix is the leading fixed part of a dynamic qualifier
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Suffix is the trailing fixed part of a dynamic qualifier
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`

	// Type is the logical data type name (e.g. "string", "bigint", "decimal", "snappy")
	Type string `json:"type" yaml:"type"`

	// Default is the value written when the column is absent; nil means NULL
	Default *string `json:"default,omitempty" yaml:"default,omitempty"`

	// JSON marks columns whose payload is a JSON document
	JSON bool `json:"json,omitempty" yaml:"json,omitempty"`

	// Target is the target column name; defaults to the qualifier (or prefix+suffix)
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// RowKeyDef describes the composite row key of a table.
type RowKeyDef struct {
	// Fields are the ordered key components
	Fields []KeyFieldDef `json:"fields" yaml:"fields"`

	// Delimiter separates non-hashed components in the stored key
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`

	// HashAlgorithm selects the bucket hash: murmur3 (default) or xxh3
	HashAlgorithm string `json:"hash_algorithm,omitempty" yaml:"hash_algorithm,omitempty"`
}

// KeyFieldDef defines one component of a composite row key.
type KeyFieldDef struct {
	// Name is the logical field name
	Name string `json:"name" yaml:"name"`

	// Literal marks a fixed component whose bytes are Value
	Literal bool `json:"literal,omitempty" yaml:"literal,omitempty"`

	// Value is the literal value (only for literal fields)
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// Hashed marks a component taken from the bucket hash
	Hashed bool `json:"hashed,omitempty" yaml:"hashed,omitempty"`

	// BitStart is the first hash bit (inclusive) for hashed fields
	BitStart int `json:"bit_start,omitempty" yaml:"bit_start,omitempty"`

	// BitEnd is the last hash bit (exclusive) for hashed fields
	BitEnd int `json:"bit_end,omitempty" yaml:"bit_end,omitempty"`

	// Length is an optional fixed byte width for value and literal fields
	Length int `json:"length,omitempty" yaml:"length,omitempty"`
}

// ReconColumnDef names a column tracked by reconciliation.
type ReconColumnDef struct {
	// Column is the target column name
	Column string `json:"column" yaml:"column"`

	// Operations lists the aggregates tracked for the column ("sum", "count")
	Operations []string `json:"operations" yaml:"operations"`
}
