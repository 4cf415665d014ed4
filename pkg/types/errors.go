package types

import "errors"

// Schema-related errors
var (
	// ErrColumnNotFound is returned when a qualifier matches no static or dynamic column
	ErrColumnNotFound = errors.New("column not found")

	// ErrNotDynamic is returned when a dynamic component is requested from a static column
	ErrNotDynamic = errors.New("column is not dynamic")

	// ErrUnknownDataType is returned for a data type name outside the supported set
	ErrUnknownDataType = errors.New("unknown data type")
)

// Row key errors
var (
	// ErrMissingKeyField is returned when a value field has no value while building a key
	ErrMissingKeyField = errors.New("missing row key field")

	// ErrOverlappingBits is returned when two hashed fields share hash bits
	ErrOverlappingBits = errors.New("overlapping hash bit ranges")
)
