package types

// CellKind is the type of a stored wide-column cell.
type CellKind string

const (
	// CellPut is a regular value write
	CellPut CellKind = "put"

	// CellDelete deletes exactly one version of a qualifier
	CellDelete CellKind = "delete"

	// CellDeleteColumn deletes all versions of a qualifier at or below its timestamp
	CellDeleteColumn CellKind = "delete_column"

	// CellDeleteFamily deletes all versions of a family at or below its timestamp
	CellDeleteFamily CellKind = "delete_family"

	// CellDeleteFamilyVersion deletes every qualifier of a family at exactly its timestamp
	CellDeleteFamilyVersion CellKind = "delete_family_version"

	// CellDeleteRow deletes every family at or below its timestamp
	CellDeleteRow CellKind = "delete_row"
)

// Cell is one stored version or tombstone for a row.
type Cell struct {
	Family    string   `json:"family"`
	Qualifier string   `json:"qualifier,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Kind      CellKind `json:"kind"`
	Value     []byte   `json:"value,omitempty"`
}

// IsDelete reports whether the cell is a tombstone.
func (k CellKind) IsDelete() bool {
	return k != CellPut
}

// Valid reports whether k is a known cell kind.
func (k CellKind) Valid() bool {
	switch k {
	case CellPut, CellDelete, CellDeleteColumn, CellDeleteFamily, CellDeleteFamilyVersion, CellDeleteRow:
		return true
	}
	return false
}
