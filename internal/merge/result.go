package merge

// CellVersion is the winning version of a qualifier.
type CellVersion struct {
	Timestamp int64
	Value     []byte
}

// QualifierRef names one qualifier of a family.
type QualifierRef struct {
	Family    string
	Qualifier string
}

func (q QualifierRef) String() string {
	return q.Family + ":" + q.Qualifier
}

// ProcessMutationResult is the resolved state of one row.
type ProcessMutationResult struct {
	Key []byte

	// Cells maps family -> qualifier -> winning version
	Cells map[string]map[string]CellVersion

	// ReprocessRow is set when some qualifier could not be resolved inside the
	// scanned window. Those qualifiers are listed in Pending and absent from Cells.
	ReprocessRow bool
	Pending      []QualifierRef

	// DeletedQualifiers lists qualifiers whose every scanned version is hidden
	DeletedQualifiers []QualifierRef

	// RowDeleted is set when nothing is visible and a row or family marker hid it
	RowDeleted bool

	// Tombstones is set when the history carried any delete marker
	Tombstones bool
}

// RowOutcome classifies a row for reconciliation.
type RowOutcome struct {
	Insert       bool
	DeleteAll    bool
	DeleteSingle bool
}

// Outcome classifies the result. A row with visible cells is an insert; it is also
// a single delete when some of its qualifiers were deleted. A row with nothing
// visible that carried tombstones is a delete-all.
func (r *ProcessMutationResult) Outcome() RowOutcome {
	visible := r.VisibleCount() > 0
	return RowOutcome{
		Insert:       visible,
		DeleteAll:    !visible && !r.ReprocessRow && r.Tombstones,
		DeleteSingle: visible && len(r.DeletedQualifiers) > 0,
	}
}

// VisibleCount returns the number of visible qualifiers.
func (r *ProcessMutationResult) VisibleCount() int {
	n := 0
	for _, quals := range r.Cells {
		n += len(quals)
	}
	return n
}

// Value returns the winning value of family:qualifier.
func (r *ProcessMutationResult) Value(family, qualifier string) ([]byte, bool) {
	cv, ok := r.Cells[family][qualifier]
	if !ok {
		return nil, false
	}
	return cv.Value, true
}
