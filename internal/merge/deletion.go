package merge

import "sort"

// DeleteStatus indicates why a put version is hidden.
type DeleteStatus int

const (
	NotDeleted           DeleteStatus = iota
	RowDeleted                        // shadowed by a row delete marker
	FamilyDeleted                     // shadowed by a family-delete-for-all marker
	ColumnDeleted                     // shadowed by a column delete marker
	FamilyVersionDeleted              // shadowed by a family delete at exactly this timestamp
	VersionDeleted                    // shadowed by a point delete of this version
)

// Covering reports whether the status also shadows every older version of the
// qualifier.
func (s DeleteStatus) Covering() bool {
	return s == RowDeleted || s == FamilyDeleted || s == ColumnDeleted
}

func (s DeleteStatus) String() string {
	switch s {
	case RowDeleted:
		return "row"
	case FamilyDeleted:
		return "family"
	case ColumnDeleted:
		return "column"
	case FamilyVersionDeleted:
		return "family_version"
	case VersionDeleted:
		return "version"
	default:
		return "none"
	}
}

// DeleteFamilyMarkerInfo describes a family delete marker. ForAll markers hide every
// version at or below Timestamp; the others hide exactly Timestamp.
type DeleteFamilyMarkerInfo struct {
	Present   bool
	ForAll    bool
	Timestamp int64
}

// DeletionMetadata holds the tombstones observed for one row.
type DeletionMetadata struct {
	// Families holds the newest for-all family marker per family
	Families map[string]DeleteFamilyMarkerInfo

	// FamilyVersions holds the timestamps of family-version markers per family
	FamilyVersions map[string]map[int64]struct{}

	// Columns maps family -> qualifier -> newest column delete timestamp
	Columns map[string]map[string]int64

	// Versions maps family -> qualifier -> point-deleted timestamps
	Versions map[string]map[string]map[int64]struct{}

	// Row is the newest row delete timestamp, nil when the row has none
	Row *int64
}

// NewDeletionMetadata returns empty metadata.
func NewDeletionMetadata() DeletionMetadata {
	return DeletionMetadata{
		Families:       make(map[string]DeleteFamilyMarkerInfo),
		FamilyVersions: make(map[string]map[int64]struct{}),
		Columns:        make(map[string]map[string]int64),
		Versions:       make(map[string]map[string]map[int64]struct{}),
	}
}

// ensure makes the zero value usable.
func (d *DeletionMetadata) ensure() {
	if d.Families == nil {
		d.Families = make(map[string]DeleteFamilyMarkerInfo)
	}
	if d.FamilyVersions == nil {
		d.FamilyVersions = make(map[string]map[int64]struct{})
	}
	if d.Columns == nil {
		d.Columns = make(map[string]map[string]int64)
	}
	if d.Versions == nil {
		d.Versions = make(map[string]map[string]map[int64]struct{})
	}
}

// AddFamilyDelete records a family marker. For-all markers keep the newest timestamp.
func (d *DeletionMetadata) AddFamilyDelete(family string, ts int64, forAll bool) {
	d.ensure()
	if !forAll {
		if d.FamilyVersions[family] == nil {
			d.FamilyVersions[family] = make(map[int64]struct{})
		}
		d.FamilyVersions[family][ts] = struct{}{}
		return
	}
	if cur, ok := d.Families[family]; ok && cur.Timestamp >= ts {
		return
	}
	d.Families[family] = DeleteFamilyMarkerInfo{Present: true, ForAll: true, Timestamp: ts}
}

// AddColumnDelete records a column marker, keeping the newest timestamp.
func (d *DeletionMetadata) AddColumnDelete(family, qualifier string, ts int64) {
	d.ensure()
	if d.Columns[family] == nil {
		d.Columns[family] = make(map[string]int64)
	}
	if cur, ok := d.Columns[family][qualifier]; ok && cur >= ts {
		return
	}
	d.Columns[family][qualifier] = ts
}

// AddVersionDelete records a point delete of one version.
func (d *DeletionMetadata) AddVersionDelete(family, qualifier string, ts int64) {
	d.ensure()
	if d.Versions[family] == nil {
		d.Versions[family] = make(map[string]map[int64]struct{})
	}
	if d.Versions[family][qualifier] == nil {
		d.Versions[family][qualifier] = make(map[int64]struct{})
	}
	d.Versions[family][qualifier][ts] = struct{}{}
}

// SetRowDelete records a row marker, keeping the newest timestamp.
func (d *DeletionMetadata) SetRowDelete(ts int64) {
	if d.Row != nil && *d.Row >= ts {
		return
	}
	d.Row = &ts
}

// Markers returns every family marker of family: the for-all marker first, then
// version markers newest first.
func (d *DeletionMetadata) Markers(family string) []DeleteFamilyMarkerInfo {
	var out []DeleteFamilyMarkerInfo
	if m, ok := d.Families[family]; ok {
		out = append(out, m)
	}
	start := len(out)
	for ts := range d.FamilyVersions[family] {
		out = append(out, DeleteFamilyMarkerInfo{Present: true, Timestamp: ts})
	}
	versions := out[start:]
	sort.Slice(versions, func(i, j int) bool { return versions[i].Timestamp > versions[j].Timestamp })
	return out
}

// HasAny reports whether any tombstone was recorded.
func (d *DeletionMetadata) HasAny() bool {
	return d.Row != nil || len(d.Families) > 0 || len(d.FamilyVersions) > 0 ||
		len(d.Columns) > 0 || len(d.Versions) > 0
}

// HasCovering reports whether a row or family-for-all marker was recorded.
func (d *DeletionMetadata) HasCovering() bool {
	return d.Row != nil || len(d.Families) > 0
}

// Status reports whether the put version family:qualifier@ts is hidden and by what.
// Covering markers are checked before point deletes.
func (d *DeletionMetadata) Status(family, qualifier string, ts int64) DeleteStatus {
	if d.Row != nil && ts <= *d.Row {
		return RowDeleted
	}
	if m, ok := d.Families[family]; ok && ts <= m.Timestamp {
		return FamilyDeleted
	}
	if cts, ok := d.Columns[family][qualifier]; ok && ts <= cts {
		return ColumnDeleted
	}
	if _, ok := d.FamilyVersions[family][ts]; ok {
		return FamilyVersionDeleted
	}
	if _, ok := d.Versions[family][qualifier][ts]; ok {
		return VersionDeleted
	}
	return NotDeleted
}
