package pipeline

import (
	"sort"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
)

// Prune removes puts and qualifier tombstones of qualifiers the catalog does not
// know, returning the dropped qualifiers in sorted order. Family and row
// markers are kept.
func Prune(h *merge.RowHistory, catalog *schema.ColumnCatalog) []merge.QualifierRef {
	seen := make(map[merge.QualifierRef]struct{})
	drop := func(family, qualifier string) bool {
		if catalog.IsColumnPresent(family, qualifier) {
			return false
		}
		seen[merge.QualifierRef{Family: family, Qualifier: qualifier}] = struct{}{}
		return true
	}

	for family, quals := range h.Cells {
		for qualifier := range quals {
			if drop(family, qualifier) {
				delete(quals, qualifier)
			}
		}
		if len(quals) == 0 {
			delete(h.Cells, family)
		}
	}
	for family, quals := range h.Deletes.Columns {
		for qualifier := range quals {
			if drop(family, qualifier) {
				delete(quals, qualifier)
			}
		}
		if len(quals) == 0 {
			delete(h.Deletes.Columns, family)
		}
	}
	for family, quals := range h.Deletes.Versions {
		for qualifier := range quals {
			if drop(family, qualifier) {
				delete(quals, qualifier)
			}
		}
		if len(quals) == 0 {
			delete(h.Deletes.Versions, family)
		}
	}

	dropped := make([]merge.QualifierRef, 0, len(seen))
	for ref := range seen {
		dropped = append(dropped, ref)
	}
	sort.Slice(dropped, func(i, j int) bool {
		if dropped[i].Family != dropped[j].Family {
			return dropped[i].Family < dropped[j].Family
		}
		return dropped[i].Qualifier < dropped[j].Qualifier
	})
	return dropped
}
