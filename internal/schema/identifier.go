package schema

import "strings"

// ValidateIdentifier checks that name is usable unquoted as a SQL table name:
// a letter or underscore followed by letters, digits or underscores.
func ValidateIdentifier(name string) bool {
	if len(name) == 0 || len(name) > 100 {
		return false
	}
	first := name[0]
	if (first < 'a' || first > 'z') && (first < 'A' || first > 'Z') && first != '_' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

// QuoteIdentifier quotes name for use as a SQL column name.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
