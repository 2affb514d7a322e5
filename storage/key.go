package storage

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey folds a search query into its cache key: NFKC form, lower
// case, single spaces. "  Red  SHIRT" and "red shirt" share an entry.
func NormalizeKey(query string) string {
	q := norm.NFKC.String(query)
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
