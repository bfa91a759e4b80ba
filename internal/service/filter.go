package service

import (
	"strings"

	"golang.org/x/text/cases"
)

// filterIdentities returns the identities containing query, ignoring case.
// A blank query matches everything. The input is never modified.
func filterIdentities(identities []string, query string) []string {
	// A Caser keeps state between calls, so each filter gets its own.
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))

	out := make([]string, 0, len(identities))
	for _, id := range identities {
		if q == "" || strings.Contains(fold.String(id), q) {
			out = append(out, id)
		}
	}
	return out
}
