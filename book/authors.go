package book

import (
	"slices"
	"strings"
)

const (
	authorSep   = ", "
	namePartSep = "| "
)

// DisplayAuthors rewrites calibre's stored author aggregate into display
// order: every "Last| First" entry becomes "First Last". Entries keep their
// order; an entry without "| " is returned as is.
func DisplayAuthors(aggregate string) string {
	return mapEntries(aggregate, namePartSep, " ")
}

// StorageAuthors undoes DisplayAuthors for names whose parts contain no spaces.
func StorageAuthors(display string) string {
	return mapEntries(display, " ", namePartSep)
}

func mapEntries(s, from, to string) string {
	entries := strings.Split(s, authorSep)
	for i, entry := range entries {
		parts := strings.Split(entry, from)
		slices.Reverse(parts)
		entries[i] = strings.Join(parts, to)
	}
	return strings.Join(entries, authorSep)
}
