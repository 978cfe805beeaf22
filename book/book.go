package book

import "database/sql"

// CatalogRow is one (book, format) row as read from the calibre catalog.
type CatalogRow struct {
	Title string `db:"title"`
	// Authors is the upstream "Last| First, Last| First" aggregate, NULL
	// when the book has no linked authors.
	Authors  sql.NullString `db:"authors"`
	Path     string         `db:"path"`
	Format   string         `db:"format"`
	Filename string         `db:"filename"`
	HasCover sql.NullInt64  `db:"has_cover"`
}

// CoverSet reports whether the row's cover flag holds the integer 1.
func (r CatalogRow) CoverSet() bool {
	return r.HasCover.Valid && r.HasCover.Int64 == 1
}

// BookRecord is the exported unit, one per (book, format).
type BookRecord struct {
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	File    string  `json:"file"`
	Format  string  `json:"format"`
	Cover   *string `json:"cover"`
}
