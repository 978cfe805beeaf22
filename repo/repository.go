package repo

import (
	"context"

	"github.com/htol/calibre-export/book"
)

// Catalog defines read access to the calibre catalog
type Catalog interface {
	// Close closes the database connection
	Close() error

	// Health check
	Ping() error

	// CatalogRows returns one row per (book, format) in store order
	CatalogRows(ctx context.Context) ([]book.CatalogRow, error)
}

var _ Catalog = (*Repo)(nil)
