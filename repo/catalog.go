package repo

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/htol/calibre-export/book"
	"github.com/htol/calibre-export/logger"
)

// catalogQuery yields one row per stored file. Books without any entry in
// data are dropped by the inner join; books without authors are kept by
// the left join and carry a NULL aggregate. No ORDER BY: rows come back in
// whatever order SQLite produces.
const catalogQuery = `
select
    B.title as "title", A.authors as "authors", B.path as "path",
    D.format as "format", D.name as "filename", B.has_cover as "has_cover"
from books B
join data D on D.book=B.id
left join (
    select
        BA.book,
        group_concat(A.name, ', ') as "authors"
    from books_authors_link BA
    join authors A on A.id=BA.author
    group by BA.book
) A on A.book=B.id
`

// ErrInvalidText is wrapped in a QueryError when a text column is not valid UTF-8.
var ErrInvalidText = errors.New("text column is not valid UTF-8")

// CatalogRows runs the catalog query and materializes the full result.
// On any error no rows are returned.
func (r *Repo) CatalogRows(ctx context.Context) ([]book.CatalogRow, error) {
	var rows []book.CatalogRow
	if err := r.db.SelectContext(ctx, &rows, catalogQuery); err != nil {
		return nil, &QueryError{Err: err}
	}
	for _, row := range rows {
		if err := checkText(row); err != nil {
			return nil, &QueryError{Err: err}
		}
	}
	logger.Debug("Loaded catalog rows", "count", len(rows))
	return rows, nil
}

// checkText rejects rows that JSON encoding would silently alter.
func checkText(row book.CatalogRow) error {
	fields := []struct{ name, value string }{
		{"title", row.Title},
		{"authors", row.Authors.String},
		{"path", row.Path},
		{"format", row.Format},
		{"filename", row.Filename},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%s %q of book %q: %w", f.name, f.value, row.Title, ErrInvalidText)
		}
	}
	return nil
}
