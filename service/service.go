// Package service implements the catalog export on top of the repository
package service

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/htol/calibre-export/book"
	"github.com/htol/calibre-export/repo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service exports the catalog of one calibre library
type Service struct {
	repo        repo.Catalog
	libraryRoot string
}

// New creates a Service reading from catalog and building paths under libraryRoot
func New(catalog repo.Catalog, libraryRoot string) *Service {
	return &Service{
		repo:        catalog,
		libraryRoot: libraryRoot,
	}
}

// Records reads the whole catalog and maps every row to a BookRecord,
// keeping the order the store returned.
func (s *Service) Records(ctx context.Context) ([]book.BookRecord, error) {
	rows, err := s.repo.CatalogRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	records := make([]book.BookRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, NewRecord(s.libraryRoot, row))
	}
	return records, nil
}

// Export writes the catalog to w as one JSON array followed by a newline.
// The document is built in memory first and handed to w in a single Write,
// so w receives nothing when reading or encoding fails.
func (s *Service) Export(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return 0, err
	}

	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encode records: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return 0, &OutputError{Err: err}
	}
	return len(records), nil
}

// OutputError is returned when the encoded catalog cannot be written.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write catalog: %v", e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}
