package repo

import "fmt"

// StoreAccessError is returned when the catalog file cannot be opened:
// missing, locked, not a file or not a SQLite database.
type StoreAccessError struct {
	Path string
	Err  error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("open catalog store %s: %v", e.Path, e.Err)
}

func (e *StoreAccessError) Unwrap() error {
	return e.Err
}

// QueryError is returned when the catalog query fails after the store was opened.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query catalog: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
