package repo

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htol/calibre-export/book"
	"github.com/htol/calibre-export/config"
	"github.com/htol/calibre-export/testutil/calibredb"
)

func openLibrary(t *testing.T, root string) *Repo {
	t.Helper()
	r, err := Open(context.Background(), root, config.Default().Database)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Logf("Error closing storage: %v", err)
		}
	})
	return r
}

func rowsByTitle(rows []book.CatalogRow) map[string][]book.CatalogRow {
	out := make(map[string][]book.CatalogRow)
	for _, r := range rows {
		out[r.Title] = append(out[r.Title], r)
	}
	return out
}

func TestCatalogRowsJoinSemantics(t *testing.T) {
	lib := calibredb.New(t, t.TempDir())

	herbert := lib.AddAuthor("Herbert| Frank")
	anderson := lib.AddAuthor("Anderson| Kevin J.")

	dune := lib.AddBook("Dune", "Frank Herbert/Dune (1)", 1)
	lib.Link(dune, herbert)
	lib.Link(dune, anderson)
	lib.AddFormat(dune, "EPUB", "Dune - Frank Herbert")
	lib.AddFormat(dune, "MOBI", "Dune - Frank Herbert")

	noFiles := lib.AddBook("Only Metadata", "Frank Herbert/Only Metadata (2)", 0)
	lib.Link(noFiles, herbert)

	anon := lib.AddBook("Anonymous Tales", "Unknown/Anonymous Tales (3)", 0)
	lib.AddFormat(anon, "PDF", "Anonymous Tales")
	lib.Close()

	rows, err := openLibrary(t, lib.Root).CatalogRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byTitle := rowsByTitle(rows)

	assert.NotContains(t, byTitle, "Only Metadata")

	duneRows := byTitle["Dune"]
	require.Len(t, duneRows, 2)
	formats := []string{duneRows[0].Format, duneRows[1].Format}
	assert.ElementsMatch(t, []string{"EPUB", "MOBI"}, formats)
	for _, r := range duneRows {
		assert.True(t, r.Authors.Valid)
		assert.ElementsMatch(t,
			[]string{"Herbert| Frank", "Anderson| Kevin J."},
			splitAggregate(r.Authors.String))
		assert.Equal(t, "Frank Herbert/Dune (1)", r.Path)
		assert.Equal(t, "Dune - Frank Herbert", r.Filename)
		assert.True(t, r.CoverSet())
	}

	anonRows := byTitle["Anonymous Tales"]
	require.Len(t, anonRows, 1)
	assert.False(t, anonRows[0].Authors.Valid)
	assert.False(t, anonRows[0].CoverSet())
	assert.Equal(t, "PDF", anonRows[0].Format)
}

// group_concat order inside a group is not guaranteed, so compare as a set.
func splitAggregate(s string) []string {
	return strings.Split(s, ", ")
}

func TestCatalogRowsEmptyLibrary(t *testing.T) {
	lib := calibredb.New(t, t.TempDir())
	lib.Close()

	rows, err := openLibrary(t, lib.Root).CatalogRows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCatalogRowsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := sqlx.Open("sqlite3", filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rows, err := openLibrary(t, dir).CatalogRows(context.Background())

	var qErr *QueryError
	require.True(t, errors.As(err, &qErr), "got %v", err)
	assert.Nil(t, rows)
}

func TestOpenFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{
			name:  "missing file",
			setup: func(t *testing.T, dir string) {},
		},
		{
			name: "directory instead of file",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Mkdir(filepath.Join(dir, "metadata.db"), 0o755))
			},
		},
		{
			name: "not a database",
			setup: func(t *testing.T, dir string) {
				garbage := bytes.Repeat([]byte("this is not sqlite "), 256)
				require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.db"), garbage, 0o644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			r, err := Open(context.Background(), dir, config.Default().Database)

			var accessErr *StoreAccessError
			require.True(t, errors.As(err, &accessErr), "got %v", err)
			assert.Equal(t, filepath.Join(dir, "metadata.db"), accessErr.Path)
			assert.Nil(t, r)
		})
	}
}

func TestOpenDoesNotCreateStore(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(context.Background(), dir, config.Default().Database)
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "metadata.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenIsReadOnly(t *testing.T) {
	lib := calibredb.New(t, t.TempDir())
	lib.Close()

	r := openLibrary(t, lib.Root)
	_, err := r.db.Exec(`INSERT INTO authors (name) VALUES ('Nobody')`)
	assert.Error(t, err)
	assert.NoError(t, r.Ping())
}

func TestDSNEscapesURIDelimiters(t *testing.T) {
	got := dsn("/books/what?#100%/metadata.db", config.DatabaseConfig{BusyTimeout: 500})
	assert.Equal(t, "file:/books/what%3f%23100%25/metadata.db?_busy_timeout=500&_query_only=1&mode=ro", got)
}

func TestOpenPathWithSpaceHashPercent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Calibre Library #1 100%")
	require.NoError(t, os.Mkdir(dir, 0o755))
	lib := calibredb.New(t, dir)
	id := lib.AddBook("Dune", "Frank Herbert/Dune (1)", 0)
	lib.AddFormat(id, "EPUB", "Dune")
	lib.Close()

	rows, err := openLibrary(t, dir).CatalogRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCatalogRowsRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		filename string
		author   string
	}{
		{name: "path", path: "Bad\xffDir/Book (1)", filename: "book", author: "Doe| Jane"},
		{name: "filename", path: "Jane Doe/Book (1)", filename: "bo\xc3ok", author: "Doe| Jane"},
		{name: "authors", path: "Jane Doe/Book (1)", filename: "book", author: "Do\xfee| Jane"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := calibredb.New(t, t.TempDir())
			id := lib.AddBook("Book", tt.path, 0)
			lib.Link(id, lib.AddAuthor(tt.author))
			lib.AddFormat(id, "EPUB", tt.filename)
			lib.Close()

			rows, err := openLibrary(t, lib.Root).CatalogRows(context.Background())

			var qErr *QueryError
			require.True(t, errors.As(err, &qErr), "got %v", err)
			assert.ErrorIs(t, err, ErrInvalidText)
			assert.Contains(t, err.Error(), tt.name)
			assert.Nil(t, rows)
		})
	}
}
