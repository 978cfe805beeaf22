// Package calibredb builds small calibre-shaped metadata.db files for tests.
package calibredb

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// Subset of calibre's schema; only the columns the exporter reads plus
// enough of the rest to keep inserts realistic.
const schema = `
CREATE TABLE books (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    title     TEXT NOT NULL DEFAULT 'Unknown' COLLATE NOCASE,
    sort      TEXT COLLATE NOCASE,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    path      TEXT NOT NULL DEFAULT '',
    has_cover BOOL DEFAULT 0
);
CREATE TABLE authors (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL COLLATE NOCASE,
    sort TEXT COLLATE NOCASE,
    link TEXT NOT NULL DEFAULT '',
    UNIQUE(name)
);
CREATE TABLE books_authors_link (
    id     INTEGER PRIMARY KEY,
    book   INTEGER NOT NULL,
    author INTEGER NOT NULL,
    UNIQUE(book, author)
);
CREATE TABLE data (
    id                INTEGER PRIMARY KEY,
    book              INTEGER NOT NULL,
    format            TEXT NOT NULL COLLATE NOCASE,
    uncompressed_size INTEGER NOT NULL DEFAULT 0,
    name              TEXT NOT NULL,
    UNIQUE(book, format)
);
`

// Library is a writable fixture library rooted at Root.
type Library struct {
	Root string
	t    testing.TB
	db   *sqlx.DB
}

// New creates <dir>/metadata.db with the calibre tables.
func New(t testing.TB, dir string) *Library {
	t.Helper()

	db, err := sqlx.Open("sqlite3", filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)

	return &Library{Root: dir, t: t, db: db}
}

// AddBook inserts a book and returns its id.
func (l *Library) AddBook(title, path string, hasCover int) int64 {
	l.t.Helper()
	res, err := l.db.Exec(`INSERT INTO books (title, sort, path, has_cover) VALUES (?, ?, ?, ?)`,
		title, title, path, hasCover)
	require.NoError(l.t, err)
	id, err := res.LastInsertId()
	require.NoError(l.t, err)
	return id
}

// AddAuthor inserts an author stored as calibre does ("Last| First") and returns its id.
func (l *Library) AddAuthor(name string) int64 {
	l.t.Helper()
	res, err := l.db.Exec(`INSERT INTO authors (name, sort) VALUES (?, ?)`, name, name)
	require.NoError(l.t, err)
	id, err := res.LastInsertId()
	require.NoError(l.t, err)
	return id
}

// Link attaches an author to a book.
func (l *Library) Link(bookID, authorID int64) {
	l.t.Helper()
	_, err := l.db.Exec(`INSERT INTO books_authors_link (book, author) VALUES (?, ?)`, bookID, authorID)
	require.NoError(l.t, err)
}

// AddFormat registers a stored file <name>.<format> for the book.
func (l *Library) AddFormat(bookID int64, format, name string) {
	l.t.Helper()
	_, err := l.db.Exec(`INSERT INTO data (book, format, name) VALUES (?, ?, ?)`, bookID, format, name)
	require.NoError(l.t, err)
}

// Close flushes the fixture so a read-only handle sees every row.
func (l *Library) Close() {
	l.t.Helper()
	require.NoError(l.t, l.db.Close())
}
