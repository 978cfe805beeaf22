package repo

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/htol/calibre-export/config"
	"github.com/htol/calibre-export/logger"
)

var errNotAFile = errors.New("not a regular file")

// Repo is a read-only handle on a calibre metadata.db.
type Repo struct {
	db   *sqlx.DB
	path string
}

// Open opens <libraryRoot>/<cfg.FileName> read-only. The file must already
// exist and be readable as SQLite; any failure is a *StoreAccessError.
func Open(ctx context.Context, libraryRoot string, cfg config.DatabaseConfig) (*Repo, error) {
	path := filepath.Join(libraryRoot, cfg.FileName)

	info, err := os.Stat(path)
	if err != nil {
		return nil, &StoreAccessError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &StoreAccessError{Path: path, Err: errNotAFile}
	}

	db, err := sqlx.Open("sqlite3", dsn(path, cfg))
	if err != nil {
		return nil, &StoreAccessError{Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)

	// Reading the schema table forces SQLite to check the file header.
	var tables int
	if err := db.GetContext(ctx, &tables, "SELECT count(*) FROM sqlite_master"); err != nil {
		_ = db.Close()
		return nil, &StoreAccessError{Path: path, Err: err}
	}

	logger.Debug("Opened catalog store", "path", path, "schema_objects", tables)
	return &Repo{db: db, path: path}, nil
}

// dsn builds a read-only SQLite URI for path.
func dsn(path string, cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_query_only", "1")
	if cfg.BusyTimeout > 0 {
		q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout))
	}
	return "file:" + escapePath(path) + "?" + q.Encode()
}

var pathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

func escapePath(path string) string {
	return pathEscaper.Replace(filepath.ToSlash(path))
}

// Path returns the database file path.
func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) Close() error {
	if r.db != nil {
		logger.Debug("Closing catalog store", "path", r.path)
		return r.db.Close()
	}
	return nil
}

func (r *Repo) Ping() error {
	if r.db != nil {
		return r.db.Ping()
	}
	return errors.New("catalog store is not open")
}
