package service

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/htol/calibre-export/book"
)

const coverFileName = "cover.jpg"

// NewRecord maps one catalog row to its exported form.
func NewRecord(libraryRoot string, row book.CatalogRow) book.BookRecord {
	rec := book.BookRecord{
		Title:  row.Title,
		File:   JoinPath(libraryRoot, row.Path, row.Filename+"."+strings.ToLower(row.Format)),
		Format: row.Format,
	}
	if row.Authors.Valid {
		rec.Authors = book.DisplayAuthors(row.Authors.String)
	}
	if row.CoverSet() {
		cover := JoinPath(libraryRoot, row.Path, coverFileName)
		rec.Cover = &cover
	}
	return rec
}

// JoinPath joins elements with the OS separator without cleaning them:
// "..", "." and repeated separators inside an element are kept. An
// absolute element discards everything before it, and no separator is
// added after an element that already ends with one.
func JoinPath(elem ...string) string {
	var b strings.Builder
	for _, e := range elem {
		if filepath.IsAbs(e) {
			b.Reset()
		} else if b.Len() > 0 && !os.IsPathSeparator(b.String()[b.Len()-1]) {
			b.WriteByte(filepath.Separator)
		}
		b.WriteString(e)
	}
	return b.String()
}
