package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// ErrNoLibraryPath is returned when calibre's preferences carry no library_path.
var ErrNoLibraryPath = errors.New("no library_path in calibre preferences")

const globalPrefsFile = "global.py.json"

// ResolutionError reports that the library root could not be determined.
type ResolutionError struct {
	Source string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve library path from %s: %v", e.Source, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ResolveLibraryPath fills Library.Path from calibre's global preferences
// when it was not set explicitly.
func (c *Config) ResolveLibraryPath() error {
	if c.Library.Path != "" {
		return nil
	}

	dir := c.Library.CalibreConfigDir
	if dir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return &ResolutionError{Source: "user config directory", Err: err}
		}
		dir = filepath.Join(userDir, "calibre")
	}

	path := filepath.Join(dir, globalPrefsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return &ResolutionError{Source: path, Err: err}
	}

	var prefs struct {
		LibraryPath string `json:"library_path"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &prefs); err != nil {
		return &ResolutionError{Source: path, Err: err}
	}
	if prefs.LibraryPath == "" {
		return &ResolutionError{Source: path, Err: ErrNoLibraryPath}
	}

	c.Library.Path = prefs.LibraryPath
	return nil
}
