package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

type bookFile struct {
	Book struct {
		Src string `toml:"src"`
	} `toml:"book"`

	Preprocessor struct {
		Cmdrun Settings `toml:"cmdrun"`
	} `toml:"preprocessor"`
}

// Load reads the configuration from the book.toml in dir.
//
// A missing, unreadable or malformed book.toml isn't an error, the defaults
// are used instead and a warning is logged. Settings that parse but are
// invalid are an error.
func Load(fsys afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	// If given the path to a book.toml file, move back up a level.
	if filepath.Base(dir) == BookConfigName {
		dir = filepath.Dir(dir)
	}

	path := filepath.Join(dir, BookConfigName)
	contents, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Printf("Couldn't read %s, using defaults: %v", path, err)
		}
		return Default(dir), nil
	}

	var raw bookFile
	if err := toml.Unmarshal(contents, &raw); err != nil {
		logger.Printf("Couldn't parse %s, using defaults: %v", path, err)
		return Default(dir), nil
	}

	out := Default(dir)
	if raw.Book.Src != "" {
		out.SourceDir = raw.Book.Src
	}

	settings := raw.Preprocessor.Cmdrun
	if settings.Renderers != nil {
		out.Renderers = settings.Renderers
	}
	out.TraceLog = settings.TraceLog
	out.Shell = settings.Shell

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return out, nil
}
