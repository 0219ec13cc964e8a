// Package config loads the preprocessor configuration from a book's book.toml.
package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/mdcmdrun/core/platform"
)

const (
	// BookConfigName is the mdBook project file holding all settings.
	BookConfigName = "book.toml"
	// DefaultSourceDir is used when book.toml doesn't set [book] src.
	DefaultSourceDir = "src"
	// DefaultRenderer is the only renderer supported unless configured.
	DefaultRenderer = "html"
)

// Configuration is read once before any chapter is processed and never
// modified afterwards.
type Configuration struct {
	rootDir string

	// SourceDir is the book's source root, relative to the root directory.
	SourceDir string `toml:"src" validate:"required"`

	Settings
}

// Settings live in the [preprocessor.cmdrun] table of book.toml.
type Settings struct {
	// Renderers the preprocessor runs for.
	Renderers []string `toml:"renderers" validate:"min=1,dive,required"`
	// TraceLog is a file receiving a JSON event per directive, disabled if empty.
	TraceLog string `toml:"trace-log"`
	// Shell overrides the platform shell and its command flag, e.g. ["bash", "-c"].
	Shell []string `toml:"shell" validate:"omitempty,len=2,dive,required"`
}

// Default returns the configuration used for a book without a book.toml.
func Default(rootDir string) *Configuration {
	return &Configuration{
		rootDir:   rootDir,
		SourceDir: DefaultSourceDir,
		Settings: Settings{
			Renderers: []string{DefaultRenderer},
		},
	}
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// RootDir is the directory holding book.toml.
func (c *Configuration) RootDir() string {
	return c.rootDir
}

// SourcePath is the source root as seen from the current directory.
func (c *Configuration) SourcePath() string {
	return filepath.Join(c.rootDir, c.SourceDir)
}

// TraceLogPath resolves TraceLog against the root directory, empty when
// tracing is disabled.
func (c *Configuration) TraceLogPath() string {
	if c.TraceLog == "" || filepath.IsAbs(c.TraceLog) {
		return c.TraceLog
	}
	return filepath.Join(c.rootDir, c.TraceLog)
}

// Platform returns the native platform with any configured shell override.
func (c *Configuration) Platform() platform.Platform {
	if len(c.Shell) != 2 {
		return platform.Native
	}
	return platform.Native.WithShell(c.Shell[0], c.Shell[1])
}

// SupportsRenderer reports whether the preprocessor should run for renderer.
func (c *Configuration) SupportsRenderer(renderer string) bool {
	for _, r := range c.Renderers {
		if r == renderer {
			return true
		}
	}
	return false
}

// WithTraceLog returns a copy of the configuration writing its trace to path.
func (c *Configuration) WithTraceLog(path string) *Configuration {
	out := *c
	out.TraceLog = path
	return &out
}
