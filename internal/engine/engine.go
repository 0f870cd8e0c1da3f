// Package engine defines the formatter engines the server delegates to and
// caches loaded engine instances per document.
package engine

import (
	"context"
	"errors"
	"slices"
)

// ErrNotFound is returned by a Provider that has no engine for a target.
var ErrNotFound = errors.New("engine not found")

// SyntaxError is returned by Engine.Format when the input cannot be parsed.
type SyntaxError struct {
	Message string
	Err     error
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Message
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// IsSyntaxError reports whether err is, or wraps, a *SyntaxError.
func IsSyntaxError(err error) bool {
	var syntaxErr *SyntaxError
	return errors.As(err, &syntaxErr)
}

// Target identifies the document an engine is loaded for.
type Target struct {
	URI        string
	LanguageID string
	// Path is the filesystem path for file-backed documents, "" otherwise.
	Path string
}

// LoadOptions controls how an engine is located. It is compared with ==.
type LoadOptions struct {
	OnlyUseLocalVersion  bool
	EnginePath           string
	ResolveGlobalModules bool
	PackageManager       string
}

// Options are the formatting options passed to an engine.
type Options map[string]any

// ConfigOptions controls config file resolution.
type ConfigOptions struct {
	ConfigPath   string
	EditorConfig bool
	UseCache     bool
}

// FileInfoOptions controls the ignore check.
type FileInfoOptions struct {
	ResolveConfig   bool
	IgnorePath      string
	WithNodeModules bool
}

// FileInfo describes how an engine treats a file.
type FileInfo struct {
	Ignored        bool   `json:"ignored"`
	InferredParser string `json:"inferredParser"`
}

// Language is one entry of an engine's support info.
type Language struct {
	Name        string   `json:"name"`
	Parsers     []string `json:"parsers"`
	LanguageIDs []string `json:"vscodeLanguageIds"`
	Extensions  []string `json:"extensions"`
}

// SupportInfo lists what an engine can format.
type SupportInfo struct {
	Languages []Language `json:"languages"`
}

// ParserFor returns the first parser of the language registered for an
// editor language id, or "".
func (si SupportInfo) ParserFor(languageID string) string {
	for _, lang := range si.Languages {
		if slices.Contains(lang.LanguageIDs, languageID) && len(lang.Parsers) > 0 {
			return lang.Parsers[0]
		}
	}
	return ""
}

// Engine is a loaded formatter instance.
type Engine interface {
	Name() string
	// ResolveConfig returns the options from the config files governing
	// path, or nil when there are none.
	ResolveConfig(ctx context.Context, path string, opts ConfigOptions) (Options, error)
	FileInfo(ctx context.Context, path string, opts FileInfoOptions) (FileInfo, error)
	SupportInfo(ctx context.Context) (SupportInfo, error)
	// Format returns the formatted text. Unparsable input yields a
	// *SyntaxError.
	Format(ctx context.Context, text string, opts Options) (string, error)
}

// Provider loads engines.
type Provider interface {
	// Load returns an engine for target, or ErrNotFound.
	Load(ctx context.Context, target Target, opts LoadOptions) (Engine, error)
}
