// Package gofmt formats Go source in process with gofumpt.
package gofmt

import (
	"context"
	"errors"
	"fmt"
	"go/scanner"
	"path/filepath"

	"formatls/internal/engine"
	"formatls/internal/rcfile"

	"github.com/tliron/commonlog"
	"mvdan.cc/gofumpt/format"
)

var log = commonlog.GetLogger("formatls.gofmt")

const parserName = "go"

var support = engine.SupportInfo{
	Languages: []engine.Language{{
		Name:        "Go",
		Parsers:     []string{parserName},
		LanguageIDs: []string{"go"},
		Extensions:  []string{".go"},
	}},
}

// Provider hands out the in-process Go engine. It is always available.
type Provider struct {
	rc *rcfile.Resolver
}

func NewProvider(rc *rcfile.Resolver) *Provider {
	return &Provider{rc: rc}
}

func (p *Provider) Load(ctx context.Context, target engine.Target, opts engine.LoadOptions) (engine.Engine, error) {
	return &Engine{rc: p.rc}, nil
}

// Engine formats Go source. Options understood by Format:
//
//	langVersion  Go version for gofumpt rules, e.g. "go1.22"
//	modulePath   module path, used to group imports
//	extraRules   enable gofumpt's extra rules
//	rangeStart, rangeEnd  byte offsets limiting formatting to a range
type Engine struct {
	rc *rcfile.Resolver
}

func (e *Engine) Name() string {
	return "gofumpt"
}

func (e *Engine) ResolveConfig(ctx context.Context, path string, opts engine.ConfigOptions) (engine.Options, error) {
	options, err := e.rc.Resolve(path, rcfile.Options{
		ConfigPath:   opts.ConfigPath,
		EditorConfig: opts.EditorConfig,
		UseCache:     opts.UseCache,
	})
	if err != nil || options == nil {
		return nil, err
	}
	return engine.Options(options), nil
}

func (e *Engine) FileInfo(ctx context.Context, path string, opts engine.FileInfoOptions) (engine.FileInfo, error) {
	ignored, err := e.rc.Ignored(path, opts.IgnorePath, opts.WithNodeModules)
	if err != nil {
		return engine.FileInfo{}, err
	}
	info := engine.FileInfo{Ignored: ignored}
	if filepath.Ext(path) == ".go" {
		info.InferredParser = parserName
	}
	return info, nil
}

func (e *Engine) SupportInfo(ctx context.Context) (engine.SupportInfo, error) {
	return support, nil
}

func (e *Engine) Format(ctx context.Context, text string, opts engine.Options) (string, error) {
	if parser, ok := opts["parser"].(string); ok && parser != "" && parser != parserName {
		return "", fmt.Errorf("unsupported parser %q", parser)
	}

	start, hasStart := intOption(opts, "rangeStart")
	end, hasEnd := intOption(opts, "rangeEnd")
	if hasStart || hasEnd {
		if !hasStart {
			start = 0
		}
		if !hasEnd || end > len(text) {
			end = len(text)
		}
		if start > 0 || end < len(text) {
			return formatRange(ctx, text, start, end)
		}
	}

	out, err := format.Source([]byte(text), format.Options{
		LangVersion: stringOption(opts, "langVersion"),
		ModulePath:  stringOption(opts, "modulePath"),
		ExtraRules:  boolOption(opts, "extraRules"),
	})
	if err != nil {
		return "", asSyntaxError(err)
	}
	return string(out), nil
}

// asSyntaxError converts parser errors, leaving other errors alone.
func asSyntaxError(err error) error {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return &engine.SyntaxError{Message: list[0].Error(), Err: err}
	}
	var one *scanner.Error
	if errors.As(err, &one) {
		return &engine.SyntaxError{Message: one.Error(), Err: err}
	}
	return err
}

func intOption(opts engine.Options, key string) (int, bool) {
	switch v := opts[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringOption(opts engine.Options, key string) string {
	s, _ := opts[key].(string)
	return s
}

func boolOption(opts engine.Options, key string) bool {
	b, _ := opts[key].(bool)
	return b
}
