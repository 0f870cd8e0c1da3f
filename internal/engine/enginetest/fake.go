// Package enginetest provides in-memory engines for tests.
package enginetest

import (
	"context"
	"sync"
	"sync/atomic"

	"formatls/internal/engine"
)

// Engine is a scriptable engine. Zero values format text unchanged.
type Engine struct {
	mu sync.Mutex

	FormatFunc func(text string, opts engine.Options) (string, error)
	Config     engine.Options
	Info       engine.FileInfo
	Support    engine.SupportInfo
	Err        error // returned by ResolveConfig and FileInfo

	// Recorded calls.
	LastOptions  engine.Options
	LastConfig   engine.ConfigOptions
	LastFileInfo engine.FileInfoOptions
	InfoPath     string
	FormatCalls  int
	SupportCalls atomic.Int32
}

func (e *Engine) Name() string { return "fake" }

func (e *Engine) ResolveConfig(ctx context.Context, path string, opts engine.ConfigOptions) (engine.Options, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LastConfig = opts
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Config, nil
}

func (e *Engine) FileInfo(ctx context.Context, path string, opts engine.FileInfoOptions) (engine.FileInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LastFileInfo = opts
	e.InfoPath = path
	if e.Err != nil {
		return engine.FileInfo{}, e.Err
	}
	return e.Info, nil
}

func (e *Engine) SupportInfo(ctx context.Context) (engine.SupportInfo, error) {
	e.SupportCalls.Add(1)
	return e.Support, nil
}

func (e *Engine) Format(ctx context.Context, text string, opts engine.Options) (string, error) {
	e.mu.Lock()
	e.LastOptions = opts
	e.FormatCalls++
	format := e.FormatFunc
	e.mu.Unlock()
	if format == nil {
		return text, nil
	}
	return format(text, opts)
}

// Provider hands out Engine, or ErrNotFound when Engine is nil.
type Provider struct {
	Engine engine.Engine
	Err    error

	mu      sync.Mutex
	Loads   int
	Targets []engine.Target
	Options []engine.LoadOptions
}

func (p *Provider) Load(ctx context.Context, target engine.Target, opts engine.LoadOptions) (engine.Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loads++
	p.Targets = append(p.Targets, target)
	p.Options = append(p.Options, opts)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Engine == nil {
		return nil, engine.ErrNotFound
	}
	return p.Engine, nil
}

// LoadCount returns the number of Load calls so far.
func (p *Provider) LoadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Loads
}
