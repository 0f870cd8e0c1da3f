// Package prettier runs prettier modules installed in the user's projects
// through a small node bridge.
package prettier

import (
	"context"
	"errors"
	"sync"

	"formatls/internal/engine"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("formatls.prettier")

// SupportCache persists support info between runs.
type SupportCache interface {
	Get(engineID, version string) (engine.SupportInfo, error)
	Put(engineID, version string, info engine.SupportInfo) error
}

// Provider loads prettier for a document, preferring the copy installed in
// the document's project. Bridges are shared by every document resolving
// to the same module directory.
type Provider struct {
	nodePath string
	fallback string
	support  SupportCache
	run      commandRunner

	mu          sync.Mutex
	bridges     map[string]*bridge
	globalRoots map[string]string
}

// NewProvider creates a Provider. fallback is the module directory used
// when a document has no local copy and may be empty. support may be nil.
func NewProvider(nodePath, fallback string, support SupportCache) *Provider {
	if nodePath == "" {
		nodePath = "node"
	}
	return &Provider{
		nodePath:    nodePath,
		fallback:    fallback,
		support:     support,
		run:         runCommand,
		bridges:     make(map[string]*bridge),
		globalRoots: make(map[string]string),
	}
}

func (p *Provider) Load(ctx context.Context, target engine.Target, opts engine.LoadOptions) (engine.Engine, error) {
	dir, err := p.resolve(ctx, target, opts)
	if err != nil {
		return nil, err
	}

	b, err := p.bridge(dir)
	if err != nil {
		return nil, err
	}
	return &moduleEngine{bridge: b, support: p.support}, nil
}

func (p *Provider) bridge(dir string) (*bridge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.bridges[dir]; ok {
		if b.alive() {
			return b, nil
		}
		log.Warningf("bridge for %s exited, restarting", dir)
		b.close()
	}

	version, err := moduleVersion(dir)
	if err != nil {
		return nil, err
	}
	b, err := startBridge(p.nodePath, dir, version)
	if err != nil {
		return nil, err
	}
	log.Infof("started prettier %s from %s", version, dir)
	p.bridges[dir] = b
	return b, nil
}

// Close stops every bridge.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for dir, b := range p.bridges {
		errs = append(errs, b.close())
		delete(p.bridges, dir)
	}
	return errors.Join(errs...)
}
