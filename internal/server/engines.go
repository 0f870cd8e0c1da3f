package server

import (
	"errors"
	"path/filepath"

	"formatls/internal/config"
	"formatls/internal/engine"
	"formatls/internal/engine/gofmt"
	"formatls/internal/engine/prettier"
	"formatls/internal/rcfile"
	"formatls/internal/store"
)

// Engines is the set of engine providers built from a configuration,
// routed by language id.
type Engines struct {
	Provider *engine.Router

	resolver *rcfile.Resolver
	store    *store.Store
}

// NewEngines creates the engines named in cfg. Support info is persisted in
// the state directory when it is usable.
func NewEngines(cfg config.Config) *Engines {
	e := &Engines{resolver: rcfile.NewResolver()}

	var support prettier.SupportCache
	if dir, err := stateDir(cfg.StateDir); err != nil {
		log.Warningf("support info will not be persisted: %v", err)
	} else if db, err := store.Open(filepath.Join(dir, "support.db")); err != nil {
		log.Warningf("support info will not be persisted: %v", err)
	} else {
		e.store = db
		support = db
	}

	e.Provider = engine.NewRouter(cfg.EngineFor, map[string]engine.Provider{
		"prettier": prettier.NewProvider(cfg.NodePath, cfg.FallbackPrettierPath, support),
		"gofmt":    gofmt.NewProvider(e.resolver),
	})
	return e
}

// Store returns the support info database, or nil.
func (e *Engines) Store() *store.Store {
	return e.store
}

func (e *Engines) Close() error {
	errs := []error{e.Provider.Close(), e.resolver.Close()}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}
