package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Router picks a provider by the document's language id.
type Router struct {
	route     func(languageID string) string
	providers map[string]Provider
}

// NewRouter creates a Router. route maps a language id to a provider name.
func NewRouter(route func(languageID string) string, providers map[string]Provider) *Router {
	return &Router{route: route, providers: providers}
}

func (r *Router) Load(ctx context.Context, target Target, opts LoadOptions) (Engine, error) {
	name := r.route(target.LanguageID)
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no engine named %q for language %q", ErrNotFound, name, target.LanguageID)
	}
	return p.Load(ctx, target, opts)
}

// Close closes every provider that holds resources.
func (r *Router) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
