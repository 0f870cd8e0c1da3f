// Package formatter answers formatting requests. A Session owns every piece
// of state a request touches: open documents, workspace folders, the
// settings cache and the engine cache.
package formatter

import (
	"context"
	"time"

	"formatls/internal/document"
	"formatls/internal/engine"
	"formatls/internal/metrics"
	"formatls/internal/settings"
	"formatls/internal/workspace"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("formatls.formatter")

type Session struct {
	Documents *document.Store
	Folders   *workspace.Folders
	Settings  *settings.Cache
	Engines   *engine.Cache

	metrics *metrics.Metrics
}

// NewSession creates a session loading engines from provider. A nil fetcher
// starts the settings cache in push mode. m may be nil.
func NewSession(provider engine.Provider, fetcher settings.Fetcher, m *metrics.Metrics) *Session {
	s := &Session{
		Documents: document.NewStore(),
		Folders:   workspace.NewFolders(nil),
		Settings:  settings.NewCache(fetcher),
		Engines:   engine.NewCache(provider),
		metrics:   m,
	}
	if m != nil {
		s.Settings.OnFetch = m.SettingsFetch
		s.Engines.OnLoad = m.EngineLoad
	}
	return s
}

// Sizes reports how many documents have cached settings and engines.
func (s *Session) Sizes() (settings, engines int) {
	return s.Settings.Len(), s.Engines.Len()
}

// DocumentClosed forgets everything cached for uri.
func (s *Session) DocumentClosed(uri string) {
	s.Documents.Close(uri)
	s.Settings.Forget(uri)
	s.Engines.Delete(uri)
}

// ConfigurationChanged replaces the pushed settings with raw, the settings
// section of a configuration change, and drops every cached engine.
func (s *Session) ConfigurationChanged(raw any) error {
	err := s.Settings.SetGlobal(raw)
	s.Engines.Clear()
	return err
}

// Format answers a formatting request. Conditions under which the document
// cannot or should not be formatted yield no edits and no error. Any other
// failure is returned as a *RequestError.
func (s *Session) Format(ctx context.Context, req Request) ([]Edit, error) {
	start := time.Now()
	edits, outcome, err := s.format(ctx, req)
	if err != nil {
		outcome = metrics.OutcomeError
		log.Errorf("formatting %s failed: %v", req.URI, err)
		err = newRequestError(err)
	}
	if s.metrics != nil {
		s.metrics.FormatRequest(outcome, time.Since(start))
	}
	return edits, err
}
