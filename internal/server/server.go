// Package server exposes a formatter Session over the Language Server
// Protocol.
package server

import (
	"errors"
	"sync"

	"formatls/internal/config"
	"formatls/internal/engine"
	"formatls/internal/formatter"
	"formatls/internal/metrics"
	"formatls/internal/scheduler"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const Name = "formatls"

var log = commonlog.GetLogger("formatls.server")

type Options struct {
	// Config is the base configuration. initializationOptions are laid
	// over it. A zero Config means config.Default().
	Config  config.Config
	Version string
	Metrics *metrics.Metrics
	// Provider replaces the engines built from the configuration.
	Provider engine.Provider
}

type Server struct {
	opts    Options
	handler *protocol.Handler

	// background tracks work that waits on the client outside the read loop.
	background sync.WaitGroup
	foldersMu  sync.Mutex

	mu           sync.Mutex
	config       config.Config
	capabilities protocol.ClientCapabilities
	client       caller
	session      *formatter.Session
	engines      *Engines
	scheduler    *scheduler.Scheduler
}

func NewServer(opts Options) *Server {
	if opts.Config.Section == "" {
		opts.Config = config.Default()
	}
	s := &Server{opts: opts, config: opts.Config}
	s.handler = &protocol.Handler{
		Initialize:                         s.initialize,
		Initialized:                        s.initialized,
		Shutdown:                           s.shutdown,
		SetTrace:                           s.setTrace,
		TextDocumentDidOpen:                s.textDocumentDidOpen,
		TextDocumentDidChange:              s.textDocumentDidChange,
		TextDocumentDidClose:               s.textDocumentDidClose,
		TextDocumentFormatting:             s.textDocumentFormatting,
		TextDocumentRangeFormatting:        s.textDocumentRangeFormatting,
		WorkspaceDidChangeConfiguration:    s.workspaceDidChangeConfiguration,
		WorkspaceDidChangeWorkspaceFolders: s.workspaceDidChangeWorkspaceFolders,
	}
	return s
}

// Session returns the session created by initialize, or nil before it.
func (s *Server) Session() *formatter.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Server) spawn(fn func()) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		fn()
	}()
}

// Close stops background tasks and releases the engines built by
// initialize.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.scheduler != nil {
		s.scheduler.StopScheduler()
		s.scheduler = nil
	}
	if s.engines != nil {
		errs = append(errs, s.engines.Close())
		s.engines = nil
	}
	return errors.Join(errs...)
}
