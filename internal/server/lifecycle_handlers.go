package server

import (
	contextpkg "context"
	"time"

	"formatls/internal/formatter"
	"formatls/internal/scheduler"
	"formatls/internal/settings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	supportInfoTTL = 30 * 24 * time.Hour
	pruneInterval  = time.Hour
	gaugeInterval  = 15 * time.Second
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := s.opts.Config.Overlay(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	log.Infof("config: %+v", cfg)

	provider := s.opts.Provider
	var engines *Engines
	if provider == nil {
		engines = NewEngines(cfg)
		provider = engines.Provider
	}

	var fetcher settings.Fetcher
	if supportsConfiguration(params.Capabilities) {
		fetcher = s
	}
	session := formatter.NewSession(provider, fetcher, s.opts.Metrics)
	session.Folders.Replace(params.WorkspaceFolders)

	sched := scheduler.NewScheduler(8)
	sched.RunScheduler()
	if engines != nil && engines.Store() != nil {
		db := engines.Store()
		sched.SchedulePeriodicTask(pruneInterval, scheduler.Task{
			Name: "prune support info",
			Execute: func() error {
				n, err := db.Prune(time.Now().Add(-supportInfoTTL))
				if n > 0 {
					log.Infof("pruned %d support info entries", n)
				}
				return err
			},
		})
	}
	if m := s.opts.Metrics; m != nil {
		sched.SchedulePeriodicTask(gaugeInterval, scheduler.Task{
			Name: "cache gauges",
			Execute: func() error {
				m.SetCacheSizes(session.Sizes())
				return nil
			},
		})
	}

	s.mu.Lock()
	s.config = cfg
	s.capabilities = params.Capabilities
	s.session = session
	s.engines = engines
	s.scheduler = sched
	s.mu.Unlock()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	version := s.opts.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	s.mu.Lock()
	caps := s.capabilities
	section := s.config.Section
	client := s.client
	s.mu.Unlock()

	log.Info("client initialized")
	if client == nil || caps.Workspace == nil || caps.Workspace.DidChangeConfiguration == nil ||
		caps.Workspace.DidChangeConfiguration.DynamicRegistration == nil ||
		!*caps.Workspace.DidChangeConfiguration.DynamicRegistration {
		return nil
	}
	// The client answers on the read loop this notification is running on.
	s.spawn(func() {
		err := client.Call(contextpkg.Background(), "client/registerCapability", protocol.RegistrationParams{
			Registrations: []protocol.Registration{{
				ID:              "workspace/didChangeConfiguration",
				Method:          "workspace/didChangeConfiguration",
				RegisterOptions: map[string]any{"section": section},
			}},
		}, nil)
		if err != nil {
			log.Warningf("registering for configuration changes: %v", err)
		}
	})
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return s.Close()
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func supportsConfiguration(caps protocol.ClientCapabilities) bool {
	return caps.Workspace != nil && caps.Workspace.Configuration != nil && *caps.Workspace.Configuration
}
