package server

import (
	contextpkg "context"
	"errors"
	"fmt"
	"time"

	"formatls/internal/config"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Fetch requests the settings section for uri from the client.
func (s *Server) Fetch(ctx contextpkg.Context, uri string) (any, error) {
	s.mu.Lock()
	client := s.client
	section := s.config.Section
	s.mu.Unlock()
	if client == nil {
		return nil, errors.New("no client connection")
	}

	ctx, cancel := contextpkg.WithTimeout(ctx, configurationTimeout)
	defer cancel()

	var result []any
	err := client.Call(ctx, "workspace/configuration", protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{{ScopeURI: &uri, Section: &section}},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("workspace/configuration: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("client returned no configuration")
	}
	return result[0], nil
}

const configurationTimeout = 10 * time.Second

func (s *Server) workspaceDidChangeConfiguration(
	context *glsp.Context,
	params *protocol.DidChangeConfigurationParams,
) error {
	s.mu.Lock()
	section := s.config.Section
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.ConfigurationChanged(config.Section(params.Settings, section))
}

func (s *Server) workspaceDidChangeWorkspaceFolders(
	context *glsp.Context,
	params *protocol.DidChangeWorkspaceFoldersParams,
) error {
	s.mu.Lock()
	session := s.session
	client := s.client
	s.mu.Unlock()
	if session == nil || client == nil {
		return nil
	}
	// Re-requesting the whole list is simpler than replaying the delta.
	s.spawn(func() {
		s.foldersMu.Lock()
		defer s.foldersMu.Unlock()
		var folders []protocol.WorkspaceFolder
		if err := client.Call(contextpkg.Background(), "workspace/workspaceFolders", nil, &folders); err != nil {
			log.Warningf("requesting workspace folders: %v", err)
			return
		}
		session.Folders.Replace(folders)
		log.Debugf("workspace folders: %v", folders)
	})
	return nil
}
