package config

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
)

// DefaultIgnorePath is the ignore file looked up when ignorePath is unset.
const DefaultIgnorePath = ".formatignore"

// ServerSettings are the settings consumed by the server itself. They are
// never passed to the engine.
type ServerSettings struct {
	Enable               bool     `json:"enable"`
	DisableLanguages     []string `json:"disableLanguages"`
	PrettierPath         string   `json:"prettierPath"`
	IgnorePath           string   `json:"ignorePath"`
	ConfigPath           string   `json:"configPath"`
	WithNodeModules      bool     `json:"withNodeModules"`
	RequireConfig        bool     `json:"requireConfig"`
	UseEditorConfig      bool     `json:"useEditorConfig"`
	OnlyUseLocalVersion  bool     `json:"onlyUseLocalVersion"`
	ResolveGlobalModules bool     `json:"resolveGlobalModules"`
	PackageManager       string   `json:"packageManager"`
}

// serverKeys lists the JSON names of ServerSettings.
var serverKeys = []string{
	"enable",
	"disableLanguages",
	"prettierPath",
	"ignorePath",
	"configPath",
	"withNodeModules",
	"requireConfig",
	"useEditorConfig",
	"onlyUseLocalVersion",
	"resolveGlobalModules",
	"packageManager",
}

var defaultServerSettings = ServerSettings{
	Enable:          true,
	IgnorePath:      DefaultIgnorePath,
	UseEditorConfig: true,
	PackageManager:  "npm",
}

// Settings is the resolved settings snapshot for one document.
type Settings struct {
	ServerSettings
	// Options holds every key that is not a server setting, verbatim.
	Options map[string]any
}

// Parse splits a raw settings object into server settings and engine
// options. A nil object yields the defaults.
func Parse(v any) (*Settings, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	s := &Settings{ServerSettings: defaultServerSettings}
	if err := json.Unmarshal(data, &s.ServerSettings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("settings must be an object: %w", err)
	}
	for _, key := range serverKeys {
		delete(raw, key)
	}
	s.Options = raw
	return s, nil
}

// Disabled reports whether formatting is off for a language.
func (s *Settings) Disabled(languageID string) bool {
	return !s.Enable || slices.Contains(s.DisableLanguages, languageID)
}

// Section extracts a settings section from a workspace/didChangeConfiguration
// payload. name is a gjson path, so nested sections use dots.
func Section(payload any, name string) any {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	result := gjson.GetBytes(data, name)
	if !result.Exists() {
		return nil
	}
	return result.Value()
}
