// Package config holds the server configuration and the per-document
// settings model.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
)

// Config is the server-wide configuration, passed by the client as
// initializationOptions or read from a file by the CLI.
type Config struct {
	// Section is the settings section requested from the client.
	Section string `json:"section"`
	// NodePath is the node executable used for the prettier bridge.
	NodePath string `json:"nodePath"`
	// FallbackPrettierPath is the prettier module directory used when a
	// document has no locally installed copy.
	FallbackPrettierPath string `json:"fallbackPrettierPath"`
	// Engines maps language ids to engine names. Unlisted languages use
	// DefaultEngine.
	Engines       map[string]string `json:"engines"`
	DefaultEngine string            `json:"defaultEngine"`
	// StateDir holds the support-info database. Empty means
	// $XDG_STATE_HOME/formatls.
	StateDir string `json:"stateDir"`
}

var defaultConfig = Config{
	Section:       "prettier",
	NodePath:      "node",
	Engines:       map[string]string{"go": "gofmt"},
	DefaultEngine: "prettier",
}

// Default returns a copy of the default configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.Engines = maps.Clone(defaultConfig.Engines)
	return cfg
}

// Overlay returns a copy of c with the fields present in v replaced.
func (c Config) Overlay(v any) (Config, error) {
	cfg := c
	cfg.Engines = maps.Clone(c.Engines)
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// EngineFor returns the engine name configured for a language id.
func (c Config) EngineFor(languageID string) string {
	if name, ok := c.Engines[languageID]; ok {
		return name
	}
	return c.DefaultEngine
}
