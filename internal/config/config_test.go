package config_test

import (
	"strings"
	"testing"

	"formatls/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Default().Overlay(nil)
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	if cfg.Section != "prettier" || cfg.NodePath != "node" {
		t.Errorf("Overlay(nil) = %+v, want defaults", cfg)
	}
	if got := cfg.EngineFor("go"); got != "gofmt" {
		t.Errorf("EngineFor(go) = %q, want gofmt", got)
	}
	if got := cfg.EngineFor("typescript"); got != "prettier" {
		t.Errorf("EngineFor(typescript) = %q, want prettier", got)
	}
}

func TestOverlayOverrides(t *testing.T) {
	cfg, err := config.Default().Overlay(map[string]any{
		"section": "formatls",
		"engines": map[string]any{"gomod": "gofmt"},
	})
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	if cfg.Section != "formatls" {
		t.Errorf("Section = %q, want formatls", cfg.Section)
	}
	if cfg.EngineFor("gomod") != "gofmt" || cfg.EngineFor("go") != "gofmt" {
		t.Errorf("Engines = %v, want gomod and go routed to gofmt", cfg.Engines)
	}

	// The defaults must not have been mutated by the previous load.
	if _, ok := config.Default().Engines["gomod"]; ok {
		t.Error("Overlay() leaked into the default config")
	}
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := config.LoadFromJSON(strings.NewReader(`{"nodePath": "/opt/node/bin/node"}`))
	if err != nil {
		t.Fatalf("LoadFromJSON() error = %v", err)
	}
	if cfg.NodePath != "/opt/node/bin/node" || cfg.Section != "prettier" {
		t.Errorf("LoadFromJSON() = %+v", cfg)
	}

	if _, err := config.LoadFromJSON(strings.NewReader(`{`)); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}

func TestOverlay(t *testing.T) {
	base := config.Default()
	base.StateDir = "/var/lib/formatls"

	cfg, err := base.Overlay(map[string]any{"fallbackPrettierPath": "/opt/prettier"})
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	if cfg.StateDir != "/var/lib/formatls" || cfg.FallbackPrettierPath != "/opt/prettier" {
		t.Errorf("Overlay() = %+v", cfg)
	}

	same, err := base.Overlay(nil)
	if err != nil {
		t.Fatalf("Overlay(nil) error = %v", err)
	}
	if same.StateDir != base.StateDir {
		t.Errorf("Overlay(nil) = %+v", same)
	}

	if _, err := base.Overlay([]any{1}); err == nil {
		t.Error("expected an error for a non-object")
	}
}
