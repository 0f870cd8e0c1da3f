package config_test

import (
	"testing"

	"formatls/internal/config"

	"github.com/google/go-cmp/cmp"
)

func TestParseDefaults(t *testing.T) {
	s, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if !s.Enable || !s.UseEditorConfig || s.IgnorePath != config.DefaultIgnorePath || s.PackageManager != "npm" {
		t.Errorf("Parse(nil) = %+v, want defaults", s.ServerSettings)
	}
	if len(s.Options) != 0 {
		t.Errorf("Options = %v, want empty", s.Options)
	}
}

func TestParseSplitsServerKeys(t *testing.T) {
	s, err := config.Parse(map[string]any{
		"enable":           false,
		"disableLanguages": []string{"markdown"},
		"requireConfig":    true,
		"tabWidth":         4,
		"singleQuote":      true,
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Enable || !s.RequireConfig {
		t.Errorf("ServerSettings = %+v", s.ServerSettings)
	}
	want := map[string]any{"tabWidth": float64(4), "singleQuote": true}
	if diff := cmp.Diff(want, s.Options); diff != "" {
		t.Errorf("Options mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsNonObjects(t *testing.T) {
	if _, err := config.Parse("prettier"); err == nil {
		t.Error("expected an error for a string settings value")
	}
}

func TestDisabled(t *testing.T) {
	s, _ := config.Parse(map[string]any{"disableLanguages": []string{"markdown"}})
	if !s.Disabled("markdown") {
		t.Error("markdown should be disabled")
	}
	if s.Disabled("javascript") {
		t.Error("javascript should be enabled")
	}

	off, _ := config.Parse(map[string]any{"enable": false})
	if !off.Disabled("javascript") {
		t.Error("enable=false should disable every language")
	}
}

func TestSection(t *testing.T) {
	payload := map[string]any{
		"prettier": map[string]any{"semi": false},
		"editor":   map[string]any{"format": map[string]any{"enable": true}},
	}

	if diff := cmp.Diff(map[string]any{"semi": false}, config.Section(payload, "prettier")); diff != "" {
		t.Errorf("Section(prettier) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"enable": true}, config.Section(payload, "editor.format")); diff != "" {
		t.Errorf("Section(editor.format) mismatch (-want +got):\n%s", diff)
	}
	if got := config.Section(payload, "missing"); got != nil {
		t.Errorf("Section(missing) = %v, want nil", got)
	}
	if got := config.Section(nil, "prettier"); got != nil {
		t.Errorf("Section(nil) = %v, want nil", got)
	}
}
