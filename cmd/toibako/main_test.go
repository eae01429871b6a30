package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kyozai/toibako/internal/cli"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"quadratic equation", "-limit", "5"},
			expected: []string{"-limit", "5", "quadratic equation"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "quadratic equation"},
			expected: []string{"-limit", "5", "quadratic equation"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"quadratic equation"},
			expected: []string{"quadratic equation"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-fuzzy"},
			expected: []string{"-fuzzy", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQueryText(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"quadratic"}, "quadratic"},
		{"multiple words", []string{"quadratic", "equation"}, "quadratic equation"},
		{"single quoted phrase", []string{"quadratic equation"}, "quadratic equation"},
		{"trims whitespace", []string{"  quadratic  "}, "quadratic"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQueryText(tt.args); got != tt.expected {
				t.Errorf("buildQueryText(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"", nil},
		{"algebra", []string{"algebra"}},
		{"algebra,geometry", []string{"algebra", "geometry"}},
		{" algebra , geometry ,", []string{"algebra", "geometry"}},
	}
	for _, tt := range tests {
		if got := splitTags(tt.raw); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("splitTags(%q) = %v, want %v", tt.raw, got, tt.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := parseFormat("json"); err != nil || f != cli.OutputJSON {
		t.Errorf("json: %v, %v", f, err)
	}
	if f, err := parseFormat("text"); err != nil || f != cli.OutputText {
		t.Errorf("text: %v, %v", f, err)
	}
	if _, err := parseFormat("yaml"); err == nil {
		t.Error("expected an error for unknown format")
	}
}

func TestLoadConfigPrefersCwdConfig(t *testing.T) {
	dir := t.TempDir()
	content := "debug: true\nserver:\n  port: 9999\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(oldWd) }()

	cfg, path, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.Debug || cfg.Server.Port != 9999 {
		t.Errorf("cfg = %+v", cfg)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("resolved path = %q", path)
	}
}
