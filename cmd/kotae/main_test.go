package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/kotae/internal/cli"
)

func TestAskArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"what is the refund window", "-k", "8"},
			expected: []string{"-k", "8", "what is the refund window"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-k", "8", "what is the refund window"},
			expected: []string{"-k", "8", "what is the refund window"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"what is the refund window"},
			expected: []string{"what is the refund window"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"refund", "window", "-role", "support"},
			expected: []string{"-role", "support", "refund", "window"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := askArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("askArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"refunds"}, "refunds"},
		{"multiple words", []string{"refund", "window"}, "refund window"},
		{"single quoted phrase", []string{"refund window"}, "refund window"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuestion(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuestion(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestOutputFormatFromFlag(t *testing.T) {
	if f, err := outputFormatFromFlag("json"); err != nil || f != cli.OutputJSON {
		t.Errorf("json: got %q, %v", f, err)
	}
	if f, err := outputFormatFromFlag("text"); err != nil || f != cli.OutputText {
		t.Errorf("text: got %q, %v", f, err)
	}
	if _, err := outputFormatFromFlag("yaml"); err == nil {
		t.Error("unknown format should error")
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
manifest_path: "docs.yaml"
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
manifest_path: "docs.yaml"
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}
