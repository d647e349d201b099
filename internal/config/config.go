// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool            `yaml:"debug"`
	ManifestPath string          `yaml:"manifest_path"`
	Server       ServerConfig    `yaml:"server"`
	Storage      StorageConfig   `yaml:"storage"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	LLM          LLMConfig       `yaml:"llm"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	Watch        WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the audit database and index snapshot.
type StorageConfig struct {
	AuditDBPath        string `yaml:"audit_db_path"`
	VectorSnapshotPath string `yaml:"vector_snapshot_path"`
}

// EmbeddingConfig holds embedding provider settings. API keys are read from
// the environment variable named by api_key_env, never from the config file.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// APIKey resolves the provider API key from the environment.
func (e *EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// Timeout returns the request timeout as a duration.
func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// LLMConfig holds generation provider settings.
type LLMConfig struct {
	Provider       string   `yaml:"provider"`
	BaseURL        string   `yaml:"base_url"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// APIKey resolves the provider API key from the environment.
func (l *LLMConfig) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// Timeout returns the request timeout as a duration.
func (l *LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.7 when unset.
func (l *LLMConfig) TemperatureOrDefault() float64 {
	if l.Temperature != nil {
		return *l.Temperature
	}
	return 0.7
}

// RetrievalConfig holds retrieval, chunking, and abstention settings.
type RetrievalConfig struct {
	TopK                int      `yaml:"top_k"`
	Threshold           *float64 `yaml:"threshold"`
	CandidateMultiplier int      `yaml:"candidate_multiplier"`
	ChunkSize           int      `yaml:"chunk_size"`
	ChunkOverlap        int      `yaml:"chunk_overlap"`
}

// ThresholdOrDefault returns the abstention threshold; defaults to 0.35 when
// unset. An explicit 0 disables abstention.
func (r *RetrievalConfig) ThresholdOrDefault() float64 {
	if r.Threshold != nil {
		return *r.Threshold
	}
	return 0.35
}

// WatchConfig holds manifest watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// Debounce returns the watch debounce interval as a duration.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.ManifestPath = expandPath(cfg.ManifestPath, configDir)
	cfg.Storage.AuditDBPath = expandPath(cfg.Storage.AuditDBPath, configDir)
	cfg.Storage.VectorSnapshotPath = expandPath(cfg.Storage.VectorSnapshotPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
