// Package manifest parses declarative document manifests driving batch ingestion.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/models"
)

// Load reads the manifest at path and returns its document descriptors in
// declaration order. Two serializations are recognized by extension: JSON
// (.json) and YAML (.yaml/.yml). The entry list is either the top-level value
// or nested under a "documents" key. Each entry is either a bare path string
// or an object with optional id/title/tags/allowed_roles. Returns
// models.ErrNotFound when the file does not exist and
// models.ErrUnsupportedFormat for any other extension.
func Load(path string) ([]models.DocumentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("manifest extension %q: %w", filepath.Ext(path), models.ErrUnsupportedFormat)
	}
}

func parseJSON(data []byte) ([]models.DocumentDescriptor, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		var root struct {
			Documents []json.RawMessage `json:"documents"`
		}
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		entries = root.Documents
	}
	docs := make([]models.DocumentDescriptor, 0, len(entries))
	for _, raw := range entries {
		var path string
		if err := json.Unmarshal(raw, &path); err == nil {
			docs = append(docs, models.DocumentDescriptor{Path: path})
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		docs = append(docs, descriptorFromMap(entry))
	}
	return docs, nil
}

func parseYAML(data []byte) ([]models.DocumentDescriptor, error) {
	var entries []yaml.Node
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var root struct {
			Documents []yaml.Node `yaml:"documents"`
		}
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		entries = root.Documents
	}
	docs := make([]models.DocumentDescriptor, 0, len(entries))
	for _, node := range entries {
		if node.Kind == yaml.ScalarNode {
			docs = append(docs, models.DocumentDescriptor{Path: node.Value})
			continue
		}
		var entry map[string]interface{}
		if err := node.Decode(&entry); err != nil {
			continue
		}
		docs = append(docs, descriptorFromMap(entry))
	}
	return docs, nil
}

// descriptorFromMap builds a descriptor from a rich manifest entry. Optional
// fields that are missing or of the wrong type coerce to their zero value so
// one malformed field never fails the whole load.
func descriptorFromMap(entry map[string]interface{}) models.DocumentDescriptor {
	return models.DocumentDescriptor{
		ID:           stringField(entry, "id"),
		Title:        stringField(entry, "title"),
		Path:         stringField(entry, "path"),
		Tags:         stringSliceField(entry, "tags"),
		AllowedRoles: stringSliceField(entry, "allowed_roles"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
