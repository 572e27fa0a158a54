package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// LoadFromPath reads a settings file (YAML or JSON) and returns the
// normalized Settings. Format is detected by extension (.yaml/.yml → YAML,
// .json → JSON) or by content (first non-whitespace char).
func LoadFromPath(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses settings from bytes. ext is the file extension (e.g. ".json",
// ".yaml") for format hint; empty = detect from content.
func Load(data []byte, ext string) (*Settings, error) {
	s, err := parse(data, ext)
	if err != nil {
		return nil, err
	}
	if err := s.Normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

func parse(data []byte, ext string) (*Settings, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == ".yaml" {
		var s Settings
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings yaml: %w", err)
		}
		return &s, nil
	}
	if ext == ".json" {
		var s Settings
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings json: %w", err)
		}
		return &s, nil
	}
	// Detect: try JSON first (starts with {), else YAML
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var s Settings
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse settings json: %w", err)
		}
		return &s, nil
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings yaml: %w", err)
	}
	return &s, nil
}
