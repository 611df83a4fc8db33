package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"model-manager/internal/infrastructure/logger"
)

// ProviderOverride describes per-family settings loaded from the optional
// providers file. File values take precedence over environment variables;
// enabled=false removes the family even when a credential is present.
type ProviderOverride struct {
	APIKey  string
	Host    string
	Enabled bool
}

type providerConfigDocument struct {
	Providers []providerConfigEntry `yaml:"providers"`
}

type providerConfigEntry struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	Host    string `yaml:"host"`
	Enabled *bool  `yaml:"enabled"`
}

// LoadProviderOverrides parses the yaml file at the provided path.
func LoadProviderOverrides(path string) (map[string]ProviderOverride, error) {
	log := logger.GetLogger()
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read provider config %q: %w", cleanPath, err)
	}
	log.Info().Str("path", cleanPath).Msg("loading provider config file")

	var doc providerConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse provider config %q: %w", cleanPath, err)
	}

	overrides := make(map[string]ProviderOverride, len(doc.Providers))
	for _, entry := range doc.Providers {
		name := strings.ToLower(strings.TrimSpace(entry.Name))
		if name == "" {
			return nil, fmt.Errorf("provider config %q: entry with empty name", cleanPath)
		}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		overrides[name] = ProviderOverride{
			APIKey:  strings.TrimSpace(entry.APIKey),
			Host:    strings.TrimSpace(entry.Host),
			Enabled: enabled,
		}
	}
	return overrides, nil
}
