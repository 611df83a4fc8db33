// Package providers assembles the concrete backend families into a
// registry, one subpackage per family.
package providers

import (
	"fmt"

	"model-manager/internal/config"
	"model-manager/internal/domain/provider"
	"model-manager/internal/infrastructure/providers/anthropic"
	"model-manager/internal/infrastructure/providers/google"
	"model-manager/internal/infrastructure/providers/mistral"
	"model-manager/internal/infrastructure/providers/ollama"
	"model-manager/internal/infrastructure/providers/openai"
)

// BuildRegistry constructs one backend per configured family, in the
// order the settings arrive.
func BuildRegistry(settings []config.ProviderSettings) (*provider.Registry, error) {
	backends := make([]provider.Provider, 0, len(settings))
	for _, s := range settings {
		backend, err := build(s)
		if err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}
	return provider.NewRegistry(backends...)
}

func build(s config.ProviderSettings) (provider.Provider, error) {
	switch s.Name {
	case "ollama":
		return ollama.New(s.Host, s.Timeout), nil
	case "openai":
		return openai.New(s.APIKey, s.OrgID), nil
	case "anthropic":
		return anthropic.New(s.APIKey), nil
	case "google":
		return google.New(s.APIKey), nil
	case "mistral":
		return mistral.New(s.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider family %q", s.Name)
	}
}
