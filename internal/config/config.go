package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for model-manager.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// OpenAI
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIOrgID  string `env:"OPENAI_ORG_ID"`

	// Anthropic
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	// Google
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`

	// Mistral
	MistralAPIKey string `env:"MISTRAL_API_KEY"`

	// Ollama (local)
	OllamaHost    string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaTimeout time.Duration `env:"OLLAMA_TIMEOUT" envDefault:"120s"`

	// Dispatch
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY" envDefault:"8s"`

	// Cost tracking
	EnableCostTracking bool `env:"ENABLE_COST_TRACKING" envDefault:"true"`

	// Provider bootstrap file (optional, overrides environment credentials)
	ProviderConfigFile string `env:"PROVIDER_CONFIG_FILE"`
	providerOverrides  map[string]ProviderOverride

	// Secret for encrypting stored provider credentials at rest
	CredentialSecret string `env:"CREDENTIAL_SECRET" envDefault:"model-manager-dev-secret"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"model-manager"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"models"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`
}

// ProviderSettings is the resolved configuration for one backend family.
// A family is registered only when its settings are complete (credential
// present for cloud families, host present for ollama).
type ProviderSettings struct {
	Name    string
	APIKey  string
	OrgID   string
	Host    string
	Timeout time.Duration
}

// Family order is fixed so the registry enumerates providers deterministically.
var providerFamilies = []string{"ollama", "openai", "anthropic", "google", "mistral"}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.OllamaHost != "" {
		if _, err := url.ParseRequestURI(cfg.OllamaHost); err != nil {
			return nil, fmt.Errorf("invalid OLLAMA_HOST: %w", err)
		}
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1, got %d", cfg.MaxRetries)
	}

	if path := strings.TrimSpace(cfg.ProviderConfigFile); path != "" {
		overrides, err := LoadProviderOverrides(path)
		if err != nil {
			return nil, fmt.Errorf("load provider config: %w", err)
		}
		cfg.providerOverrides = overrides
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return cfg, nil
}

// ProviderConfigs returns the settings for every configured backend family
// in registration order. Families without a credential (or host) are absent.
func (c *Config) ProviderConfigs() []ProviderSettings {
	return c.ProviderConfigsWithFallback(nil)
}

// ProviderConfigsWithFallback additionally consults lookup for cloud
// families that carry no credential in the environment, so keys stored in
// the credential store can activate a provider. lookup may be nil.
func (c *Config) ProviderConfigsWithFallback(lookup func(family string) string) []ProviderSettings {
	configs := make([]ProviderSettings, 0, len(providerFamilies))
	for _, family := range providerFamilies {
		settings, ok := c.settingsFor(family)
		if !ok && lookup != nil && family != "ollama" && !c.disabledByOverride(family) {
			if key := lookup(family); key != "" {
				settings, ok = ProviderSettings{Name: family, APIKey: key, Timeout: c.RequestTimeout}, true
			}
		}
		if !ok {
			continue
		}
		configs = append(configs, settings)
	}
	return configs
}

func (c *Config) disabledByOverride(family string) bool {
	override, ok := c.providerOverrides[family]
	return ok && !override.Enabled
}

func (c *Config) settingsFor(family string) (ProviderSettings, bool) {
	s := ProviderSettings{Name: family, Timeout: c.RequestTimeout}

	switch family {
	case "ollama":
		s.Host = c.OllamaHost
		s.Timeout = c.OllamaTimeout
	case "openai":
		s.APIKey = c.OpenAIAPIKey
		s.OrgID = c.OpenAIOrgID
	case "anthropic":
		s.APIKey = c.AnthropicAPIKey
	case "google":
		s.APIKey = c.GoogleAPIKey
	case "mistral":
		s.APIKey = c.MistralAPIKey
	default:
		return ProviderSettings{}, false
	}

	if override, ok := c.providerOverrides[family]; ok {
		if !override.Enabled {
			return ProviderSettings{}, false
		}
		if override.APIKey != "" {
			s.APIKey = override.APIKey
		}
		if override.Host != "" {
			s.Host = override.Host
		}
	}

	if family == "ollama" {
		return s, s.Host != ""
	}
	return s, s.APIKey != ""
}
