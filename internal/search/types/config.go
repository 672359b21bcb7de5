package types

import "time"

// EngineKind identifies the upstream API an engine talks to
type EngineKind string

const (
	KindSearXNG EngineKind = "searxng"
	KindTavily  EngineKind = "tavily"
)

// EngineConfig represents an upstream engine configuration. Name is the
// engine name queries refer to in SearchQuery.Engines.
type EngineConfig struct {
	Name     string     `mapstructure:"name" json:"name" yaml:"name"`
	Kind     EngineKind `mapstructure:"kind" json:"kind" yaml:"kind"`
	Category string     `mapstructure:"category" json:"category,omitempty" yaml:"category,omitempty"`

	// API settings
	APIHost string `mapstructure:"api_host" json:"api_host" yaml:"api_host"`
	APIKey  string `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// SearXNG Basic Auth
	BasicAuthUsername string `mapstructure:"basic_auth_username" json:"basic_auth_username,omitempty" yaml:"basic_auth_username,omitempty"`
	BasicAuthPassword string `mapstructure:"basic_auth_password" json:"basic_auth_password,omitempty" yaml:"basic_auth_password,omitempty"`

	// Optional settings
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries,omitempty" yaml:"max_retries,omitempty"` // default: 3
	RateLimit  float64       `mapstructure:"rate_limit" json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`    // requests per second, 0 = unlimited
}

// Validate validates the engine configuration
func (c *EngineConfig) Validate() error {
	if c.Kind == "" {
		return ErrInvalidEngineID
	}
	if c.Name == "" {
		return ErrInvalidEngineName
	}
	if c.APIHost == "" {
		return ErrInvalidAPIHost
	}

	switch c.Kind {
	case KindSearXNG:
		// SearXNG doesn't require API key but may need basic auth
		if c.BasicAuthUsername != "" && c.BasicAuthPassword == "" {
			return ErrMissingBasicAuthPassword
		}
	default:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	}

	return nil
}
