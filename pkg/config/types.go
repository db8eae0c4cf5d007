package config

import "time"

// Profile represents the full config for one GraphQL client
type Profile struct {
	Name        string            `yaml:"name"`                  // Required: Unique identifier
	Description string            `yaml:"description,omitempty"` // Optional description
	Endpoint    string            `yaml:"endpoint"`              // Required GraphQL endpoint URL
	Headers     map[string]string `yaml:"headers,omitempty"`     // HTTP headers sent with every operation
	Auth        *Auth             `yaml:"auth,omitempty"`        // Optional authentication
	Retry       *Retry            `yaml:"retry,omitempty"`       // Optional retry behaviour
	Cache       *Cache            `yaml:"cache,omitempty"`       // Optional result cache sizing
	Defaults    *Defaults         `yaml:"defaults,omitempty"`    // Optional per-binding defaults
}

// Auth defines auth methods.
type Auth struct {
	Type   AuthType    `yaml:"type"`              // Required authentication type
	Basic  *BasicAuth  `yaml:"basic,omitempty"`   // Basic authentication
	Bearer *BearerAuth `yaml:"bearer,omitempty"`  // Bearer token authentication
	APIKey *APIKeyAuth `yaml:"api_key,omitempty"` // API key authentication
	OAuth2 *OAuth2Auth `yaml:"oauth2,omitempty"`  // OAuth2 authentication
}

// AuthType defines current supported authentication types
type AuthType string

const (
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeOAuth2 AuthType = "oauth2"
)

// BasicAuth contains credentials for HTTP basic auth
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BearerAuth contains a static bearer token
type BearerAuth struct {
	Token string `yaml:"token"`
}

// APIKeyAuth contains API key details
type APIKeyAuth struct {
	Header     string `yaml:"header,omitempty"`      // Header name
	QueryParam string `yaml:"query_param,omitempty"` // Query parameter name
	Value      string `yaml:"value"`                 // API key value
}

// OAuth2Auth contains OAuth2 auth details
type OAuth2Auth struct {
	TokenURL      string            `yaml:"token_url"`
	ClientID      string            `yaml:"client_id"`
	ClientSecret  string            `yaml:"client_secret"`
	Scope         string            `yaml:"scope,omitempty"`
	ExtraParams   map[string]string `yaml:"extra_params,omitempty"`
	RefreshBefore int               `yaml:"refresh_before,omitempty"` // Seconds before expiry to refresh
}

// Retry configures the retrying HTTP transport
type Retry struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseBackoff       time.Duration `yaml:"base_backoff,omitempty"`
	MaxBackoff        time.Duration `yaml:"max_backoff,omitempty"`
	RetryableStatuses []int         `yaml:"retryable_statuses,omitempty"`
}

// Cache configures the in-memory result cache
type Cache struct {
	MaxEntries int64 `yaml:"max_entries,omitempty"` // counter sizing hint
	MaxCost    int64 `yaml:"max_cost,omitempty"`    // total bytes of cached result data
}

// Defaults holds per-binding knobs a profile can preset
type Defaults struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty"` // default poll interval for watched queries
	FetchPolicy  string        `yaml:"fetch_policy,omitempty"`  // cache-first or network-only
	Timeout      time.Duration `yaml:"timeout,omitempty"`       // HTTP client timeout
}
