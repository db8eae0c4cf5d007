package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigLoader defines the interface for loading configs
type ConfigLoader interface {
	Load(path string) (interface{}, error)
	Parse(data []byte) (interface{}, error)
}

type ValidationError struct {
	Field   string
	Message string
}

type Validator interface {
	Validate(config interface{}) []ValidationError
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DefaultValueSetter Handles the interface for setting default values
type DefaultValueSetter interface {
	SetDefaults(config interface{})
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	expanded := os.Expand(string(data), os.Getenv)
	return []byte(expanded)
}

// ProfileLoader uses ConfigLoader for client Profile configurations
type ProfileLoader struct {
	expander      VariableExpander
	validators    []Validator
	defaultSetter DefaultValueSetter
}

// NewProfileLoader creates a new ProfileLoader with the given components
func NewProfileLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *ProfileLoader {
	return &ProfileLoader{
		expander:      expander,
		validators:    validators,
		defaultSetter: defaultSetter,
	}
}

// NewDefaultLoader wires the standard expander, defaults and validators.
func NewDefaultLoader() *ProfileLoader {
	return NewProfileLoader(
		&EnvExpander{},
		&ProfileDefaults{},
		&RequiredFieldValidator{},
		&AuthValidator{},
	)
}

// Load a new profile config from a YAML file
func (l *ProfileLoader) Load(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses a yaml config
func (l *ProfileLoader) Parse(data []byte) (interface{}, error) {
	// Expand variables if an expander is configured
	if l.expander != nil {
		data = l.expander.Expand(data)
	}

	// Unmarshal YAML data into Profile struct
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Set default values if a default setter is configured
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(&profile)
	}

	// Validate the profile configuration
	var allErrors []ValidationError
	for _, validator := range l.validators {
		errors := validator.Validate(&profile)
		allErrors = append(allErrors, errors...)
	}

	// Return any validation errors if there are any
	if len(allErrors) > 0 {
		return nil, fmt.Errorf("validation errors: %v", allErrors)
	}

	return &profile, nil
}

// ProfileDefaults implements DefaultValueSetter for Profile
type ProfileDefaults struct{}

// SetDefaults sets default values for Profile
func (d *ProfileDefaults) SetDefaults(config interface{}) {
	profile, ok := config.(*Profile)
	if !ok {
		return
	}

	if profile.Defaults == nil {
		profile.Defaults = &Defaults{}
	}
	if profile.Defaults.Timeout == 0 {
		profile.Defaults.Timeout = 30 * time.Second
	}
	if profile.Defaults.FetchPolicy == "" {
		profile.Defaults.FetchPolicy = "cache-first"
	}

	if profile.Cache == nil {
		profile.Cache = &Cache{}
	}
	if profile.Cache.MaxEntries == 0 {
		profile.Cache.MaxEntries = 10_000
	}
	if profile.Cache.MaxCost == 0 {
		profile.Cache.MaxCost = 64 << 20
	}

	if profile.Retry != nil {
		if profile.Retry.BaseBackoff == 0 {
			profile.Retry.BaseBackoff = 500 * time.Millisecond
		}
		if profile.Retry.MaxBackoff == 0 {
			profile.Retry.MaxBackoff = 30 * time.Second
		}
		if len(profile.Retry.RetryableStatuses) == 0 {
			profile.Retry.RetryableStatuses = []int{429, 500, 502, 503, 504}
		}
	}
}

// RequiredFieldValidator validates required fields for a client profile
type RequiredFieldValidator struct{}

// Validate checks that all required fields are present
func (v *RequiredFieldValidator) Validate(config interface{}) []ValidationError {
	profile, ok := config.(*Profile)
	if !ok {
		return []ValidationError{{Field: "config", Message: "not a Profile"}}
	}

	var errors []ValidationError

	if profile.Name == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "is required"})
	}

	if profile.Endpoint == "" {
		errors = append(errors, ValidationError{Field: "endpoint", Message: "is required"})
	}

	return errors
}

// AuthValidator validates auth configuration
type AuthValidator struct{}

// Validate checks that auth configuration is valid for its declared type
func (v *AuthValidator) Validate(config interface{}) []ValidationError {
	profile, ok := config.(*Profile)
	if !ok {
		return []ValidationError{{Field: "config", Message: "not a Profile"}}
	}

	var errors []ValidationError

	// Skip validation if auth is not configured
	if profile.Auth == nil {
		return errors
	}

	switch profile.Auth.Type {
	case AuthTypeBasic:
		if profile.Auth.Basic == nil || profile.Auth.Basic.Username == "" {
			errors = append(errors, ValidationError{Field: "auth.basic.username", Message: "is required for basic auth"})
		}
	case AuthTypeBearer:
		if profile.Auth.Bearer == nil || profile.Auth.Bearer.Token == "" {
			errors = append(errors, ValidationError{Field: "auth.bearer.token", Message: "is required for bearer auth"})
		}
	case AuthTypeAPIKey:
		if profile.Auth.APIKey == nil || profile.Auth.APIKey.Value == "" {
			errors = append(errors, ValidationError{Field: "auth.api_key.value", Message: "is required for api_key auth"})
		}
	case AuthTypeOAuth2:
		if profile.Auth.OAuth2 == nil {
			errors = append(errors, ValidationError{Field: "auth.oauth2", Message: "is required for oauth2 auth"})
		} else {
			if profile.Auth.OAuth2.TokenURL == "" {
				errors = append(errors, ValidationError{Field: "auth.oauth2.token_url", Message: "is required for oauth2 auth"})
			}
			if profile.Auth.OAuth2.ClientID == "" {
				errors = append(errors, ValidationError{Field: "auth.oauth2.client_id", Message: "is required for oauth2 auth"})
			}
		}
	default:
		errors = append(errors, ValidationError{Field: "auth.type", Message: fmt.Sprintf("unsupported auth type: %s", profile.Auth.Type)})
	}

	return errors
}
