package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/graphbind-io/graphbind/pkg/errors"
)

// TokenRefreshError represents a token refresh failure
type TokenRefreshError struct {
	Cause error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Cause)
}

// Unwrap exposes both the underlying cause and the ErrAuthentication
// sentinel, so errors.Is works against either.
func (e *TokenRefreshError) Unwrap() []error {
	return []error{errors.ErrAuthentication, e.Cause}
}

// OAuth2Auth implements Handler for OAuth 2.0 client-credentials auth.
// Tokens are fetched lazily and refreshed before expiry.
type OAuth2Auth struct {
	TokenURL      string
	ClientID      string
	ClientSecret  string
	Scope         string
	ExtraParams   map[string]string
	RefreshBefore int // Seconds before expiry to refresh the token

	// Token endpoint client; defaults to http.DefaultClient
	HTTPClient *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// TokenResponse represents the response from the OAuth2 token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// NewOAuth2Auth creates a new OAuth2 auth handler
func NewOAuth2Auth(tokenURL, clientID, clientSecret, scope string, extraParams map[string]string, refreshBefore int) (*OAuth2Auth, error) {
	if tokenURL == "" {
		return nil, fmt.Errorf("token URL is required for OAuth2")
	}
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required for OAuth2")
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("client secret is required for OAuth2")
	}

	return &OAuth2Auth{
		TokenURL:      tokenURL,
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Scope:         scope,
		ExtraParams:   extraParams,
		RefreshBefore: refreshBefore,
	}, nil
}

// ApplyAuth adds a valid OAuth2 access token to the request
func (o *OAuth2Auth) ApplyAuth(req *http.Request) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	refreshBefore := 60
	if o.RefreshBefore > 0 {
		refreshBefore = o.RefreshBefore
	}

	needsRefresh := o.expiresAt.IsZero() ||
		time.Until(o.expiresAt) <= time.Duration(refreshBefore)*time.Second

	if needsRefresh {
		if err := o.refreshAccessToken(); err != nil {
			// Still usable if the current token hasn't actually expired
			if o.accessToken != "" && time.Now().Before(o.expiresAt) {
				req.Header.Set("Authorization", "Bearer "+o.accessToken)
				return nil
			}
			refreshErr := &TokenRefreshError{Cause: err}
			if o.accessToken != "" {
				// had a token, it ran out and could not be renewed
				return errors.WrapError(refreshErr, errors.ErrTokenExpired, "apply oauth2")
			}
			return refreshErr
		}
	}

	req.Header.Set("Authorization", "Bearer "+o.accessToken)
	return nil
}

// refreshAccessToken fetches a new access token. Caller must hold o.mu.
func (o *OAuth2Auth) refreshAccessToken() error {
	data := url.Values{}

	// Prefer the refresh token grant when we have one
	if o.refreshToken != "" {
		data.Set("grant_type", "refresh_token")
		data.Set("refresh_token", o.refreshToken)
	} else {
		data.Set("grant_type", "client_credentials")
	}
	data.Set("client_id", o.ClientID)
	data.Set("client_secret", o.ClientSecret)
	if o.Scope != "" {
		data.Set("scope", o.Scope)
	}
	for k, v := range o.ExtraParams {
		data.Set(k, v)
	}

	req, err := http.NewRequest(http.MethodPost, o.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := o.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("parse token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token endpoint returned empty access token")
	}

	o.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		o.refreshToken = token.RefreshToken
	}
	if token.ExpiresIn > 0 {
		o.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	} else {
		// No expiry reported; assume an hour
		o.expiresAt = time.Now().Add(time.Hour)
	}

	return nil
}

// String returns a string representation of this auth method for testing
func (o *OAuth2Auth) String() string {
	return fmt.Sprintf("OAuth2Auth(client_id: %s)", o.ClientID)
}
