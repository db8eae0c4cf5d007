package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graphbind-io/graphbind/pkg/config"
	"github.com/graphbind-io/graphbind/pkg/errors"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "http://example.com/graphql", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestBasicAuth(t *testing.T) {
	h := NewBasicAuth("alice", "s3cret")
	req := newRequest(t)

	if err := h.ApplyAuth(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
	if got := req.Header.Get("Authorization"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBasicAuthMissingUsername(t *testing.T) {
	h := NewBasicAuth("", "pw")
	if err := h.ApplyAuth(newRequest(t)); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestBearerAuth(t *testing.T) {
	h := NewBearerAuth("tok-123")
	req := newRequest(t)

	if err := h.ApplyAuth(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("expected bearer header, got %q", got)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		query     string
		wantErr   bool
		checkReq  func(*testing.T, *http.Request)
	}{
		{
			name:   "header placement",
			header: "X-API-Key",
			checkReq: func(t *testing.T, req *http.Request) {
				if got := req.Header.Get("X-API-Key"); got != "key-val" {
					t.Errorf("expected header key, got %q", got)
				}
			},
		},
		{
			name:  "query placement",
			query: "api_key",
			checkReq: func(t *testing.T, req *http.Request) {
				if got := req.URL.Query().Get("api_key"); got != "key-val" {
					t.Errorf("expected query key, got %q", got)
				}
			},
		},
		{
			name:    "neither configured",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAPIKeyAuth(tc.header, tc.query, "key-val")
			req := newRequest(t)
			err := h.ApplyAuth(req)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.checkReq(t, req)
		})
	}
}

func TestOAuth2FetchesAndCachesToken(t *testing.T) {
	var tokenCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if got := r.FormValue("grant_type"); got != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", got)
		}
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "fresh-token",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	}))
	defer server.Close()

	h, err := NewOAuth2Auth(server.URL, "cid", "csecret", "", nil, 60)
	if err != nil {
		t.Fatal(err)
	}

	// Two requests, one token fetch
	for i := 0; i < 2; i++ {
		req := newRequest(t)
		if err := h.ApplyAuth(req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer fresh-token" {
			t.Errorf("expected oauth2 bearer header, got %q", got)
		}
	}

	if tokenCalls != 1 {
		t.Errorf("expected 1 token fetch, got %d", tokenCalls)
	}
}

func TestOAuth2RefreshOnShortExpiry(t *testing.T) {
	var tokenCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		// Short-lived token forces a refresh on every apply
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "short-token",
			ExpiresIn:   1,
		})
	}))
	defer server.Close()

	h, err := NewOAuth2Auth(server.URL, "cid", "csecret", "", nil, 60)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := h.ApplyAuth(newRequest(t)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if tokenCalls != 2 {
		t.Errorf("expected refresh on each apply, got %d token calls", tokenCalls)
	}
}

func TestOAuth2RefreshFailureIsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	h, err := NewOAuth2Auth(server.URL, "cid", "csecret", "", nil, 60)
	if err != nil {
		t.Fatal(err)
	}

	err = h.ApplyAuth(newRequest(t))
	if err == nil {
		t.Fatal("expected the failed token fetch to surface")
	}
	if !errors.Is(err, errors.ErrAuthentication) {
		t.Errorf("expected ErrAuthentication, got %v", err)
	}
	var refreshErr *TokenRefreshError
	if !errors.As(err, &refreshErr) {
		t.Errorf("expected a TokenRefreshError, got %T", err)
	}
}

func TestOAuth2ExpiredTokenUnrenewable(t *testing.T) {
	var fail bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "short-token",
			ExpiresIn:   1,
		})
	}))
	defer server.Close()

	h, err := NewOAuth2Auth(server.URL, "cid", "csecret", "", nil, 60)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ApplyAuth(newRequest(t)); err != nil {
		t.Fatalf("initial token fetch failed: %v", err)
	}

	// Token runs out, endpoint stops issuing replacements
	fail = true
	time.Sleep(1100 * time.Millisecond)

	err = h.ApplyAuth(newRequest(t))
	if !errors.Is(err, errors.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRegistryCreate(t *testing.T) {
	registry := NewAuthRegistry()

	handler, err := registry.Create(&config.Auth{
		Type:   config.AuthTypeBearer,
		Bearer: &config.BearerAuth{Token: "t"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := handler.(*BearerAuth); !ok {
		t.Errorf("expected *BearerAuth, got %T", handler)
	}

	_, err = registry.Create(&config.Auth{Type: "bogus"})
	if err == nil {
		t.Fatal("expected error for unknown auth type")
	}
}

func TestCreateHandlerNilConfig(t *testing.T) {
	handler, err := CreateHandler(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handler != nil {
		t.Errorf("expected nil handler for nil config, got %v", handler)
	}
}
