package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mediadesk/internal/shared"
	"golang.org/x/oauth2"
)

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) { return nil, errors.New("token endpoint down") }

func TestTokenSource(t *testing.T) {
	t.Run("static token", func(t *testing.T) {
		ts, err := TokenSource(context.Background(), shared.APIConfig{Token: "abc"})
		if err != nil {
			t.Fatalf("TokenSource() error = %v", err)
		}
		tok, err := ts.Token()
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok.AccessToken != "abc" || !tok.Valid() {
			t.Errorf("unexpected token %+v", tok)
		}
	})

	t.Run("client credentials", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse token request: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %q", r.Form.Get("grant_type"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "issued",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}))
		defer server.Close()

		ts, err := TokenSource(context.Background(), shared.APIConfig{
			TokenURL:     server.URL,
			ClientID:     "admin-cli",
			ClientSecret: "secret",
		})
		if err != nil {
			t.Fatalf("TokenSource() error = %v", err)
		}

		for range 2 {
			tok, err := ts.Token()
			if err != nil {
				t.Fatalf("Token() error = %v", err)
			}
			if tok.AccessToken != "issued" {
				t.Errorf("expected issued token, got %q", tok.AccessToken)
			}
		}
		if calls != 1 {
			t.Errorf("expected token to be reused, got %d exchanges", calls)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := TokenSource(context.Background(), shared.APIConfig{ClientID: "admin-cli"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestNewTransport(t *testing.T) {
	api := NewAPIService("http://example.com", nil, nil)

	t.Run("api", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		transport, err := NewTransport(cfg, api)
		if err != nil {
			t.Fatalf("NewTransport() error = %v", err)
		}
		if _, ok := transport.(*HTTPTransport); !ok {
			t.Errorf("expected *HTTPTransport, got %T", transport)
		}
	})

	t.Run("storage", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Upload.Transport = TransportStorage
		cfg.Storage.AccessKey = "minio"
		cfg.Storage.SecretKey = "minio123"

		transport, err := NewTransport(cfg, api)
		if err != nil {
			t.Fatalf("NewTransport() error = %v", err)
		}
		store, ok := transport.(*ObjectStoreTransport)
		if !ok {
			t.Fatalf("expected *ObjectStoreTransport, got %T", transport)
		}
		if !strings.HasPrefix(store.baseURL, "http://localhost:9000") || !strings.HasSuffix(store.baseURL, "/media") {
			t.Errorf("expected endpoint-derived base URL, got %s", store.baseURL)
		}
	})

	t.Run("storage without keys", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Upload.Transport = TransportStorage

		if _, err := NewTransport(cfg, api); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := shared.DefaultConfig()
		cfg.Upload.Transport = "ftp"

		if _, err := NewTransport(cfg, api); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(shared.APIConfig{TimeoutSeconds: 5})
	if client.Timeout.Seconds() != 5 {
		t.Errorf("expected 5s timeout, got %v", client.Timeout)
	}
}
