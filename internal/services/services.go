package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Transport names accepted by [NewTransport] and the upload.transport setting.
const (
	TransportAPI     = "api"
	TransportStorage = "storage"
)

// TokenSource builds the bearer token provider for the admin API.
//
// A static token wins; otherwise client credentials are exchanged at TokenURL and refreshed as they expire.
func TokenSource(ctx context.Context, cfg shared.APIConfig) (oauth2.TokenSource, error) {
	if cfg.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}), nil
	}

	if cfg.TokenURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: set api.token or api.token_url, api.client_id and api.client_secret", shared.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return cc.TokenSource(ctx), nil
}

// NewHTTPClient returns a client honoring the configured request timeout.
func NewHTTPClient(cfg shared.APIConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout()}
}

// NewTransport selects the upload transport named by cfg.Upload.Transport.
func NewTransport(cfg *shared.Config, api *APIService) (tasks.Transport, error) {
	switch cfg.Upload.Transport {
	case "", TransportAPI:
		return NewHTTPTransport(api, cfg.Upload.Endpoint), nil
	case TransportStorage:
		return NewObjectStoreTransport(cfg.Storage)
	default:
		return nil, fmt.Errorf("%w: unknown upload transport %q", shared.ErrInvalidConfig, cfg.Upload.Transport)
	}
}
