package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/desertthunder/mediadesk/internal/shared"
	"golang.org/x/oauth2"
)

const defaultBaseURL = "http://localhost:5000/api"

// APIService makes authenticated requests to the admin API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

// NewAPIService creates a new API service instance. A nil tokens source sends requests without a bearer token.
func NewAPIService(baseURL string, client *http.Client, tokens oauth2.TokenSource) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		tokens:     tokens,
	}
}

// BaseURL returns the API root every path is joined to.
func (a *APIService) BaseURL() string { return a.baseURL }

// TokenSource returns the bearer token provider, or nil when requests are unauthenticated.
func (a *APIService) TokenSource() oauth2.TokenSource { return a.tokens }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Err returns an [shared.APIError] for a non-2xx status, carrying the server's "message" when present.
func (r *APIResponse) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return &shared.APIError{StatusCode: r.StatusCode, Message: errorMessage(r.Body)}
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, data)
}

// Do sends an authenticated request with an optional JSON body and reads the whole response.
//
// A non-2xx status is not an error here; see [APIResponse.Err].
func (a *APIService) Do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := a.NewRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := a.authorize(req); err != nil {
		return nil, err
	}

	resp, err := a.Send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// NewRequest builds a request for path relative to the base URL without credentials.
func (a *APIService) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Send performs req, classifying transport failures as [shared.ErrTimeout] or [shared.ErrServiceUnavailable].
// Cancellation is returned as the context error.
func (a *APIService) Send(req *http.Request) (*http.Response, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, requestError(err)
	}
	return resp, nil
}

func (a *APIService) authorize(req *http.Request) error {
	if a.tokens == nil {
		return nil
	}
	tok, err := a.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// call sends body as JSON and decodes the response into result.
func (a *APIService) call(ctx context.Context, method, path string, body, result any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := a.Do(ctx, method, path, data)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if result == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return decodeData(resp.Body, result)
}

// decodeData decodes body into result, unwrapping a {"data": ...} envelope when there is one.
func decodeData(body []byte, result any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func requestError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("request canceled: %w", err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
}
