package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mediadesk/internal/shared"
	tu "github.com/desertthunder/mediadesk/internal/testing"
)

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService("http://example.com/api/", customClient, nil)

			if srv.BaseURL() != "http://example.com/api" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.BaseURL())
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty BaseURL", func(t *testing.T) {
			srv := NewAPIService("", nil, nil)

			if srv.BaseURL() != defaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", defaultBaseURL, srv.BaseURL())
			}
		})

		t.Run("With Nil Client", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil, nil)

			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/api/test" {
					t.Errorf("expected path '/api/test', got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
					t.Errorf("expected bearer token, got %q", got)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := NewAPIService(server.URL+"/api", nil, tu.StaticToken("admin-token"))
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
			if resp.Err() != nil {
				t.Errorf("expected no response error, got %v", resp.Err())
			}
		})

		t.Run("Path Without Leading Slash", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users" {
					t.Errorf("expected path '/users', got %s", r.URL.Path)
				}
			}))
			defer server.Close()

			if _, err := NewAPIService(server.URL, nil, nil).Get(context.Background(), "users"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			srv := NewAPIService(server.URL, nil, nil)
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON {
				t.Error("expected response to not be JSON")
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
		})

		t.Run("Error Status Carries Server Message", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"message":"Admins only"}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil, nil).Get(context.Background(), "/users")
			if err != nil {
				t.Fatalf("expected no transport error, got %v", err)
			}

			apiErr, ok := shared.AsAPIError(resp.Err())
			if !ok {
				t.Fatalf("expected APIError, got %v", resp.Err())
			}
			if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "Admins only" {
				t.Errorf("unexpected APIError %+v", apiErr)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil, nil)
			_, err := srv.Get(context.Background(), "/test\x00invalid")

			if err == nil {
				t.Fatal("expected error for invalid URL")
			}
			if !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("Failed HTTP Request", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(nil, errors.New("connection failed")),
			}
			srv := NewAPIService("http://example.com", client, nil)
			_, err := srv.Get(context.Background(), "/test")

			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     make(http.Header),
				}, nil),
			}
			srv := NewAPIService("http://example.com", client, nil)
			_, err := srv.Get(context.Background(), "/test")

			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := NewAPIService(server.URL, nil, nil).Get(ctx, "/test")
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			release := make(chan struct{})
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
			}))
			defer server.Close()
			defer close(release)

			client := &http.Client{Timeout: 20 * time.Millisecond}
			_, err := NewAPIService(server.URL, client, nil).Get(context.Background(), "/slow")
			if !errors.Is(err, shared.ErrTimeout) {
				t.Errorf("expected ErrTimeout, got %v", err)
			}
		})

		t.Run("Token Source Failure", func(t *testing.T) {
			srv := NewAPIService("http://example.com", nil, failingTokens{})
			_, err := srv.Get(context.Background(), "/test")

			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Sends JSON Body", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected JSON content type, got %s", r.Header.Get("Content-Type"))
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"name":"test"}` {
					t.Errorf("unexpected body %s", body)
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":"1"}`))
			}))
			defer server.Close()

			resp, err := NewAPIService(server.URL, nil, nil).Post(context.Background(), "/test", []byte(`{"name":"test"}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("expected status 201, got %d", resp.StatusCode)
			}
		})
	})
}

func TestDecodeData(t *testing.T) {
	tc := []struct {
		name string
		body string
		want []string
	}{
		{name: "bare array", body: `["a","b"]`, want: []string{"a", "b"}},
		{name: "data envelope", body: `{"success":true,"data":["a"]}`, want: []string{"a"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			if err := decodeData([]byte(tt.body), &got); err != nil {
				t.Fatalf("decodeData() error = %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("decodeData() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("object without envelope", func(t *testing.T) {
		var got struct {
			Title string `json:"title"`
		}
		if err := decodeData([]byte(`{"title":"Basic"}`), &got); err != nil {
			t.Fatalf("decodeData() error = %v", err)
		}
		if got.Title != "Basic" {
			t.Errorf("expected title Basic, got %q", got.Title)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var got []string
		if err := decodeData([]byte(`nope`), &got); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestErrorMessage(t *testing.T) {
	tc := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Invalid audio file"}`, want: "Invalid audio file"},
		{name: "error field", body: `{"error":"Unauthorized"}`, want: "Unauthorized"},
		{name: "not json", body: `<html>502</html>`, want: ""},
		{name: "empty", body: ``, want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
