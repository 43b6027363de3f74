package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const devtoolsCurl = `curl 'https://admin.example.com/api/terms/admin' \
  -H 'accept: application/json' \
  -H 'Authorization: Bearer eyJhbGciOi.abc.def' \
  -H "Origin: https://admin.example.com" \
  --compressed`

func TestParseCurlCommand(t *testing.T) {
	tt := []struct {
		name        string
		curlCmd     string
		wantURL     string
		wantHeaders map[string]string
		wantErr     bool
	}{
		{
			name:    "devtools copy",
			curlCmd: devtoolsCurl,
			wantURL: "https://admin.example.com/api/terms/admin",
			wantHeaders: map[string]string{
				"accept":        "application/json",
				"authorization": "Bearer eyJhbGciOi.abc.def",
				"origin":        "https://admin.example.com",
			},
		},
		{
			name:        "long header flag",
			curlCmd:     `curl --header "X-Trace: 1" http://localhost:5000/api/users`,
			wantURL:     "http://localhost:5000/api/users",
			wantHeaders: map[string]string{"x-trace": "1"},
		},
		{
			name:        "url only",
			curlCmd:     `curl http://localhost:5000/health`,
			wantURL:     "http://localhost:5000/health",
			wantHeaders: map[string]string{},
		},
		{
			name:    "nothing useful",
			curlCmd: `echo hello`,
			wantErr: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			req, err := ParseCurlCommand([]byte(tc.curlCmd))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.URL != tc.wantURL {
				t.Errorf("URL = %q, want %q", req.URL, tc.wantURL)
			}
			if len(req.Headers) != len(tc.wantHeaders) {
				t.Errorf("got %d headers, want %d: %v", len(req.Headers), len(tc.wantHeaders), req.Headers)
			}
			for k, v := range tc.wantHeaders {
				if req.Headers[k] != v {
					t.Errorf("header %q = %q, want %q", k, req.Headers[k], v)
				}
			}
		})
	}
}

func TestCurlRequest(t *testing.T) {
	t.Run("BearerToken", func(t *testing.T) {
		req, err := ParseCurlCommand([]byte(devtoolsCurl))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		token, err := req.BearerToken()
		if err != nil {
			t.Fatalf("BearerToken() error = %v", err)
		}
		if token != "eyJhbGciOi.abc.def" {
			t.Errorf("token = %q", token)
		}
	})

	t.Run("BearerToken missing", func(t *testing.T) {
		req := &CurlRequest{Headers: map[string]string{"authorization": "Basic dXNlcg=="}}
		if _, err := req.BearerToken(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("APIBase", func(t *testing.T) {
		tt := []struct{ url, want string }{
			{"https://admin.example.com/api/terms/admin", "https://admin.example.com/api"},
			{"http://localhost:5000/v2/api/users", "http://localhost:5000/v2/api"},
			{"http://localhost:5000/users", "http://localhost:5000"},
		}
		for _, tc := range tt {
			got, err := (&CurlRequest{URL: tc.url}).APIBase()
			if err != nil {
				t.Fatalf("APIBase(%s) error = %v", tc.url, err)
			}
			if got != tc.want {
				t.Errorf("APIBase(%s) = %q, want %q", tc.url, got, tc.want)
			}
		}
	})

	t.Run("ParseCurlFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "request.sh")
		if err := os.WriteFile(path, []byte(devtoolsCurl), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		req, err := ParseCurlFile(path)
		if err != nil {
			t.Fatalf("ParseCurlFile() error = %v", err)
		}
		if req.Headers["authorization"] == "" {
			t.Error("expected authorization header")
		}
	})
}

func TestOpenBrowser(t *testing.T) {
	orig := getRuntime
	t.Cleanup(func() { getRuntime = orig })

	getRuntime = func() string { return "plan9" }
	if err := OpenBrowser("http://127.0.0.1:3000"); err == nil {
		t.Error("expected unsupported platform error")
	}
}
