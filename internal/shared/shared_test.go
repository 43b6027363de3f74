package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tc := []struct {
		name string
		in   int64
		want string
	}{
		{name: "zero", in: 0, want: "0 Bytes"},
		{name: "bytes", in: 512, want: "512 Bytes"},
		{name: "exact kilobyte", in: 1024, want: "1 KB"},
		{name: "fractional kilobytes", in: 1536, want: "1.5 KB"},
		{name: "megabytes", in: 5 * 1024 * 1024, want: "5 MB"},
		{name: "gigabytes", in: 3 * 1024 * 1024 * 1024 / 2, want: "1.5 GB"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.in); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string of length 36, got %d", len(a))
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mediadesk.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.Info("hello", "batch", "b1")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("expected log line in file, got %q", string(data))
	}
}

func TestAPIError(t *testing.T) {
	t.Run("prefers server message", func(t *testing.T) {
		err := &APIError{StatusCode: 400, Message: "bad file"}
		if !strings.Contains(err.Error(), "bad file") {
			t.Errorf("expected message in error, got %q", err.Error())
		}
	})

	t.Run("falls back to status text", func(t *testing.T) {
		err := &APIError{StatusCode: 502}
		if !strings.Contains(err.Error(), "Bad Gateway") {
			t.Errorf("expected status text in error, got %q", err.Error())
		}
	})

	t.Run("matches sentinel and cause", func(t *testing.T) {
		cause := errors.New("boom")
		var err error = &APIError{StatusCode: 500, Err: cause}
		if !errors.Is(err, ErrAPIRequest) {
			t.Error("expected errors.Is(err, ErrAPIRequest)")
		}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is(err, cause)")
		}
		if _, ok := AsAPIError(err); !ok {
			t.Error("expected AsAPIError to succeed")
		}
	})
}
