// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mediadesk/internal/tasks"
	"golang.org/x/oauth2"
)

// MemFile is an in-memory [tasks.FileRef].
type MemFile struct {
	FileName string
	Data     []byte
	MIME     string
}

func NewMemFile(name string, data string) *MemFile {
	return &MemFile{FileName: name, Data: []byte(data)}
}

func (m *MemFile) Name() string { return m.FileName }
func (m *MemFile) Size() int64 { return int64(len(m.Data)) }
func (m *MemFile) ContentType() string { return m.MIME }
func (m *MemFile) Open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(m.Data)), nil }

// MemFiles builds a selection of small in-memory files.
func MemFiles(names ...string) []tasks.FileRef {
	files := make([]tasks.FileRef, len(names))
	for i, name := range names {
		files[i] = NewMemFile(name, "data:"+name)
	}
	return files
}

// Step is one scripted transport response.
type Step struct {
	Progress []int  // reported in order before returning
	Ref      string // result reference on success
	Err      error  // returned instead of Ref when set
	Panic    any    // panics with this value when set
	Block    bool   // waits for context cancellation, then returns its error
}

// ScriptedTransport is a [tasks.Transport] test double that answers each file name from a script.
//
// Unscripted names succeed with ref "/uploads/<name>".
type ScriptedTransport struct {
	Script map[string]Step

	mu    sync.Mutex
	Calls []tasks.Metadata
	Names []string
}

func (s *ScriptedTransport) Upload(ctx context.Context, file tasks.FileRef, meta tasks.Metadata, onProgress func(int)) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, meta)
	s.Names = append(s.Names, file.Name())
	step, ok := s.Script[file.Name()]
	s.mu.Unlock()

	if !ok {
		step = Step{Progress: []int{50}, Ref: "/uploads/" + file.Name()}
	}
	for _, p := range step.Progress {
		onProgress(p)
	}
	if step.Panic != nil {
		panic(step.Panic)
	}
	if step.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Ref, nil
}

// CallCount returns the number of Upload calls so far.
func (s *ScriptedTransport) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}

// RecordingNotifier is a [tasks.Notifier] that records everything it receives.
type RecordingNotifier struct {
	mu        sync.Mutex
	Starts    []tasks.BatchInfo
	Items     []tasks.ItemOutcome
	Summaries []tasks.BatchSummary
}

func (r *RecordingNotifier) NotifyStart(info tasks.BatchInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Starts = append(r.Starts, info)
}

func (r *RecordingNotifier) NotifyItem(o tasks.ItemOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items = append(r.Items, o)
}

func (r *RecordingNotifier) NotifySummary(s tasks.BatchSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summaries = append(r.Summaries, s)
}

// PanickingNotifier panics on every call.
type PanickingNotifier struct{}

func (PanickingNotifier) NotifyItem(tasks.ItemOutcome) { panic("notify item") }
func (PanickingNotifier) NotifySummary(tasks.BatchSummary) { panic("notify summary") }

// StaticToken returns a token source that always yields token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
