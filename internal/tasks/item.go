package tasks

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/mediadesk/internal/shared"
)

// State is an item's position in the upload lifecycle.
type State int

const (
	Pending State = iota
	Uploading
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "success"
	case Failed:
		return "error"
	default:
		return ""
	}
}

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool { return s == Succeeded || s == Failed }

// Kind classifies a file for display. The orchestrator does not enforce it.
type Kind int

const (
	KindOther Kind = iota
	KindAudio
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

var kindByExt = map[string]Kind{
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".aac":  KindAudio,
	".flac": KindAudio,
	".ogg":  KindAudio,
	".jpeg": KindImage,
	".jpg":  KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".webp": KindImage,
}

// DetectKind derives a [Kind] from a MIME type when one is known, falling back to the file extension.
func DetectKind(name, contentType string) Kind {
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	}
	return kindByExt[strings.ToLower(filepath.Ext(name))]
}

const (
	maxReportedProgress = 99
	defaultFailure      = "upload failed"
	canceledFailure     = "upload canceled"
)

// UploadItem is one file's upload attempt.
//
// Exactly one of the error message and result reference is set once the item is terminal; neither is set before.
// Transition methods return [shared.ErrInvalidTransition] and leave the item untouched when called from the wrong
// state. Methods are safe for concurrent use because transports may report progress from their own goroutines.
type UploadItem struct {
	ID        string
	Position  int
	Source    FileRef
	SizeBytes int64
	Kind      Kind

	mu       sync.Mutex
	state    State
	progress int
	errMsg   string
	result   string
}

// NewUploadItem returns a Pending item for the file at position (0-based) in a selection.
func NewUploadItem(file FileRef, position int) *UploadItem {
	var contentType string
	if typed, ok := file.(interface{ ContentType() string }); ok {
		contentType = typed.ContentType()
	}
	return &UploadItem{
		ID:        ItemID(file.Name(), position),
		Position:  position,
		Source:    file,
		SizeBytes: file.Size(),
		Kind:      DetectKind(file.Name(), contentType),
	}
}

// ItemID disambiguates duplicate file names by their position, e.g. "song.mp3#2".
func ItemID(name string, position int) string {
	return fmt.Sprintf("%s#%d", name, position+1)
}

// Name is the source file name.
func (i *UploadItem) Name() string { return i.Source.Name() }

func (i *UploadItem) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *UploadItem) Progress() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.progress
}

// ErrorMessage is set only in [Failed].
func (i *UploadItem) ErrorMessage() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.errMsg
}

// ResultRef is set only in [Succeeded].
func (i *UploadItem) ResultRef() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.result
}

// Start moves Pending to Uploading with progress reset and no stale error or result.
func (i *UploadItem) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Pending {
		return i.invalid("start")
	}
	i.state = Uploading
	i.progress = 0
	i.errMsg, i.result = "", ""
	return nil
}

// Report records transport progress. Progress never regresses and stays below 100 until [UploadItem.Succeed].
// It returns the resulting progress and whether it changed.
func (i *UploadItem) Report(percent int) (int, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Uploading {
		return i.progress, false, i.invalid("report progress")
	}
	percent = min(max(percent, 0), maxReportedProgress)
	if percent <= i.progress {
		return i.progress, false, nil
	}
	i.progress = percent
	return i.progress, true, nil
}

// Succeed moves Uploading to Succeeded with the server's reference, which must not be empty.
func (i *UploadItem) Succeed(resultRef string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Uploading {
		return i.invalid("succeed")
	}
	if strings.TrimSpace(resultRef) == "" {
		return fmt.Errorf("%w: empty result reference for item %s", shared.ErrInvalidInput, i.ID)
	}
	i.state = Succeeded
	i.progress = 100
	i.result = resultRef
	i.errMsg = ""
	return nil
}

// Fail moves Uploading to Failed. An empty message is replaced with a generic one.
func (i *UploadItem) Fail(message string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != Uploading {
		return i.invalid("fail")
	}
	i.fail(message)
	return nil
}

// Cancel fails an item that has not reached a terminal state. Pending items go straight to Failed.
func (i *UploadItem) Cancel() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.Terminal() {
		return i.invalid("cancel")
	}
	i.fail(canceledFailure)
	return nil
}

func (i *UploadItem) fail(message string) {
	if strings.TrimSpace(message) == "" {
		message = defaultFailure
	}
	i.state = Failed
	i.progress = 0
	i.errMsg = message
	i.result = ""
}

func (i *UploadItem) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s item %s in state %s", shared.ErrInvalidTransition, op, i.ID, i.state)
}

// ItemSnapshot is a point-in-time copy of an item, safe to hand to renderers and encoders.
type ItemSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Position     int    `json:"position"`
	SizeBytes    int64  `json:"size_bytes"`
	Kind         string `json:"kind"`
	State        string `json:"state"`
	Progress     int    `json:"progress"`
	ErrorMessage string `json:"error,omitempty"`
	ResultRef    string `json:"result,omitempty"`
}

func (i *UploadItem) Snapshot() ItemSnapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return ItemSnapshot{
		ID:           i.ID,
		Name:         i.Source.Name(),
		Position:     i.Position,
		SizeBytes:    i.SizeBytes,
		Kind:         i.Kind.String(),
		State:        i.state.String(),
		Progress:     i.progress,
		ErrorMessage: i.errMsg,
		ResultRef:    i.result,
	}
}
