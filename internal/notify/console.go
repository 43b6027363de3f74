package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/desertthunder/mediadesk/internal/ui"
)

// LargeFileBytes is the size above which a file gets a patience warning when the batch starts.
const LargeFileBytes = 500 * 1024 * 1024

// ConsoleNotifier writes one styled toast per event to w.
type ConsoleNotifier struct {
	w    io.Writer
	ok   lipgloss.Style
	err  lipgloss.Style
	warn lipgloss.Style
}

// NewConsoleNotifier creates a console sink. Styling is dropped automatically when w is not a terminal.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	r := lipgloss.NewRenderer(w)
	return &ConsoleNotifier{
		w:    w,
		ok:   r.NewStyle().Foreground(ui.ColorOK).Bold(true),
		err:  r.NewStyle().Foreground(ui.ColorError).Bold(true),
		warn: r.NewStyle().Foreground(ui.ColorWarn),
	}
}

func (c *ConsoleNotifier) NotifyStart(info tasks.BatchInfo) {
	for _, item := range info.Items {
		if item.SizeBytes > LargeFileBytes {
			c.println(c.warn, fmt.Sprintf("Large file detected: %s (%s). Upload may take several minutes. Please be patient.",
				item.Name, shared.FormatBytes(item.SizeBytes)))
		}
	}
}

func (c *ConsoleNotifier) NotifyItem(o tasks.ItemOutcome) {
	if o.Succeeded() {
		c.println(c.ok, fmt.Sprintf("✅ %s uploaded successfully", o.Name))
		return
	}
	c.println(c.err, fmt.Sprintf("❌ %s: %s", o.Name, o.ErrorMessage))
}

func (c *ConsoleNotifier) NotifySummary(s tasks.BatchSummary) {
	if s.Succeeded > 0 {
		c.println(c.ok, fmt.Sprintf("🎉 %d files uploaded successfully!", s.Succeeded))
	}
	if s.Failed > 0 {
		c.println(c.err, fmt.Sprintf("⚠️ %d files failed to upload", s.Failed))
	}
	if s.Canceled {
		c.println(c.warn, "Upload canceled before every file was sent")
	}
}

func (c *ConsoleNotifier) println(style lipgloss.Style, text string) {
	fmt.Fprintln(c.w, style.Render(text))
}
