package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

var _ list.Item = fileItem{}

// fileItem wraps [tasks.FileRef] to implement [list.Item].
type fileItem struct {
	file tasks.FileRef
}

func (i fileItem) FilterValue() string { return i.file.Name() }
func (i fileItem) Title() string       { return i.file.Name() }
func (i fileItem) Description() string {
	return fmt.Sprintf("%s • %s", shared.FormatBytes(i.file.Size()), tasks.DetectKind(i.file.Name(), ""))
}

func fileItems(files []tasks.FileRef) []list.Item {
	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = fileItem{file: f}
	}
	return items
}
