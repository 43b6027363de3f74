// Package ui implements the interactive upload monitor using bubbletea's Elm architecture.
//
// The TUI walks one batch through three views:
//  1. [ConfirmView] : Review the selected files (name, size, kind) before anything is sent
//  2. [UploadView] : Watch per-file state and progress plus an overall bar while the batch runs
//  3. [ResultView] : Read the summary and the reason each failed file was rejected
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates reach the model through [Events], a buffered channel adapter whose Send never blocks: the uploader
// invokes its event callback while holding its own lock, so a slow terminal must not stall the workers. Updates dropped
// on a full buffer are reconciled from the finished batch.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, c, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
