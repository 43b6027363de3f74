package ui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	UploadView
	ResultView
)

// RunFunc runs the batch. It is called once, off the UI goroutine, after the operator confirms.
type RunFunc func(ctx context.Context) (*tasks.Batch, error)

// Events adapts an uploader's OnEvent callback to a buffered channel.
//
// Send never blocks; updates that arrive while the buffer is full are counted and dropped.
type Events struct {
	ch      chan tasks.ProgressUpdate
	dropped atomic.Int64
}

func NewEvents(buffer int) *Events {
	if buffer <= 0 {
		buffer = 256
	}
	return &Events{ch: make(chan tasks.ProgressUpdate, buffer)}
}

// Send queues u for the model. Pass it as [tasks.UploadOpts.OnEvent].
func (e *Events) Send(u tasks.ProgressUpdate) {
	select {
	case e.ch <- u:
	default:
		e.dropped.Add(1)
	}
}

// Dropped reports how many updates were discarded on a full buffer.
func (e *Events) Dropped() int64 { return e.dropped.Load() }

// row is the display state of one file.
type row struct {
	name    string
	size    int64
	state   tasks.State
	percent int
	message string
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	view      ViewState
	run       RunFunc
	events    *Events
	done      chan batchResult
	files     []tasks.FileRef
	rows      []row
	fileList  list.Model
	bar       progress.Model
	spinner   spinner.Model
	width     int
	height    int
	canceling bool
	aborted   bool
	batch     *tasks.Batch
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a TUI model for files. events must be the same adapter the uploader behind run reports to.
func NewModel(ctx context.Context, files []tasks.FileRef, events *Events, run RunFunc) *Model {
	ctx, cancel := context.WithCancel(ctx)

	rows := make([]row, len(files))
	for i, f := range files {
		rows[i] = row{name: f.Name(), size: f.Size(), state: tasks.Pending}
	}

	fileList := list.New(fileItems(files), list.NewDefaultDelegate(), 80, 20)
	fileList.Title = fmt.Sprintf("Upload %d files?", len(files))
	fileList.SetShowHelp(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle(ColorTitle)

	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		view:     ConfirmView,
		run:      run,
		events:   events,
		done:     make(chan batchResult, 1),
		files:    files,
		rows:     rows,
		fileList: fileList,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Batch returns the finished batch, or nil if the operator aborted before starting.
func (m *Model) Batch() *tasks.Batch { return m.batch }

// Err returns the error that prevented the batch from running.
func (m *Model) Err() error { return m.err }

// Aborted reports whether the operator left before confirming.
func (m *Model) Aborted() bool { return m.aborted }

// Init starts the spinner; nothing is uploaded until the operator confirms.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fileList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(max(msg.Width-10, 10), 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.apply(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgBatchComplete:
			res := msg.data.(batchResult)
			m.batch = res.batch
			m.err = res.err
			m.reconcile()
			m.view = ResultView
			m.cancel()
			return m, nil
		}
	}

	if m.view == ConfirmView {
		var cmd tea.Cmd
		m.fileList, cmd = m.fileList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case UploadView:
		return m.renderUpload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fileList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.fileList, cmd = m.fileList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no):
		m.aborted = true
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.yes):
		m.view = UploadView
		return m, m.startUpload()
	}

	var cmd tea.Cmd
	m.fileList, cmd = m.fileList.Update(msg)
	return m, cmd
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.quit):
		if m.canceling && msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.canceling = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.yes) {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) startUpload() tea.Cmd {
	go func() {
		batch, err := m.run(m.ctx)
		m.done <- batchResult{batch: batch, err: err}
	}()
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		select {
		case update := <-m.events.ch:
			return progressUpdateMsg(update)
		case res := <-m.done:
			return batchCompleteMsg(res.batch, res.err)
		}
	}
}

func (m *Model) apply(u tasks.ProgressUpdate) {
	if u.Event == tasks.BatchCompleted || u.Step < 1 || u.Step > len(m.rows) {
		return
	}
	r := &m.rows[u.Step-1]
	if r.state.Terminal() {
		return
	}
	r.state = u.State
	r.percent = u.Percent
	if u.State == tasks.Failed {
		r.message = failureText(u)
	}
}

// reconcile copies final item states from the batch, covering updates dropped by [Events].
func (m *Model) reconcile() {
	if m.batch == nil {
		return
	}
	for i, item := range m.batch.Items {
		if i >= len(m.rows) {
			break
		}
		snap := item.Snapshot()
		m.rows[i].state = item.State()
		m.rows[i].percent = snap.Progress
		m.rows[i].message = snap.ErrorMessage
	}
}

func failureText(u tasks.ProgressUpdate) string {
	if _, msg, ok := strings.Cut(u.Message, u.Name+": "); ok {
		return msg
	}
	return u.Message
}

func (m *Model) counts() (succeeded, failed int) {
	for _, r := range m.rows {
		switch r.state {
		case tasks.Succeeded:
			succeeded++
		case tasks.Failed:
			failed++
		}
	}
	return succeeded, failed
}

func (m *Model) renderConfirm() string {
	var total int64
	for _, f := range m.files {
		total += f.Size()
	}
	info := styles.help.Render(fmt.Sprintf("%d files • %s", len(m.files), shared.FormatBytes(total)))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.up, m.keys.down}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.fileList.View(), info, helpView)
}

func (m *Model) renderUpload() string {
	title := styles.title.Render(fmt.Sprintf("Uploading %d files", len(m.rows)))
	if m.canceling {
		title = styles.warn.Render("Canceling... waiting for in-flight files")
	}

	succeeded, failed := m.counts()
	total := max(len(m.rows), 1)
	overall := m.bar.ViewAs(float64(succeeded+failed) / float64(total))
	counts := fmt.Sprintf("%d uploaded • %d failed • %d remaining", succeeded, failed, len(m.rows)-succeeded-failed)

	var b strings.Builder
	for _, r := range m.rows {
		b.WriteString(m.renderRow(r))
		b.WriteByte('\n')
	}

	helpKeys := []key.Binding{m.keys.cancel, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n%s", title, overall, counts, b.String(), helpView)
}

func (m *Model) renderRow(r row) string {
	switch r.state {
	case tasks.Uploading:
		return fmt.Sprintf("%s %s %3d%%", m.spinner.View(), r.name, r.percent)
	case tasks.Succeeded:
		return fmt.Sprintf("%s %s", styles.ok.Render("✓"), r.name)
	case tasks.Failed:
		return fmt.Sprintf("%s %s %s", styles.err.Render("✗"), r.name, styles.err.Render(r.message))
	default:
		return styles.help.Render(fmt.Sprintf("· %s (%s)", r.name, shared.FormatBytes(r.size)))
	}
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Upload failed: %v\n\nPress q to quit", m.err))
	}

	succeeded, failed := m.counts()
	var title string
	switch {
	case failed == 0:
		title = styles.ok.Render(fmt.Sprintf("🎉 %d files uploaded successfully!", succeeded))
	case succeeded == 0:
		title = styles.err.Render(fmt.Sprintf("⚠️ %d files failed to upload", failed))
	default:
		title = styles.warn.Render(fmt.Sprintf("Uploaded %d of %d files", succeeded, len(m.rows)))
	}

	var details strings.Builder
	if m.batch != nil && m.batch.Canceled {
		details.WriteString("\n" + styles.warn.Render("Upload canceled before every file was sent"))
	}
	if failed > 0 {
		details.WriteString("\n\n" + styles.err.Render(fmt.Sprintf("%d files failed:", failed)))
		for _, r := range m.rows {
			if r.state == tasks.Failed {
				details.WriteString(fmt.Sprintf("\n  • %s: %s", r.name, r.message))
			}
		}
	}

	helpKeys := []key.Binding{m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s%s\n\n%s", title, details.String(), helpView)
}
