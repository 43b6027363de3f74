package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/desertthunder/mediadesk/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/mediadesk-tui.log"

// uploadInteractive lets the operator confirm the selection and follow the batch in the terminal UI.
func (r *Runner) uploadInteractive(ctx context.Context, cmd *cli.Command, files []tasks.FileRef) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	events := ui.NewEvents(0)
	uploader, cleanup, err := r.uploader(ctx, cmd, true, events.Send, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	run := func(ctx context.Context) (*tasks.Batch, error) { return uploader.Run(ctx, files) }
	model := ui.NewModel(ctx, files, events, run)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if dropped := events.Dropped(); dropped > 0 {
		r.logger.Debug("progress updates dropped while the view was busy", "count", dropped)
	}

	switch {
	case model.Aborted():
		r.writePlain("Upload aborted, nothing was sent\n")
		return nil
	case model.Err() != nil:
		return model.Err()
	case model.Batch() == nil:
		return nil
	}
	return r.reportBatch(cmd, model.Batch())
}
