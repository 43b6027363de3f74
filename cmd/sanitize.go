package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/urfave/cli/v3"
)

// SanitizeHTML prints the sanitized form of HTML given as arguments, in --file, or on stdin.
func (r *Runner) SanitizeHTML(ctx context.Context, cmd *cli.Command) error {
	raw, err := r.readHTML(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("text") {
		return r.writePlain("%s\n", sanitize.Text(raw))
	}
	return r.writePlain("%s\n", sanitize.HTML(raw))
}

// SanitizeURL prints the URL as it would be linked, or fails when the gate rejects it.
func (r *Runner) SanitizeURL(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("url")
	if raw == "" {
		return fmt.Errorf("%w: url is required", shared.ErrMissingArgument)
	}

	var safe string
	if base := cmd.String("base"); base != "" {
		safe = sanitize.URLFrom(raw, base)
	} else {
		safe = sanitize.URL(raw)
	}

	if safe == "" {
		return fmt.Errorf("%w: %q would not be linked", shared.ErrInvalidInput, raw)
	}
	return r.writePlain("%s\n", safe)
}

func (r *Runner) readHTML(cmd *cli.Command) (string, error) {
	if path := cmd.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		return string(data), nil
	}

	if args := cmd.Args().Slice(); len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(r.input)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
