package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/notify"
	"github.com/desertthunder/mediadesk/internal/repositories"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/desertthunder/mediadesk/internal/watcher"
	"github.com/urfave/cli/v3"
)

// UploadRun uploads the files named on the command line (directories contribute their accepted files) as one
// batch.
func (r *Runner) UploadRun(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or directory is required", shared.ErrMissingArgument)
	}

	files, err := tasks.CollectFiles(paths, r.config.Upload.Extensions)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: nothing to upload in %v", shared.ErrEmptySelection, paths)
	}

	if cmd.Bool("tui") {
		return r.uploadInteractive(ctx, cmd, files)
	}

	uploader, cleanup, err := r.uploader(ctx, cmd, false, nil, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	batch, err := uploader.Run(ctx, files)
	if err != nil {
		return err
	}
	return r.reportBatch(cmd, batch)
}

// UploadWatch uploads files as they appear in a directory until interrupted.
func (r *Runner) UploadWatch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.StringArg("dir")
	if dir == "" {
		return fmt.Errorf("%w: directory to watch is required", shared.ErrMissingArgument)
	}

	uploader, cleanup, err := r.uploader(ctx, cmd, false, nil, r.refreshHistory)
	if err != nil {
		return err
	}
	defer cleanup()

	onBatch := func(ctx context.Context, files []tasks.FileRef) (*tasks.Batch, error) {
		batch, err := uploader.Run(ctx, files)
		if err != nil {
			return nil, err
		}
		if n := batch.Summary.Failed; n > 0 {
			return batch, fmt.Errorf("%w: %d of %d files", shared.ErrUploadFailed, n, batch.Summary.Total)
		}
		return batch, nil
	}

	w := watcher.New(dir, onBatch, r.logger, watcher.Options{
		Extensions:      r.config.Upload.Extensions,
		Quiet:           cmd.Duration("quiet"),
		IncludeExisting: cmd.Bool("existing"),
	})

	r.writePlain("Watching %s for new media (Ctrl+C to stop)\n", dir)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// UploadHistory lists journaled batches, newest first.
func (r *Runner) UploadHistory(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	repo, err := r.journal()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if transport := cmd.String("transport"); transport != "" {
		criteria["transport"] = transport
	}

	records, err := repo.List(criteria)
	if err != nil {
		return err
	}

	data, err := formatter.History(records, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// UploadShow prints one journaled batch with its items.
func (r *Runner) UploadShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: batch ID is required", shared.ErrMissingArgument)
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	repo, err := r.journal()
	if err != nil {
		return err
	}

	record, err := repo.Get(id)
	if err != nil {
		return err
	}

	data, err := formatter.BatchDetail(record, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// refreshHistory prints the newest journaled batch, so a long-running watch shows what the journal now holds.
func (r *Runner) refreshHistory() {
	repo, err := r.journal()
	if err != nil {
		r.logger.Warn("failed to refresh upload history", "error", err)
		return
	}

	records, err := repo.List(map[string]any{"limit": 1})
	if err != nil {
		r.logger.Warn("failed to refresh upload history", "error", err)
		return
	}

	data, err := formatter.History(records, formatter.FormatText)
	if err != nil {
		r.logger.Warn("failed to render upload history", "error", err)
		return
	}
	r.writePlain("%s", data)
}

// uploader assembles an [tasks.Uploader] from config and flags. The returned cleanup releases the Redis client.
//
// Interactive batches leave the console sink out so toasts do not tear the TUI. refresh runs after a batch that
// uploaded at least one file.
func (r *Runner) uploader(ctx context.Context, cmd *cli.Command, interactive bool, onEvent func(tasks.ProgressUpdate), refresh tasks.RefreshFunc) (*tasks.Uploader, func(), error) {
	cfg := r.config.Upload
	if cmd.IsSet("concurrency") {
		cfg.Concurrency = cmd.Int("concurrency")
	}
	if cmd.IsSet("rate") {
		cfg.RateLimit = cmd.Float("rate")
	}
	if cmd.Bool("storage") {
		cfg.Transport = services.TransportStorage
	}
	if cfg.Transport == "" {
		cfg.Transport = services.TransportAPI
	}

	api, err := r.client(ctx)
	if err != nil {
		return nil, nil, err
	}

	transport, err := r.uploadTransport(ctx, cfg, api)
	if err != nil {
		return nil, nil, err
	}

	repo, err := r.journal()
	if err != nil {
		return nil, nil, err
	}

	var sinks notify.Multi
	if !interactive {
		sinks = append(sinks, notify.NewConsoleNotifier(r.output))
	}
	sinks = append(sinks, notify.NewLogNotifier(r.logger), repositories.NewJournal(repo, r.logger))

	cleanup := func() {}
	if r.config.Redis.Addr != "" {
		client := notify.NewRedisClient(r.config.Redis)
		sinks = append(sinks, notify.NewRedisNotifier(client, r.config.Redis.Channel, r.logger))
		cleanup = func() {
			if err := client.Close(); err != nil {
				r.logger.Warn("failed to close redis client", "error", err)
			}
		}
	}

	uploader := tasks.NewUploader(transport, sinks, r.logger, tasks.UploadOpts{
		Transport:   cfg.Transport,
		Field:       cfg.Field,
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		TokenSource: api.TokenSource(),
		OnEvent:     onEvent,
		Refresh:     refresh,
	})
	return uploader, cleanup, nil
}

// uploadTransport returns the injected transport or builds the configured one. Object storage buckets are created
// on first use.
func (r *Runner) uploadTransport(ctx context.Context, cfg shared.UploadConfig, api *services.APIService) (tasks.Transport, error) {
	if r.transport != nil {
		return r.transport, nil
	}

	config := *r.config
	config.Upload = cfg
	transport, err := services.NewTransport(&config, api)
	if err != nil {
		return nil, err
	}

	if store, ok := transport.(*services.ObjectStoreTransport); ok {
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return transport, nil
}

// reportBatch renders the batch result when a format or output file was requested and turns failures into a
// non-zero exit.
func (r *Runner) reportBatch(cmd *cli.Command, batch *tasks.Batch) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	if format != formatter.FormatText || cmd.String("output") != "" {
		data, err := formatter.BatchResult(batch, format)
		if err != nil {
			return err
		}
		if err := r.emit(cmd, data); err != nil {
			return err
		}
	} else {
		r.writePlain("Batch %s recorded; run 'mediadesk upload show %s' for details\n", batch.ID, batch.ID)
	}

	switch {
	case batch.Canceled:
		return fmt.Errorf("%w: %d of %d files sent", shared.ErrUploadCanceled, batch.Summary.Succeeded, batch.Summary.Total)
	case batch.Summary.Failed > 0:
		return fmt.Errorf("%w: %d of %d files", shared.ErrUploadFailed, batch.Summary.Failed, batch.Summary.Total)
	}
	return nil
}
