package main

import (
	"context"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/server"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the preview server until interrupted. Pages whose data source is unavailable (no credentials, no
// journal) answer 404 instead of failing the whole server.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	srv := server.New(addr, server.NewPreviewRouter(r.previewSources(ctx), r.logger), r.logger)

	go func() {
		select {
		case url := <-srv.Ready():
			r.writePlain("Preview server running at %s (Ctrl+C to stop)\n", url)
			if !cmd.Bool("open") {
				return
			}
			if err := shared.OpenBrowser(url); err != nil {
				r.logger.Warn("failed to open browser", "url", url, "error", err)
			}
		case <-ctx.Done():
		}
	}()

	return srv.Run(ctx)
}

func (r *Runner) previewSources(ctx context.Context) server.Sources {
	var sources server.Sources

	if api, err := r.client(ctx); err != nil {
		r.logger.Warn("admin API unavailable, document and plan pages disabled", "error", err)
	} else {
		sources.Terms = services.NewDocumentsClient(api, models.DocumentTerms)
		sources.Disclaimers = services.NewDocumentsClient(api, models.DocumentDisclaimer)
		sources.Plans = services.NewPlansClient(api)
	}

	if repo, err := r.journal(); err != nil {
		r.logger.Warn("upload journal unavailable, history pages disabled", "error", err)
	} else {
		sources.History = repo
	}
	return sources
}
