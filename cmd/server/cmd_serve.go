package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/countonsheep/internal/core"
	"github.com/JonMunkholm/countonsheep/internal/web"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"scripts_dir", cfg.Pipeline.ScriptsDir,
		"catalog_backend", cfg.Catalog.Backend,
		"max_file_size", cfg.Upload.MaxFileSize.String(),
		"max_concurrent_runs", cfg.Pipeline.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	units, err := a.loadUnits(ctx)
	if err != nil {
		return err
	}
	sessions := core.NewSessionStore(cfg.Session.TTL)
	service := a.newService(units, sessions)

	stores, err := a.openCatalogs(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()

	gal := a.newGallery()
	server := web.NewServer(cfg, service, stores, gal)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sessions.Run(gctx, cfg.Session.SweepInterval)
		return nil
	})

	if cfg.Pipeline.Watch {
		w := core.NewDirWatcher(cfg.Pipeline.ScriptsDir, func(ctx context.Context) {
			if err := units.Reload(ctx); err != nil {
				slog.Error("reload transforms", "error", err)
			}
		})
		w.Match = func(path string) bool { return core.ManifestFormat(path) != "" }
		g.Go(func() error { return w.Run(gctx) })
	}

	if cfg.Gallery.Watch {
		w := core.NewDirWatcher(gal.Dir(), func(ctx context.Context) {
			gal.Invalidate()
			slog.Debug("template listing invalidated", "dir", gal.Dir())
		})
		w.Match = gal.Match
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for active runs to complete (with timeout)
		if status := service.RunStatus(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped")
	return err
}
