package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/countonsheep/internal/catalog"
	"github.com/JonMunkholm/countonsheep/internal/config"
	"github.com/JonMunkholm/countonsheep/internal/core"
	"github.com/JonMunkholm/countonsheep/internal/gallery"
	"github.com/JonMunkholm/countonsheep/internal/logging"
)

// app holds what the subcommands share once configuration is loaded.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "countonsheep",
		Short: "Upload a CSV, run a transform, preview and download the result",
		Long: `Count On Sheep runs named CSV transforms loaded from manifest files.

Run without a subcommand to start the web server. The other subcommands
work on the same configuration (environment variables and .env).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			return nil
		},
		RunE: a.runServe,
	}

	root.AddCommand(
		a.serveCmd(),
		a.runCmd(),
		a.transformsCmd(),
		a.explorersCmd(),
		a.toolsCmd(),
		a.templatesCmd(),
	)
	return root
}

// loadUnits builds the unit registry and loads the scripts directory.
func (a *app) loadUnits(ctx context.Context) (*core.UnitRegistry, error) {
	units := core.NewUnitRegistry(a.cfg.Pipeline.ScriptsDir)
	if err := units.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load transforms: %w", err)
	}
	return units, nil
}

// newService wires the pipeline service from configuration.
func (a *app) newService(units *core.UnitRegistry, sessions *core.SessionStore) *core.Service {
	return core.NewService(units, sessions,
		core.NewRunLimiter(a.cfg.Pipeline.MaxConcurrent, a.cfg.Pipeline.MaxWaitTime),
		core.ServiceOptions{
			MaxFileSize: a.cfg.Upload.MaxFileSize.Bytes(),
			PreviewRows: a.cfg.Pipeline.PreviewRows,
			Comma:       a.cfg.Upload.Comma(),
		},
	)
}

func (a *app) openCatalogs(ctx context.Context) (*catalog.Stores, error) {
	stores, err := catalog.Open(ctx, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalogs: %w", err)
	}
	return stores, nil
}

func (a *app) newGallery() *gallery.Gallery {
	return gallery.New(a.cfg.Gallery.Dir, a.cfg.Gallery.Extensions)
}

// userError prefixes err with its user message and support code.
func userError(cmd *cobra.Command, err error) error {
	slog.Debug("command failed", "command", cmd.Name(), "error", err)
	return fmt.Errorf("%s\n  %w", core.FormatUserError(err), err)
}
