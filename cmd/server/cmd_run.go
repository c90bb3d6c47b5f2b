package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/countonsheep/internal/core"
)

func (a *app) runCmd() *cobra.Command {
	var unit, outDir string

	cmd := &cobra.Command{
		Use:   "run --transform NAME [--out DIR] FILE",
		Short: "Run a transform on a CSV file and write the result",
		Long: `Loads FILE, runs the named transform and writes the result as
{input}_{transform}.csv into the output directory (default: current directory).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			units, err := a.loadUnits(ctx)
			if err != nil {
				return err
			}
			service := a.newService(units, nil)

			inPath := args[0]
			f, err := os.Open(inPath)
			if err != nil {
				return userError(cmd, err)
			}
			defer f.Close()

			in, err := service.Load(f)
			if err != nil {
				return userError(cmd, err)
			}
			out, err := service.Run(ctx, unit, in)
			if err != nil {
				return userError(cmd, err)
			}
			data, err := core.EncodeCSV(out)
			if err != nil {
				return userError(cmd, err)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			outPath := filepath.Join(outDir, core.ExportFilename(filepath.Base(inPath), unit))
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write result: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns -> %s\n",
				unit, out.NumRows(), out.NumCols(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&unit, "transform", "t", "", "transform to run")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.MarkFlagRequired("transform")
	return cmd
}

func (a *app) transformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the transforms found in the scripts directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := a.loadUnits(cmd.Context())
			if err != nil {
				return err
			}

			infos := units.Units()
			if len(infos) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No transforms available in %s\n", units.Dir())
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFORMAT\tSTATUS\tDESCRIPTION")
			for _, u := range infos {
				status := "ok"
				if !u.Valid {
					status = "malformed: " + u.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Name, u.Format, status, u.Description)
			}
			return tw.Flush()
		},
	}
}
