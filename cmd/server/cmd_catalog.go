package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/countonsheep/internal/catalog"
)

func (a *app) explorersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explorers",
		Short: "List or add blockchain explorer links",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List explorers sorted by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := a.openCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			entries, err := stores.Explorers.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No links available yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tURL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Value)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME URL",
		Short: "Add or replace an explorer link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := a.openCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Explorers.Put(cmd.Context(), args[0], args[1]); err != nil {
				return userError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added link for %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func (a *app) toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or add tool links",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tools sorted by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := a.openCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			entries, err := stores.Tools.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tools available yet.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TOOL\tURL\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Value.URL, e.Value.Description)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME URL DESCRIPTION",
		Short: "Add or replace a tool",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := a.openCatalogs(cmd.Context())
			if err != nil {
				return err
			}
			defer stores.Close()

			tool := catalog.Tool{URL: args[1], Description: args[2]}
			if err := stores.Tools.Put(cmd.Context(), args[0], tool); err != nil {
				return userError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added tool: %s\n", args[0])
			return nil
		},
	})
	return cmd
}
