// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/registry"
	"github.com/pdiddy/review-engine/pkg/types"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the review registry",
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List registry entries",
	Long: `Show lists every paper the registry has seen, in the order it was first
reviewed, with its status and the rounds it appeared in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.Status(viper.GetString("status"))
		if status != "" && !status.Valid() {
			return fmt.Errorf("unknown status %q", status)
		}
		store, err := openStore(viper.GetString("registry-backend"), viper.GetString("out-dir"))
		if err != nil {
			return err
		}
		defer store.Close()
		reg, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		return printRegistry(os.Stdout, reg, status)
	},
}

func init() {
	fs := registryShowCmd.Flags()
	fs.String("status", "", "only list entries with this status")
	fs.String("registry-backend", defaults.Snowball.RegistryBackend, "registry storage: json or sqlite")

	registryCmd.AddCommand(registryShowCmd)
	rootCmd.AddCommand(registryCmd)
}

func printRegistry(w io.Writer, reg *registry.Registry, status types.Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tFIRST\tLAST\tTITLE")
	for _, e := range reg.Entries() {
		if status != "" && e.Status != status {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.ID, e.Status, e.FirstRound, e.LastRound, e.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	counts := reg.Counts()
	_, err := fmt.Fprintf(w, "\n%d entries: %d include, %d exclude, %d hard_exclude, %d pending\n",
		reg.Len(), counts[types.StatusInclude], counts[types.StatusExclude],
		counts[types.StatusHardExclude], counts[types.StatusPending])
	return err
}
