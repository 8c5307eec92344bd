// Command gwetl reconciles groundwater level measurements from USGS NWIS,
// OWRD, and CDWR into the waterlevel, site-summary, and collection files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gwetl",
		Short:        "Groundwater level reconciliation for USGS, OWRD, and CDWR",
		SilenceUsage: true,
	}
	root.AddCommand(newBuildCmd(), newCheckCmd(), newFIPSCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
