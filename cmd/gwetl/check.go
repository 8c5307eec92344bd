package main

import (
	"fmt"
	"os"

	"github.com/couchcryptid/groundwater-etl/internal/output"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var waterlevel, summary string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Cross-check a waterlevel file against its site summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, waterlevel, summary)
		},
	}
	cmd.Flags().StringVar(&waterlevel, "waterlevel", "waterlevel.txt", "waterlevel file")
	cmd.Flags().StringVar(&summary, "summary", "site_summary.txt", "site summary file")
	return cmd
}

func runCheck(cmd *cobra.Command, waterlevelPath, summaryPath string) error {
	levels, err := os.Open(waterlevelPath)
	if err != nil {
		return err
	}
	defer levels.Close()
	summary, err := os.Open(summaryPath)
	if err != nil {
		return err
	}
	defer summary.Close()

	problems, err := output.Check(levels, summary)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range problems {
		fmt.Fprintln(out, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d problems found", len(problems))
	}
	fmt.Fprintln(out, "ok")
	return nil
}
