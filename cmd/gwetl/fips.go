package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/census"
	"github.com/couchcryptid/groundwater-etl/internal/config"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newFIPSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fips CODE...",
		Short: "Print the county names of five-digit FIPS codes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFIPS,
	}
}

func runFIPS(cmd *cobra.Command, codes []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, code := range codes {
		if !validFIPS(code) {
			return fmt.Errorf("%q is not a five-digit FIPS code", code)
		}
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := census.NewClient(cfg.CensusCountyURL, cfg.HTTPTimeout, metrics, logger).WithRetries(cfg.HTTPRetries)

	counties, err := client.Resolve(cmd.Context(), codes)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIPS\tSTATE\tCOUNTY\tPREFIX")
	for _, c := range counties {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.FIPS, c.State, c.Name, c.Prefix())
	}
	return tw.Flush()
}
