package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/cdwr"
	"github.com/couchcryptid/groundwater-etl/internal/adapter/census"
	"github.com/couchcryptid/groundwater-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/groundwater-etl/internal/adapter/kafka"
	"github.com/couchcryptid/groundwater-etl/internal/adapter/nwis"
	"github.com/couchcryptid/groundwater-etl/internal/adapter/owrd"
	"github.com/couchcryptid/groundwater-etl/internal/config"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/couchcryptid/groundwater-etl/internal/output"
	"github.com/couchcryptid/groundwater-etl/internal/pipeline"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type buildFlags struct {
	collection    string
	output        string
	summary       string
	collectionOut string
	owrdGW        string
	owrdRC        string
	owrdOtherID   string
	usgs          bool
	owrd          bool
	cdwr          bool
	counties      []string
	minCount      int
	debug         bool
}

func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Import all agencies and write the waterlevel and summary files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.collection, "collection", "", "collection file listing the sites to reconcile")
	fl.StringVar(&f.output, "output", "waterlevel.txt", "waterlevel output file")
	fl.StringVar(&f.summary, "summary", "site_summary.txt", "site summary output file")
	fl.StringVar(&f.collectionOut, "collection-out", "", "rewrite the collection with rollups and candidate sites to this file")
	fl.StringVar(&f.owrdGW, "owrd-gw", "", "OWRD periodic measurement export")
	fl.StringVar(&f.owrdRC, "owrd-rc", "", "OWRD recorder export")
	fl.StringVar(&f.owrdOtherID, "owrd-other-id", "", "OWRD other-identifier export")
	fl.BoolVar(&f.usgs, "usgs", false, "import USGS")
	fl.BoolVar(&f.owrd, "owrd", false, "import OWRD")
	fl.BoolVar(&f.cdwr, "cdwr", false, "import CDWR")
	fl.StringSliceVar(&f.counties, "county", nil, "five-digit county FIPS code to search for new sites (repeatable)")
	fl.IntVar(&f.minCount, "min-count", 1, "fewest periodic measurements for a new-site candidate")
	fl.BoolVar(&f.debug, "debug", false, "log at debug level")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func (f buildFlags) agencies() []string {
	var out []string
	if f.usgs {
		out = append(out, domain.AgencyUSGS)
	}
	if f.owrd {
		out = append(out, domain.AgencyOWRD)
	}
	if f.cdwr {
		out = append(out, domain.AgencyCDWR)
	}
	if len(out) == 0 {
		return domain.Agencies
	}
	return out
}

func runBuild(cmd *cobra.Command, f buildFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.LogLevel
	if f.debug {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, cfg.LogFormat)

	if f.minCount < 0 {
		return errors.New("--min-count must not be negative")
	}
	for _, code := range f.counties {
		if !validFIPS(code) {
			return fmt.Errorf("--county %q is not a five-digit FIPS code", code)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if cfg.MetricsTextfile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
				logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
			}
		}()
	}

	translator, err := loadTranslator(cfg.CodeTablesFile, logger)
	if err != nil {
		return err
	}

	agencies := f.agencies()
	in, err := readInputs(f, agencies)
	if err != nil {
		return err
	}

	var counties []domain.County
	if len(f.counties) > 0 {
		client := census.NewClient(cfg.CensusCountyURL, cfg.HTTPTimeout, metrics, logger).WithRetries(cfg.HTTPRetries)
		counties, err = client.Resolve(ctx, f.counties)
		if err != nil {
			return fmt.Errorf("resolve counties: %w", err)
		}
		for _, c := range counties {
			logger.Info("searching county for new sites", "fips", c.FIPS, "county", c.Name, "state", c.State)
		}
	}

	sources := pipeline.Sources{
		NWIS: nwis.NewClient(cfg.NWISBaseURL, cfg.HTTPTimeout, metrics, logger).WithRetries(cfg.HTTPRetries),
		OWRD: owrd.NewClient(cfg.OWRDBaseURL, cfg.HTTPTimeout, metrics, logger).WithRetries(cfg.HTTPRetries),
		CDWR: cdwr.NewClient(cfg.CDWRBaseURL, cdwr.Resources{
			Periodic:   cfg.CDWRPeriodicResource,
			Continuous: cfg.CDWRContinuousResource,
			Stations:   cfg.CDWRStationsResource,
		}, cfg.HTTPTimeout, metrics, logger).WithRetries(cfg.HTTPRetries),
	}

	sink := output.NewWriter(output.Files{
		Waterlevel: f.output,
		Summary:    f.summary,
		Collection: f.collectionOut,
	}, version, logger)

	var publisher pipeline.MeasurementPublisher
	if cfg.PublishEnabled() {
		p := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := p.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = p
	}

	runID := uuid.NewString()
	p := pipeline.New(sources, translator, sink, publisher, logger, metrics, pipeline.Options{
		RunID:         runID,
		Agencies:      agencies,
		BatchSize:     cfg.BatchSize,
		CDWRBatchSize: cfg.CDWRBatchSize,
		ActiveWindow:  cfg.ActiveWindow,
		MinCount:      f.minCount,
		Counties:      counties,
	})

	if cfg.StatusAddr != "" {
		srv := httpadapter.NewServer(cfg.StatusAddr, p, registry, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown error", "error", err)
			}
		}()
	}

	res, err := p.Run(ctx, in)
	if res != nil {
		if werr := res.Report.WriteText(cmd.OutOrStdout()); werr != nil {
			logger.Warn("print report", "error", werr)
		}
	}
	if err != nil {
		logger.Error("run failed", "run_id", runID, "error", err)
		return err
	}
	return nil
}

func loadTranslator(path string, logger *slog.Logger) (*domain.Translator, error) {
	if path == "" {
		return domain.DefaultTranslator(logger), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open code tables: %w", err)
	}
	defer f.Close()
	return domain.LoadTranslator(f, logger)
}

// readInputs loads the collection and the OWRD export files.
func readInputs(f buildFlags, agencies []string) (pipeline.Inputs, error) {
	var in pipeline.Inputs

	file, err := os.Open(f.collection)
	if err != nil {
		return in, fmt.Errorf("open collection: %w", err)
	}
	defer file.Close()
	rows, err := rdb.DecodeAll[domain.SiteInfo](file, "site_id", "agency_cd")
	if err != nil {
		return in, fmt.Errorf("read collection %s: %w", f.collection, err)
	}
	if in.Sites, err = domain.SitesFromCollection(rows); err != nil {
		return in, fmt.Errorf("read collection %s: %w", f.collection, err)
	}

	if f.owrdOtherID != "" {
		if in.OtherIDs, err = owrd.ReadOtherIDs(f.owrdOtherID); err != nil {
			return in, err
		}
	}

	if !slices.Contains(agencies, domain.AgencyOWRD) {
		return in, nil
	}
	if f.owrdGW == "" {
		return in, errors.New("--owrd-gw is required when importing OWRD")
	}
	if in.OWRDPeriodic, err = owrd.ReadMeasurements(f.owrdGW); err != nil {
		return in, err
	}
	if f.owrdRC != "" {
		if in.OWRDRecorder, err = owrd.ReadRecorder(f.owrdRC); err != nil {
			return in, err
		}
	}
	return in, nil
}

func validFIPS(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var _ pipeline.Sink = (*output.Writer)(nil)
