package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
)

// NWISSource reads the USGS NWIS web services.
type NWISSource interface {
	GroundwaterLevels(ctx context.Context, siteNos []string) ([]domain.NWISLevel, error)
	SeriesCatalog(ctx context.Context, siteNos []string) ([]domain.NWISSeries, error)
	Sites(ctx context.Context, siteNos []string) ([]domain.NWISSite, error)
	CountySites(ctx context.Context, fips []string) ([]domain.NWISSite, error)
	CountySeries(ctx context.Context, fips []string) ([]domain.NWISSeries, error)
}

// OWRDSource reads the OWRD REST API, used for well logs missing from the
// export file.
type OWRDSource interface {
	MeasuredLevels(ctx context.Context, gwLogID string, throughYear int) ([]domain.OWRDLevel, error)
}

// CDWRSource reads the CNRA open-data datastore.
type CDWRSource interface {
	PeriodicLevels(ctx context.Context, siteCodes []string) ([]domain.CDWRLevel, error)
	ContinuousReadings(ctx context.Context, stations []string) ([]domain.CDWRContinuous, error)
	Stations(ctx context.Context, counties []string) ([]domain.CDWRStation, error)
}

// Sink persists the outputs of a run.
type Sink interface {
	Write(ctx context.Context, res *Result) error
}

// MeasurementPublisher streams merged measurements downstream.
type MeasurementPublisher interface {
	PublishBatch(ctx context.Context, runID string, measurements []domain.Measurement) (int, error)
}

// Sources holds the agency feeds. A nil NWIS or CDWR source disables that
// importer; a nil OWRD source only disables the API fallback.
type Sources struct {
	NWIS NWISSource
	OWRD OWRDSource
	CDWR CDWRSource
}

// Options tunes a run.
type Options struct {
	RunID string
	// Agencies restricts the run to these importers; empty means all.
	Agencies      []string
	BatchSize     int
	CDWRBatchSize int
	ActiveWindow  time.Duration
	// MinCount is the fewest periodic readings a candidate site needs.
	MinCount int
	// Counties enables discovery of sites missing from the collection.
	Counties []domain.County
}

// Inputs are the local files of a run.
type Inputs struct {
	Sites        []domain.Site
	OtherIDs     []domain.OWRDOtherID
	OWRDPeriodic []domain.OWRDLevel
	OWRDRecorder []domain.OWRDRecorderRow
}

// Result is everything a run produced.
type Result struct {
	RunID      string
	RecordedOn time.Time
	// Sites are the collection sites with rollups, ordered by site_id.
	Sites []domain.Site
	// Measurements are the merged readings ordered by site_id and lev_dtm.
	Measurements []domain.Measurement
	Candidates   []domain.Candidate
	Report       Report
}

// Pipeline runs the importers, merges their output, and hands the result to
// the sink.
type Pipeline struct {
	sources    Sources
	translator *domain.Translator
	sink       Sink
	publisher  MeasurementPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	mu     sync.Mutex
	status Status
}

// Run phases reported by Status.
const (
	PhaseIdle       = "idle"
	PhaseImporting  = "importing"
	PhaseMerging    = "merging"
	PhaseWriting    = "writing"
	PhasePublishing = "publishing"
	PhaseDone       = "done"
	PhaseFailed     = "failed"
)

// Status is a snapshot of run progress.
type Status struct {
	RunID  string `json:"run_id"`
	Phase  string `json:"phase"`
	Agency string `json:"agency,omitempty"`
	Error  string `json:"error,omitempty"`
}

// New creates a Pipeline. publisher may be nil.
func New(src Sources, tr *domain.Translator, sink Sink, publisher MeasurementPublisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = 50
	}
	if opts.CDWRBatchSize < 1 {
		opts.CDWRBatchSize = 10
	}
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = 365 * 24 * time.Hour
	}
	return &Pipeline{
		sources:    src,
		translator: tr,
		sink:       sink,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		status:     Status{RunID: opts.RunID, Phase: PhaseIdle},
	}
}

// Status returns the current run progress.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// CheckReadiness reports an error once a run has failed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	st := p.Status()
	if st.Phase == PhaseFailed {
		return fmt.Errorf("run %s failed: %s", st.RunID, st.Error)
	}
	return nil
}

func (p *Pipeline) setPhase(phase, agency string) {
	p.mu.Lock()
	p.status.Phase = phase
	p.status.Agency = agency
	p.mu.Unlock()
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.status.Phase = PhaseFailed
	p.status.Agency = ""
	p.status.Error = err.Error()
	p.mu.Unlock()
}

// Run executes one reconciliation: import, merge, write, and optionally
// publish. Any source or sink error aborts the run before outputs are
// replaced.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	res, err := p.run(ctx, in)
	if err != nil {
		p.fail(err)
		return res, err
	}
	p.setPhase(PhaseDone, "")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	now := domain.Now()
	p.logger.Info("run started",
		"run_id", p.opts.RunID,
		"sites", len(in.Sites),
		"agencies", p.agencies(),
	)

	resolver := domain.NewResolver(in.Sites, domain.OtherIDMap(in.OtherIDs, nil))

	var imports []*AgencyImport
	for _, agency := range p.agencies() {
		p.setPhase(PhaseImporting, agency)
		imp, err := p.importAgency(ctx, agency, resolver, in)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", agency, err)
		}
		if imp == nil {
			continue
		}
		p.recordImport(imp)
		imports = append(imports, imp)
	}

	p.setPhase(PhaseMerging, "")
	merged := Merge(resolver.Sites(), imports, now, p.opts.ActiveWindow)
	res := &Result{
		RunID:        p.opts.RunID,
		RecordedOn:   now,
		Sites:        merged.Sites,
		Measurements: merged.Measurements,
	}
	for _, imp := range imports {
		res.Candidates = append(res.Candidates, imp.Candidates...)
	}
	for agency, n := range merged.Duplicates {
		p.metrics.DuplicatesRemoved.WithLabelValues(agency).Add(float64(n))
	}

	p.setPhase(PhaseWriting, "")
	if err := p.sink.Write(ctx, res); err != nil {
		return nil, fmt.Errorf("write outputs: %w", err)
	}
	p.metrics.SitesWritten.Set(float64(len(res.Sites)))
	p.metrics.MeasurementsWritten.Set(float64(len(res.Measurements)))

	unmapped := p.translator.Unmapped()
	for _, u := range unmapped {
		p.metrics.UnmappedCodes.WithLabelValues(u.Agency, u.Category).Add(float64(u.Count))
	}

	res.Report = NewReport(res, imports, merged, unmapped)
	res.Report.Log(p.logger)

	if p.publisher != nil && len(res.Measurements) > 0 {
		p.setPhase(PhasePublishing, "")
		n, err := p.publisher.PublishBatch(ctx, res.RunID, res.Measurements)
		p.metrics.MeasurementsPublished.Add(float64(n))
		if err != nil {
			return res, fmt.Errorf("publish measurements: %w", err)
		}
		p.logger.Info("measurements published", "count", n)
	}

	elapsed := time.Since(start)
	p.metrics.RunDuration.Set(elapsed.Seconds())
	p.logger.Info("run finished",
		"run_id", p.opts.RunID,
		"sites", len(res.Sites),
		"measurements", len(res.Measurements),
		"duration", elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// agencies returns the enabled importers in precedence order.
func (p *Pipeline) agencies() []string {
	if len(p.opts.Agencies) == 0 {
		return domain.Agencies
	}
	want := make(map[string]bool, len(p.opts.Agencies))
	for _, a := range p.opts.Agencies {
		want[a] = true
	}
	var out []string
	for _, a := range domain.Agencies {
		if want[a] {
			out = append(out, a)
		}
	}
	return out
}

// importAgency runs one importer. It returns nil when the importer has no
// source configured.
func (p *Pipeline) importAgency(ctx context.Context, agency string, resolver *domain.Resolver, in Inputs) (*AgencyImport, error) {
	logger := p.logger.With("agency", agency)
	switch agency {
	case domain.AgencyUSGS:
		if p.sources.NWIS == nil {
			logger.Warn("no NWIS source configured, skipping")
			return nil, nil
		}
		imp := &usgsImporter{
			src:        p.sources.NWIS,
			translator: p.translator,
			resolver:   resolver,
			logger:     logger,
			batchSize:  p.opts.BatchSize,
			minCount:   p.opts.MinCount,
			counties:   p.opts.Counties,
		}
		return imp.Import(ctx)
	case domain.AgencyOWRD:
		imp := &owrdImporter{
			api:        p.sources.OWRD,
			translator: p.translator,
			resolver:   resolver,
			logger:     logger,
			minCount:   p.opts.MinCount,
			counties:   p.opts.Counties,
		}
		return imp.Import(ctx, in.OWRDPeriodic, in.OWRDRecorder)
	case domain.AgencyCDWR:
		if p.sources.CDWR == nil {
			logger.Warn("no CDWR source configured, skipping")
			return nil, nil
		}
		imp := &cdwrImporter{
			src:        p.sources.CDWR,
			translator: p.translator,
			resolver:   resolver,
			logger:     logger,
			batchSize:  p.opts.CDWRBatchSize,
			minCount:   p.opts.MinCount,
			counties:   p.opts.Counties,
		}
		return imp.Import(ctx)
	}
	return nil, fmt.Errorf("unknown agency %q", agency)
}

func (p *Pipeline) recordImport(imp *AgencyImport) {
	p.metrics.MeasurementsImported.WithLabelValues(imp.Agency).Add(float64(imp.Imported))
	p.metrics.MeasurementsRejected.WithLabelValues(imp.Agency).Add(float64(imp.Rejected))
	p.metrics.MissingSites.WithLabelValues(imp.Agency).Add(float64(len(imp.Missing)))
	p.metrics.DuplicatesRemoved.WithLabelValues(imp.Agency).Add(float64(imp.SameAgencyDuplicates))
	for _, id := range imp.Missing {
		p.logger.Warn("site has no waterlevel measurements", "agency", imp.Agency, "site", id)
	}
}
