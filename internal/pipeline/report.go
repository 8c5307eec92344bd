package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// AgencyReport is the per-agency part of a run report.
type AgencyReport struct {
	Agency     string
	Imported   int
	Kept       int
	Duplicates int
	Reassigned int
	Rejected   int
	Recorders  int
	Candidates int
	Missing    []string
}

// Report summarizes a run for operators.
type Report struct {
	RunID        string
	Sites        int
	Measurements int
	// WebEligible counts measurements with lev_web_cd "Y".
	WebEligible int
	Agencies    []AgencyReport
	Unmapped    []domain.UnmappedCode
}

// NewReport builds the run report.
func NewReport(res *Result, imports []*AgencyImport, merged MergeResult, unmapped []domain.UnmappedCode) Report {
	r := Report{
		RunID:        res.RunID,
		Sites:        len(res.Sites),
		Measurements: len(res.Measurements),
		Unmapped:     unmapped,
	}
	for _, m := range res.Measurements {
		if m.WebCd == "Y" {
			r.WebEligible++
		}
	}
	for _, imp := range byPrecedence(imports) {
		r.Agencies = append(r.Agencies, AgencyReport{
			Agency:     imp.Agency,
			Imported:   imp.Imported,
			Kept:       merged.Kept[imp.Agency],
			Duplicates: merged.Duplicates[imp.Agency] + imp.SameAgencyDuplicates,
			Reassigned: merged.Reassigned[imp.Agency],
			Rejected:   imp.Rejected,
			Recorders:  len(imp.Recorder),
			Candidates: len(imp.Candidates),
			Missing:    imp.Missing,
		})
	}
	return r
}

// Log writes the report as structured log records.
func (r Report) Log(logger *slog.Logger) {
	for _, a := range r.Agencies {
		logger.Info("agency summary",
			"agency", a.Agency,
			"imported", a.Imported,
			"kept", a.Kept,
			"duplicates", a.Duplicates,
			"reassigned", a.Reassigned,
			"rejected", a.Rejected,
			"recorders", a.Recorders,
			"candidates", a.Candidates,
			"missing", len(a.Missing),
		)
	}
	for _, u := range r.Unmapped {
		logger.Warn("unmapped code",
			"agency", u.Agency,
			"category", u.Category,
			"value", u.Value,
			"count", u.Count,
		)
	}
}

// WriteText prints the report as an aligned table.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "agency\timported\tkept\tduplicates\treassigned\trejected\trecorders\tcandidates\tmissing\t\n")
	for _, a := range r.Agencies {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			a.Agency, a.Imported, a.Kept, a.Duplicates, a.Reassigned,
			a.Rejected, a.Recorders, a.Candidates, len(a.Missing))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nrun %s: %d sites, %d measurements (%d web eligible)\n",
		r.RunID, r.Sites, r.Measurements, r.WebEligible)
	for _, a := range r.Agencies {
		if len(a.Missing) > 0 {
			fmt.Fprintf(w, "%s sites without measurements: %s\n", a.Agency, strings.Join(a.Missing, ", "))
		}
	}
	for _, u := range r.Unmapped {
		fmt.Fprintf(w, "unmapped %s %s %q seen %d times\n", u.Agency, u.Category, u.Value, u.Count)
	}
	return nil
}
