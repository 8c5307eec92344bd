package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
)

type waterlevelRow struct {
	SiteID string `csv:"site_id"`
	Date   string `csv:"lev_dt"`
	Agency string `csv:"lev_agency_cd"`
}

type summaryRow struct {
	SiteID  string `csv:"site_id"`
	GWBegin string `csv:"gw_begin_date"`
	GWEnd   string `csv:"gw_end_date"`
	GWCount string `csv:"gw_count"`
}

// Problem is one integrity violation found by Check.
type Problem struct {
	SiteID  string
	Message string
}

func (p Problem) String() string {
	return p.SiteID + ": " + p.Message
}

// Check cross-validates a waterlevel file against its site summary. It
// reports readings for unknown sites, repeated dates, non-canonical
// agencies, and periods that disagree with the readings.
func Check(waterlevel, summary io.Reader) ([]Problem, error) {
	levels, err := rdb.DecodeAll[waterlevelRow](waterlevel, "site_id", "lev_dt", "lev_agency_cd")
	if err != nil {
		return nil, fmt.Errorf("read waterlevel: %w", err)
	}
	sites, err := rdb.DecodeAll[summaryRow](summary, "site_id", "gw_begin_date", "gw_end_date", "gw_count")
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	var problems []Problem
	report := func(site, format string, args ...any) {
		problems = append(problems, Problem{SiteID: site, Message: fmt.Sprintf(format, args...)})
	}

	known := make(map[string]bool, len(sites))
	for _, s := range sites {
		if known[s.SiteID] {
			report(s.SiteID, "listed twice in summary")
		}
		known[s.SiteID] = true
	}

	dates := make(map[string][]string)
	seen := make(map[[2]string]bool, len(levels))
	for _, l := range levels {
		if !known[l.SiteID] {
			report(l.SiteID, "reading on %s for a site missing from the summary", l.Date)
			continue
		}
		if !domain.IsCanonicalAgency(l.Agency) {
			report(l.SiteID, "reading on %s has agency %q", l.Date, l.Agency)
		}
		key := [2]string{l.SiteID, l.Date}
		if seen[key] {
			report(l.SiteID, "more than one reading on %s", l.Date)
			continue
		}
		seen[key] = true
		dates[l.SiteID] = append(dates[l.SiteID], l.Date)
	}

	for _, s := range sites {
		want := domain.PeriodFromKeys(dates[s.SiteID])
		count := 0
		if s.GWCount != "" {
			if count, err = strconv.Atoi(s.GWCount); err != nil {
				report(s.SiteID, "gw_count %q is not a number", s.GWCount)
				continue
			}
		}
		if count != want.Count {
			report(s.SiteID, "gw_count is %d but waterlevel has %d readings", count, want.Count)
		}
		if s.GWBegin != want.Begin || s.GWEnd != want.End {
			report(s.SiteID, "gw period %s..%s but readings span %s..%s", s.GWBegin, s.GWEnd, want.Begin, want.End)
		}
	}
	return problems, nil
}
