package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Canonical agency codes.
const (
	AgencyUSGS = "USGS"
	AgencyOWRD = "OWRD"
	AgencyCDWR = "CDWR"
)

// Agencies lists the importing agencies in merge precedence order.
var Agencies = []string{AgencyUSGS, AgencyOWRD, AgencyCDWR}

// IsCanonicalAgency reports whether a is one of the importing agencies.
func IsCanonicalAgency(a string) bool {
	for _, x := range Agencies {
		if a == x {
			return true
		}
	}
	return false
}

// Period-of-record status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// SiteInfo holds the descriptive columns of a collection file row.
type SiteInfo struct {
	SiteID        string `csv:"site_id"`
	AgencyCd      string `csv:"agency_cd"`
	SiteNo        string `csv:"site_no"`
	CoopSiteNo    string `csv:"coop_site_no"`
	StateWellNmbr string `csv:"state_well_nmbr"`
	CDWRID        string `csv:"cdwr_id"`
	StationNm     string `csv:"station_nm"`
	Periodic      string `csv:"periodic"`
	Recorder      string `csv:"recorder"`
	DecLatVa      string `csv:"dec_lat_va"`
	DecLongVa     string `csv:"dec_long_va"`
	AltVa         string `csv:"alt_va"`
	AltAcyVa      string `csv:"alt_acy_va"`
	AltDatumCd    string `csv:"alt_datum_cd"`
	WellDepthVa   string `csv:"well_depth_va"`
}

// Site is one physical well with its period-of-record rollups.
type Site struct {
	SiteInfo

	// GW summarizes periodic measurements, RC recorder (continuous) data.
	GW Rollup
	RC Rollup
}

// Candidate is a site seen in an agency feed that the collection does not
// know about. Candidates are written as commented rows for operator review.
type Candidate struct {
	Site   SiteInfo
	Agency string
	// Recorder is true for continuous-sensor sites, false for periodic.
	Recorder bool
	Count    int
}

var errNoIdentifier = errors.New("site has no USGS, OWRD, or CDWR identifier")

// SitesFromCollection validates collection rows and returns them as Sites.
// A row whose cross-reference columns are all empty takes its identifier
// from site_id according to agency_cd.
func SitesFromCollection(rows []SiteInfo) ([]Site, error) {
	seen := make(map[string]bool, len(rows))
	sites := make([]Site, 0, len(rows))
	for i, row := range rows {
		if row.SiteID == "" {
			return nil, fmt.Errorf("collection row %d: empty site_id", i+1)
		}
		if seen[row.SiteID] {
			return nil, fmt.Errorf("collection row %d: duplicate site_id %s", i+1, row.SiteID)
		}
		seen[row.SiteID] = true

		if row.SiteNo == "" && row.CoopSiteNo == "" && row.CDWRID == "" {
			switch strings.ToUpper(row.AgencyCd) {
			case AgencyUSGS:
				row.SiteNo = row.SiteID
			case AgencyOWRD:
				row.CoopSiteNo = row.SiteID
			case AgencyCDWR:
				row.CDWRID = row.SiteID
			default:
				return nil, fmt.Errorf("collection row %d (%s): %w", i+1, row.SiteID, errNoIdentifier)
			}
		}
		sites = append(sites, Site{SiteInfo: row})
	}
	return sites, nil
}

// Period is a begin/end/status/count summary over a set of dates.
type Period struct {
	Begin  string
	End    string
	Status string
	Count  int
}

// IsZero reports whether the period carries no data.
func (p Period) IsZero() bool {
	return p.Begin == "" && p.End == "" && p.Count == 0
}

// PeriodFromKeys summarizes deduplication keys. Keys are zero-padded ISO
// dates (or year / year-month prefixes), so lexical order is chronological.
func PeriodFromKeys(keys []string) Period {
	if len(keys) == 0 {
		return Period{}
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return Period{Begin: sorted[0], End: sorted[len(sorted)-1], Count: len(sorted)}
}

// CombinePeriods spans the given periods: earliest begin, latest end, and
// the sum of counts. Empty periods are ignored.
func CombinePeriods(periods ...Period) Period {
	var out Period
	for _, p := range periods {
		if p.IsZero() {
			continue
		}
		if out.Begin == "" || (p.Begin != "" && p.Begin < out.Begin) {
			out.Begin = p.Begin
		}
		if p.End > out.End {
			out.End = p.End
		}
		out.Count += p.Count
	}
	return out
}

// ActiveStatus returns Active when end falls on or after now minus window,
// Inactive otherwise, and "" when end is empty or unparseable.
func ActiveStatus(end string, now time.Time, window time.Duration) string {
	if end == "" {
		return ""
	}
	t, err := ParseEndDate(end)
	if err != nil {
		return ""
	}
	if t.Before(now.Add(-window)) {
		return StatusInactive
	}
	return StatusActive
}

// Rollup holds per-agency periods and their aggregate.
type Rollup struct {
	// Agencies that contributed data, in precedence order.
	Agencies []string
	Total    Period
	ByAgency map[string]Period
}

// Agency returns the period for one agency, or the zero Period.
func (r Rollup) Agency(a string) Period {
	return r.ByAgency[a]
}

// AgencyList joins the contributing agencies with commas.
func (r Rollup) AgencyList() string {
	return strings.Join(r.Agencies, ",")
}

// NewRollup builds a Rollup from per-agency periods and stamps statuses.
func NewRollup(byAgency map[string]Period, now time.Time, window time.Duration) Rollup {
	r := Rollup{ByAgency: make(map[string]Period, len(byAgency))}
	var parts []Period
	for _, a := range Agencies {
		p, ok := byAgency[a]
		if !ok || p.IsZero() {
			continue
		}
		p.Status = ActiveStatus(p.End, now, window)
		r.ByAgency[a] = p
		r.Agencies = append(r.Agencies, a)
		parts = append(parts, p)
	}
	r.Total = CombinePeriods(parts...)
	r.Total.Status = ActiveStatus(r.Total.End, now, window)
	return r
}
