package pipeline

import (
	"sort"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// AgencyImport is what one agency importer hands to the merge step.
type AgencyImport struct {
	Agency string
	// Periodic maps site_id to deduplication key to measurement, for
	// collection sites only.
	Periodic map[string]map[string]domain.Measurement
	// Recorder maps site_id to the continuous-data period of record.
	Recorder map[string]domain.Period
	// Metadata holds descriptive fields reported by the agency, used to fill
	// empty collection columns.
	Metadata map[string]domain.SiteInfo
	// Missing lists requested identifiers for which the feed had no data.
	Missing []string
	// Candidates are sites found in the feed that the collection lacks.
	Candidates []domain.Candidate

	// Imported counts normalized measurements for collection sites.
	Imported int
	// SameAgencyDuplicates counts readings that replaced an earlier one on
	// the same key from the same agency.
	SameAgencyDuplicates int
	// Rejected counts rows whose date or time could not be parsed.
	Rejected int
}

func newAgencyImport(agency string) *AgencyImport {
	return &AgencyImport{
		Agency:   agency,
		Periodic: make(map[string]map[string]domain.Measurement),
		Recorder: make(map[string]domain.Period),
		Metadata: make(map[string]domain.SiteInfo),
	}
}

// add stores m under its site and key. A later reading on a key already
// taken replaces the earlier one, so the last row in feed order wins.
func (a *AgencyImport) add(m domain.Measurement) {
	site, ok := a.Periodic[m.SiteID]
	if !ok {
		site = make(map[string]domain.Measurement)
		a.Periodic[m.SiteID] = site
	}
	if _, dup := site[m.Key]; dup {
		a.SameAgencyDuplicates++
	} else {
		a.Imported++
	}
	site[m.Key] = m
}

// setRecorder records a recorder period from a set of local dates.
func (a *AgencyImport) setRecorder(siteID string, dates map[string]struct{}) {
	if len(dates) == 0 {
		return
	}
	keys := make([]string, 0, len(dates))
	for d := range dates {
		keys = append(keys, d)
	}
	a.Recorder[siteID] = domain.PeriodFromKeys(keys)
}

// missingFrom sets Missing to the requested identifiers not in seen.
func (a *AgencyImport) missingFrom(requested []string, seen map[string]bool) {
	for _, id := range requested {
		if !seen[id] {
			a.Missing = append(a.Missing, id)
		}
	}
	sort.Strings(a.Missing)
}

// candidateTally accumulates readings of one site the collection lacks.
type candidateTally struct {
	site domain.SiteInfo
	keys map[string]struct{}
	// count is a reading count reported by the agency rather than tallied.
	count int
	// uncounted marks candidates whose reading count is not known.
	uncounted bool
}

func (t *candidateTally) total() int {
	return max(len(t.keys), t.count)
}

type candidateSet map[string]*candidateTally

func (c candidateSet) touch(site domain.SiteInfo) *candidateTally {
	t, ok := c[site.SiteID]
	if !ok {
		t = &candidateTally{site: site, keys: make(map[string]struct{})}
		c[site.SiteID] = t
	}
	return t
}

// list returns the candidates in site_id order. Periodic candidates with a
// known count below minCount are dropped.
func (c candidateSet) list(agency string, recorder bool, minCount int) []domain.Candidate {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.Candidate
	for _, id := range ids {
		t := c[id]
		if !recorder && !t.uncounted && t.total() < minCount {
			continue
		}
		out = append(out, domain.Candidate{
			Site:     t.site,
			Agency:   agency,
			Recorder: recorder,
			Count:    t.total(),
		})
	}
	return out
}

// fillEmpty copies src fields into empty fields of dst.
func fillEmpty(dst *domain.SiteInfo, src domain.SiteInfo) {
	setIfEmpty(&dst.StationNm, src.StationNm)
	setIfEmpty(&dst.StateWellNmbr, src.StateWellNmbr)
	setIfEmpty(&dst.DecLatVa, src.DecLatVa)
	setIfEmpty(&dst.DecLongVa, src.DecLongVa)
	setIfEmpty(&dst.AltVa, src.AltVa)
	setIfEmpty(&dst.AltAcyVa, src.AltAcyVa)
	setIfEmpty(&dst.AltDatumCd, src.AltDatumCd)
	setIfEmpty(&dst.WellDepthVa, src.WellDepthVa)
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		out = append(out, ids[start:min(start+size, len(ids))])
	}
	return out
}
