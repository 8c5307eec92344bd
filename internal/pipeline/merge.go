package pipeline

import (
	"sort"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// MergeResult is the reconciled view of all imports.
type MergeResult struct {
	Sites        []domain.Site
	Measurements []domain.Measurement
	// Kept counts surviving measurements by importing agency.
	Kept map[string]int
	// Duplicates counts readings dropped because an agency earlier in
	// precedence order already had the same site and date.
	Duplicates map[string]int
	// Reassigned counts readings whose measuring agency was not canonical
	// and was set to the importing agency.
	Reassigned map[string]int
}

// Merge combines the imports into one measurement per site and local date,
// preferring USGS, then OWRD, then CDWR, and stamps each collection site
// with its period-of-record rollups. Only collection sites are emitted.
func Merge(sites []domain.Site, imports []*AgencyImport, now time.Time, window time.Duration) MergeResult {
	ordered := byPrecedence(imports)
	res := MergeResult{
		Sites:      make([]domain.Site, 0, len(sites)),
		Kept:       make(map[string]int),
		Duplicates: make(map[string]int),
		Reassigned: make(map[string]int),
	}

	sorted := append([]domain.Site(nil), sites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SiteID < sorted[j].SiteID })

	for _, site := range sorted {
		merged := make(map[string]domain.Measurement)
		for _, imp := range ordered {
			readings := imp.Periodic[site.SiteID]
			for _, key := range sortedKeys(readings) {
				if _, taken := merged[key]; taken {
					res.Duplicates[imp.Agency]++
					continue
				}
				m := readings[key]
				if !domain.IsCanonicalAgency(m.MeasuringAgency) {
					m.MeasuringAgency = imp.Agency
					res.Reassigned[imp.Agency]++
				}
				merged[key] = m
				res.Kept[imp.Agency]++
			}
		}

		gw := make(map[string][]string)
		rows := make([]domain.Measurement, 0, len(merged))
		for key, m := range merged {
			gw[m.MeasuringAgency] = append(gw[m.MeasuringAgency], key)
			rows = append(rows, m)
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].DateTimeUTC != rows[j].DateTimeUTC {
				return rows[i].DateTimeUTC < rows[j].DateTimeUTC
			}
			return rows[i].Key < rows[j].Key
		})
		res.Measurements = append(res.Measurements, rows...)

		gwPeriods := make(map[string]domain.Period, len(gw))
		for agency, keys := range gw {
			gwPeriods[agency] = domain.PeriodFromKeys(keys)
		}
		rcPeriods := make(map[string]domain.Period)
		for _, imp := range ordered {
			if p, ok := imp.Recorder[site.SiteID]; ok {
				rcPeriods[imp.Agency] = p
			}
			fillEmpty(&site.SiteInfo, imp.Metadata[site.SiteID])
		}

		site.GW = domain.NewRollup(gwPeriods, now, window)
		site.RC = domain.NewRollup(rcPeriods, now, window)
		site.Periodic = site.GW.AgencyList()
		site.Recorder = site.RC.AgencyList()
		res.Sites = append(res.Sites, site)
	}
	return res
}

// byPrecedence orders imports USGS, OWRD, CDWR regardless of run order.
func byPrecedence(imports []*AgencyImport) []*AgencyImport {
	rank := make(map[string]int, len(domain.Agencies))
	for i, a := range domain.Agencies {
		rank[a] = i
	}
	out := append([]*AgencyImport(nil), imports...)
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].Agency] < rank[out[j].Agency] })
	return out
}

func sortedKeys(m map[string]domain.Measurement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
