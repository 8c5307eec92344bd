package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

// NWIS parameter codes of continuous water-level series.
var recorderParms = map[string]bool{
	"62610": true, // groundwater level above NGVD 1929
	"62611": true, // groundwater level above NAVD 1988
	"72019": true, // depth to water level below land surface
}

type usgsImporter struct {
	src        NWISSource
	translator *domain.Translator
	resolver   *domain.Resolver
	logger     *slog.Logger
	batchSize  int
	minCount   int
	counties   []domain.County
}

// Import reads site metadata, field measurements, and recorder series for
// every USGS site number in the collection, then discovers candidate sites
// in the requested counties.
func (u *usgsImporter) Import(ctx context.Context) (*AgencyImport, error) {
	imp := newAgencyImport(domain.AgencyUSGS)
	siteNos := u.resolver.USGSSiteNumbers()
	seen := make(map[string]bool, len(siteNos))

	for _, batch := range chunk(siteNos, u.batchSize) {
		sites, err := u.src.Sites(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("site metadata: %w", err)
		}
		for _, s := range sites {
			if r := u.resolver.ResolveUSGS(s.SiteNo); r.Known {
				imp.Metadata[r.SiteID] = nwisSiteInfo(s)
			}
		}

		levels, err := u.src.GroundwaterLevels(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("groundwater levels: %w", err)
		}
		for _, row := range levels {
			r := u.resolver.ResolveUSGS(row.SiteNo)
			if !r.Known {
				continue
			}
			seen[row.SiteNo] = true
			m, err := u.measurement(row)
			if err != nil {
				imp.Rejected++
				u.logger.Warn("rejecting measurement", "site", row.SiteNo, "error", err)
				continue
			}
			site, _ := u.resolver.Site(r.SiteID)
			m.AttachSite(site.SiteInfo)
			imp.add(m)
		}

		series, err := u.src.SeriesCatalog(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("series catalog: %w", err)
		}
		for siteNo, p := range recorderPeriods(series) {
			if r := u.resolver.ResolveUSGS(siteNo); r.Known {
				imp.Recorder[r.SiteID] = p
				seen[siteNo] = true
			}
		}
	}
	imp.missingFrom(siteNos, seen)

	if len(u.counties) > 0 {
		if err := u.discover(ctx, imp); err != nil {
			return nil, fmt.Errorf("county discovery: %w", err)
		}
	}

	u.logger.Info("USGS import finished",
		"sites", len(siteNos),
		"measurements", imp.Imported,
		"recorders", len(imp.Recorder),
		"missing", len(imp.Missing),
		"candidates", len(imp.Candidates),
	)
	return imp, nil
}

// measurement converts one gwlevels row. NWIS method and accuracy codes are
// already canonical and are only checked against the vocabulary; accuracy is
// derived from the method when one is reported.
func (u *usgsImporter) measurement(row domain.NWISLevel) (domain.Measurement, error) {
	ts, err := domain.NormalizeNWIS(row.LevDt, row.LevTm, row.LevTzCd, row.LevDtAcyCd)
	if err != nil {
		return domain.Measurement{}, err
	}

	value := strings.TrimSpace(row.LevVa)
	status := u.translator.Status(domain.AgencyUSGS, row.SiteNo, row.LevStatusCd)
	method := u.translator.Method(domain.AgencyUSGS, row.SiteNo, row.LevMethCd)
	var accuracy string
	if method != "" {
		accuracy = u.translator.MethodAccuracy(domain.AgencyUSGS, row.SiteNo, method)
	} else {
		accuracy = u.translator.Accuracy(domain.AgencyUSGS, row.SiteNo, row.LevAcyCd)
	}
	if value == "" {
		accuracy = ""
	}
	rule := u.translator.Agency(domain.AgencyUSGS, row.SiteNo, row.LevAgencyCd)
	if rule.Method != "" {
		method = rule.Method
	}

	m := domain.Measurement{
		Value:           value,
		AccuracyCd:      accuracy,
		StatusCd:        status,
		MethodCd:        method,
		MeasuringAgency: rule.Agency,
		SourceCd:        rule.Source,
		WebCd:           domain.WebCode(value, status),
		Importer:        domain.AgencyUSGS,
	}
	m.SetTimestamp(ts)
	return m, nil
}

// discover lists groundwater sites in the requested counties that the
// collection lacks.
func (u *usgsImporter) discover(ctx context.Context, imp *AgencyImport) error {
	fips := make([]string, 0, len(u.counties))
	for _, c := range u.counties {
		fips = append(fips, c.FIPS)
	}

	info := make(map[string]domain.SiteInfo)
	var series []domain.NWISSeries
	for _, batch := range chunk(fips, u.batchSize) {
		sites, err := u.src.CountySites(ctx, batch)
		if err != nil {
			return err
		}
		for _, s := range sites {
			if !u.resolver.ResolveUSGS(s.SiteNo).Known {
				info[s.SiteNo] = nwisSiteInfo(s)
			}
		}
		rows, err := u.src.CountySeries(ctx, batch)
		if err != nil {
			return err
		}
		series = append(series, rows...)
	}

	periodic := make(candidateSet)
	recorder := make(candidateSet)
	for _, s := range series {
		site, ok := info[s.SiteNo]
		if !ok {
			continue
		}
		switch strings.ToLower(s.DataTypeCd) {
		case "gw":
			t := periodic.touch(site)
			t.count += parseCount(s.CountNu)
		case "dv", "iv":
			if recorderParms[s.ParmCd] {
				recorder.touch(site)
			}
		}
	}
	imp.Candidates = append(periodic.list(domain.AgencyUSGS, false, u.minCount),
		recorder.list(domain.AgencyUSGS, true, u.minCount)...)
	return nil
}

// recorderPeriods summarizes daily and instantaneous water-level series per
// site: earliest begin, latest end, and the count of the series ending last.
// Daily values win ties since their count is in days.
func recorderPeriods(series []domain.NWISSeries) map[string]domain.Period {
	type best struct {
		period domain.Period
		lastDT string
	}
	acc := make(map[string]*best)
	for _, s := range series {
		dt := strings.ToLower(s.DataTypeCd)
		if (dt != "dv" && dt != "iv") || !recorderParms[s.ParmCd] {
			continue
		}
		begin, end := datePart(s.BeginDate), datePart(s.EndDate)
		if begin == "" && end == "" {
			continue
		}
		b, ok := acc[s.SiteNo]
		if !ok {
			b = &best{period: domain.Period{Begin: begin, End: end, Count: parseCount(s.CountNu)}, lastDT: dt}
			acc[s.SiteNo] = b
			continue
		}
		if begin != "" && (b.period.Begin == "" || begin < b.period.Begin) {
			b.period.Begin = begin
		}
		if end > b.period.End || (end == b.period.End && dt == "dv" && b.lastDT != "dv") {
			b.period.End = end
			b.period.Count = parseCount(s.CountNu)
			b.lastDT = dt
		}
	}

	out := make(map[string]domain.Period, len(acc))
	for siteNo, b := range acc {
		out[siteNo] = b.period
	}
	return out
}

func nwisSiteInfo(s domain.NWISSite) domain.SiteInfo {
	depth := strings.TrimSpace(s.WellDepthVa)
	if depth == "" {
		depth = strings.TrimSpace(s.HoleDepthVa)
	}
	return domain.SiteInfo{
		SiteID:      s.SiteNo,
		AgencyCd:    domain.AgencyUSGS,
		SiteNo:      s.SiteNo,
		StationNm:   strings.TrimSpace(s.StationNm),
		DecLatVa:    strings.TrimSpace(s.DecLatVa),
		DecLongVa:   strings.TrimSpace(s.DecLongVa),
		AltVa:       strings.TrimSpace(s.AltVa),
		AltAcyVa:    strings.TrimSpace(s.AltAcyVa),
		AltDatumCd:  strings.TrimSpace(s.AltDatumCd),
		WellDepthVa: depth,
	}
}

func datePart(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
