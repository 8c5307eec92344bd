package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

type cdwrImporter struct {
	src        CDWRSource
	translator *domain.Translator
	resolver   *domain.Resolver
	logger     *slog.Logger
	batchSize  int
	minCount   int
	counties   []domain.County
}

// Import queries periodic measurements by site code and continuous
// readings by state well number, then reads the station table of the
// requested counties for site descriptions and candidates.
func (c *cdwrImporter) Import(ctx context.Context) (*AgencyImport, error) {
	imp := newAgencyImport(domain.AgencyCDWR)
	codes := c.resolver.CDWRCodes()
	seen := make(map[string]bool, len(codes))

	for _, batch := range chunk(codes, c.batchSize) {
		levels, err := c.src.PeriodicLevels(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("periodic levels: %w", err)
		}
		for _, row := range levels {
			code := strings.TrimSpace(row.SiteCode)
			r := c.resolver.ResolveCDWR(code)
			if !r.Known {
				continue
			}
			seen[code] = true
			ts, err := domain.NormalizeCDWR(row.MsmtDate)
			if err != nil {
				imp.Rejected++
				c.logger.Warn("rejecting measurement", "site", code, "error", err)
				continue
			}
			m := c.measurement(code, row, ts)
			site, _ := c.resolver.Site(r.SiteID)
			m.AttachSite(site.SiteInfo)
			imp.add(m)
		}
	}

	dates := make(map[string]map[string]struct{})
	for _, batch := range chunk(c.resolver.StationNumbers(), c.batchSize) {
		readings, err := c.src.ContinuousReadings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("continuous readings: %w", err)
		}
		for _, row := range readings {
			r := c.resolver.ResolveStation(strings.TrimSpace(row.Station))
			if !r.Known {
				continue
			}
			ts, err := domain.NormalizeCDWR(row.MsmtDate)
			if err != nil {
				imp.Rejected++
				c.logger.Warn("rejecting continuous reading", "station", row.Station, "error", err)
				continue
			}
			site, _ := c.resolver.Site(r.SiteID)
			seen[site.CDWRID] = true
			if dates[r.SiteID] == nil {
				dates[r.SiteID] = make(map[string]struct{})
			}
			dates[r.SiteID][ts.Key()] = struct{}{}
		}
	}
	for siteID, d := range dates {
		imp.setRecorder(siteID, d)
	}
	imp.missingFrom(codes, seen)

	if len(c.counties) > 0 {
		if err := c.discover(ctx, imp); err != nil {
			return nil, fmt.Errorf("station discovery: %w", err)
		}
	}

	c.logger.Info("CDWR import finished",
		"sites", len(codes),
		"measurements", imp.Imported,
		"recorders", len(imp.Recorder),
		"missing", len(imp.Missing),
		"candidates", len(imp.Candidates),
	)
	return imp, nil
}

// measurement converts one periodic reading. The cooperating organization
// is the measuring agency; the record counts as agency-sourced when the
// organization that entered it differs.
func (c *cdwrImporter) measurement(code string, row domain.CDWRLevel, ts domain.Timestamp) domain.Measurement {
	value := strings.TrimSpace(row.Value)
	status := c.translator.Status(domain.AgencyCDWR, code, row.QADetail)
	method := c.translator.Method(domain.AgencyCDWR, code, row.MethodDesc)
	accuracy := c.translator.Accuracy(domain.AgencyCDWR, code, row.AccuracyDes)
	if value == "" {
		accuracy = ""
	}

	measuring := c.translator.Agency(domain.AgencyCDWR, code, row.CoopOrgName)
	entering := c.translator.Agency(domain.AgencyCDWR, code, row.OrgName)
	source := "A"
	if measuring.Agency == domain.AgencyUSGS || measuring.Agency == entering.Agency {
		source = "S"
	}
	if measuring.Method != "" {
		method = measuring.Method
	}

	m := domain.Measurement{
		Value:           value,
		AccuracyCd:      accuracy,
		StatusCd:        status,
		MethodCd:        method,
		MeasuringAgency: measuring.Agency,
		SourceCd:        source,
		WebCd:           domain.WebCode(value, status),
		Importer:        domain.AgencyCDWR,
	}
	m.SetTimestamp(ts)
	return m
}

// discover reads the station table for the requested counties. Known sites
// get their descriptions filled; unknown ones become candidates, listed
// regardless of the minimum count since the table carries none.
func (c *cdwrImporter) discover(ctx context.Context, imp *AgencyImport) error {
	names := make([]string, 0, len(c.counties))
	for _, county := range c.counties {
		names = append(names, county.StationCounty())
	}

	periodic := make(candidateSet)
	recorder := make(candidateSet)
	for _, batch := range chunk(names, c.batchSize) {
		stations, err := c.src.Stations(ctx, batch)
		if err != nil {
			return err
		}
		for _, s := range stations {
			code := strings.TrimSpace(s.SiteCode)
			if code == "" {
				continue
			}
			info := stationInfo(s)
			r := c.resolver.ResolveCDWR(code)
			if r.Known {
				imp.Metadata[r.SiteID] = info
				continue
			}
			periodic.touch(info).uncounted = true
			if strings.TrimSpace(s.ContinuousStation) != "" {
				recorder.touch(info).uncounted = true
			}
		}
	}
	imp.Candidates = append(imp.Candidates, periodic.list(domain.AgencyCDWR, false, c.minCount)...)
	imp.Candidates = append(imp.Candidates, recorder.list(domain.AgencyCDWR, true, c.minCount)...)
	return nil
}

func stationInfo(s domain.CDWRStation) domain.SiteInfo {
	code := strings.TrimSpace(s.SiteCode)
	swn := strings.TrimSpace(s.SWN)
	name := swn
	if name == "" {
		name = strings.TrimSpace(s.WellName)
	}
	if name == "" {
		name = strings.TrimSpace(s.StnID)
	}
	return domain.SiteInfo{
		SiteID:        code,
		AgencyCd:      domain.AgencyCDWR,
		CDWRID:        code,
		StateWellNmbr: swn,
		StationNm:     name,
		DecLatVa:      strings.TrimSpace(s.Latitude),
		DecLongVa:     strings.TrimSpace(s.Longitude),
		AltVa:         strings.TrimSpace(s.GSE),
		AltAcyVa:      strings.TrimSpace(s.GSEAcc),
		AltDatumCd:    strings.TrimSpace(s.GSEMethod),
		WellDepthVa:   strings.TrimSpace(s.WellDepth),
	}
}
