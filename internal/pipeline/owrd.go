package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
)

type owrdImporter struct {
	// api is optional; without it well logs absent from the export stay
	// missing.
	api        OWRDSource
	translator *domain.Translator
	resolver   *domain.Resolver
	logger     *slog.Logger
	minCount   int
	counties   []domain.County
}

// Import normalizes the OWRD export files. Well logs in the collection that
// the export lacks are fetched from the REST API one at a time.
func (o *owrdImporter) Import(ctx context.Context, periodic []domain.OWRDLevel, recorder []domain.OWRDRecorderRow) (*AgencyImport, error) {
	imp := newAgencyImport(domain.AgencyOWRD)
	wellLogs := o.resolver.OWRDWellLogs()
	seen := make(map[string]bool, len(wellLogs))

	prefixes := make([]string, 0, len(o.counties))
	for _, c := range o.counties {
		prefixes = append(prefixes, c.Prefix())
	}
	periodicCandidates := make(candidateSet)
	recorderCandidates := make(candidateSet)

	for _, row := range periodic {
		id := strings.TrimSpace(row.GWLogID)
		if id == "" || o.translator.Skip(domain.AgencyOWRD, row.Method) {
			continue
		}
		r := o.resolver.ResolveOWRD(id)
		if !r.Known && !domain.HasCountyPrefix(id, prefixes) {
			continue
		}

		ts, err := domain.NormalizeOWRDExport(exportDatetime(row))
		if err != nil {
			imp.Rejected++
			o.logger.Warn("rejecting measurement", "site", id, "error", err)
			continue
		}
		if !r.Known {
			t := periodicCandidates.touch(owrdCandidateInfo(id, r))
			t.keys[ts.Key()] = struct{}{}
			continue
		}

		seen[id] = true
		m := o.measurement(id, row, ts, false)
		site, _ := o.resolver.Site(r.SiteID)
		m.AttachSite(site.SiteInfo)
		imp.add(m)
	}

	if err := o.fetchMissing(ctx, imp, wellLogs, seen); err != nil {
		return nil, err
	}

	dates := make(map[string]map[string]struct{})
	for _, row := range recorder {
		id := strings.TrimSpace(row.GWLogID)
		r := o.resolver.ResolveOWRD(id)
		if id == "" || (!r.Known && !domain.HasCountyPrefix(id, prefixes)) {
			continue
		}
		ts, err := domain.NormalizeOWRDExport(row.RecordDate)
		if err != nil {
			imp.Rejected++
			o.logger.Warn("rejecting recorder row", "site", id, "error", err)
			continue
		}
		if !r.Known {
			recorderCandidates.touch(owrdCandidateInfo(id, r)).keys[ts.Key()] = struct{}{}
			continue
		}
		seen[id] = true
		if dates[r.SiteID] == nil {
			dates[r.SiteID] = make(map[string]struct{})
		}
		dates[r.SiteID][ts.Key()] = struct{}{}
	}
	for siteID, d := range dates {
		imp.setRecorder(siteID, d)
	}

	imp.missingFrom(wellLogs, seen)
	imp.Candidates = append(periodicCandidates.list(domain.AgencyOWRD, false, o.minCount),
		recorderCandidates.list(domain.AgencyOWRD, true, o.minCount)...)

	o.logger.Info("OWRD import finished",
		"sites", len(wellLogs),
		"measurements", imp.Imported,
		"recorders", len(imp.Recorder),
		"missing", len(imp.Missing),
		"candidates", len(imp.Candidates),
	)
	return imp, nil
}

// fetchMissing asks the REST API for well logs the export did not cover.
func (o *owrdImporter) fetchMissing(ctx context.Context, imp *AgencyImport, wellLogs []string, seen map[string]bool) error {
	if o.api == nil {
		return nil
	}
	year := domain.Now().Year()
	for _, id := range wellLogs {
		if seen[id] {
			continue
		}
		levels, err := o.api.MeasuredLevels(ctx, id, year)
		if err != nil {
			return fmt.Errorf("measured levels of %s: %w", id, err)
		}
		if len(levels) == 0 {
			o.logger.Debug("no OWRD API measurements", "site", id)
			continue
		}

		r := o.resolver.ResolveOWRD(id)
		site, _ := o.resolver.Site(r.SiteID)
		for _, row := range levels {
			if o.translator.Skip(domain.AgencyOWRD, row.Method) {
				continue
			}
			ts, err := domain.NormalizeOWRDAPI(row.MeasuredDate, row.MeasuredTime)
			if err != nil {
				imp.Rejected++
				o.logger.Warn("rejecting measurement", "site", id, "error", err)
				continue
			}
			seen[id] = true
			m := o.measurement(id, row, ts, true)
			m.AttachSite(site.SiteInfo)
			imp.add(m)
		}
	}
	return nil
}

// measurement converts one OWRD reading. The export carries no accuracy, so
// it is derived from the method before any measuring-agency override; the
// API reports accuracy explicitly.
func (o *owrdImporter) measurement(id string, row domain.OWRDLevel, ts domain.Timestamp, fromAPI bool) domain.Measurement {
	value := strings.TrimSpace(row.WaterLevel)
	status := o.translator.Status(domain.AgencyOWRD, id, row.StatusDesc)
	method := o.translator.Method(domain.AgencyOWRD, id, row.Method)

	var accuracy string
	if fromAPI {
		accuracy = o.translator.Accuracy(domain.AgencyOWRD, id, row.Accuracy)
	} else {
		accuracy = o.translator.MethodAccuracy(domain.AgencyOWRD, id, method)
	}
	if value == "" {
		accuracy = ""
	}

	rule := o.translator.Agency(domain.AgencyOWRD, id, row.SourceOrg)
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
		Importer:        domain.AgencyOWRD,
	}
	m.SetTimestamp(ts)
	return m
}

// exportDatetime returns measured_datetime, or measured_date and
// measured_time joined when the combined column is empty.
func exportDatetime(row domain.OWRDLevel) string {
	if dt := strings.TrimSpace(row.MeasuredDatetime); dt != "" {
		return dt
	}
	return strings.TrimSpace(row.MeasuredDate + " " + row.MeasuredTime)
}

func owrdCandidateInfo(id string, r domain.Resolution) domain.SiteInfo {
	info := domain.SiteInfo{
		SiteID:     r.SiteID,
		AgencyCd:   domain.AgencyOWRD,
		CoopSiteNo: id,
	}
	if r.SiteNo != "" {
		info.AgencyCd = domain.AgencyUSGS
		info.SiteNo = r.SiteNo
	}
	return info
}
