package output

import (
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
)

const recordedLayout = "January 02, 2006"

// WaterlevelColumns is the layout of the waterlevel file.
var WaterlevelColumns = []rdb.Column{
	{Name: "site_id", Width: 20},
	{Name: "site_no", Width: 15},
	{Name: "agency_cd", Width: 5},
	{Name: "coop_site_no", Width: 12},
	{Name: "cdwr_id", Width: 18},
	{Name: "lev_va", Width: 12},
	{Name: "lev_acy_cd", Width: 1},
	{Name: "lev_dtm", Width: 20},
	{Name: "lev_dt", Width: 10},
	{Name: "lev_tm", Width: 5},
	{Name: "lev_tz_cd", Width: 6},
	{Name: "lev_dt_acy_cd", Width: 1},
	{Name: "lev_str_dt", Width: 16},
	{Name: "lev_status_cd", Width: 1},
	{Name: "lev_meth_cd", Width: 1},
	{Name: "lev_agency_cd", Width: 5},
	{Name: "lev_src_cd", Width: 1},
	{Name: "lev_web_cd", Width: 1},
}

// periodColumns are the period-of-record columns shared by the summary and
// collection files.
var periodColumns = func() []rdb.Column {
	cols := []rdb.Column{
		{Name: "gw_agency_cd", Width: 20},
		{Name: "gw_begin_date", Width: 10},
		{Name: "gw_end_date", Width: 10},
		{Name: "gw_status", Width: 12},
		{Name: "gw_count", Width: 10},
		{Name: "rc_agency_cd", Width: 20},
		{Name: "rc_begin_date", Width: 10},
		{Name: "rc_end_date", Width: 10},
		{Name: "rc_status", Width: 12},
		{Name: "rc_count", Width: 10},
	}
	for _, agency := range []string{"usgs", "owrd", "cdwr"} {
		for _, kind := range []string{"", "_rc"} {
			prefix := agency + kind + "_"
			cols = append(cols,
				rdb.Column{Name: prefix + "begin_date", Width: 10},
				rdb.Column{Name: prefix + "end_date", Width: 10},
				rdb.Column{Name: prefix + "status", Width: 12},
				rdb.Column{Name: prefix + "count", Width: 10},
			)
		}
	}
	return cols
}()

// SummaryColumns is the layout of the site-summary file.
var SummaryColumns = append([]rdb.Column{
	{Name: "site_id", Width: 20},
	{Name: "agency_cd", Width: 10},
	{Name: "site_no", Width: 20},
	{Name: "coop_site_no", Width: 15},
	{Name: "cdwr_id", Width: 20},
	{Name: "state_well_nmbr", Width: 20},
	{Name: "station_nm", Width: 30},
}, periodColumns...)

// CollectionColumns is the layout of the rewritten collection file.
var CollectionColumns = append([]rdb.Column{
	{Name: "site_id", Width: 20},
	{Name: "agency_cd", Width: 10},
	{Name: "site_no", Width: 20},
	{Name: "coop_site_no", Width: 15},
	{Name: "state_well_nmbr", Width: 20},
	{Name: "cdwr_id", Width: 20},
	{Name: "station_nm", Width: 30},
	{Name: "periodic", Width: 20},
	{Name: "recorder", Width: 20},
	{Name: "dec_lat_va", Width: 12},
	{Name: "dec_long_va", Width: 12},
	{Name: "alt_va", Width: 10},
	{Name: "alt_acy_va", Width: 5},
	{Name: "alt_datum_cd", Width: 10},
	{Name: "well_depth_va", Width: 10},
}, periodColumns...)

// WriteWaterlevel writes one row per measurement, in the given order.
func WriteWaterlevel(w io.Writer, recordedOn time.Time, ms []domain.Measurement) error {
	out := rdb.NewWriter(w, WaterlevelColumns)
	if err := comments(out,
		"## Groundwater Waterlevel Information",
		"##",
		"## Recorded on "+recordedOn.Format(recordedLayout),
		"##",
	); err != nil {
		return err
	}
	if err := out.WriteHeader(); err != nil {
		return err
	}
	for _, m := range ms {
		if err := out.Write([]string{
			m.SiteID, m.SiteNo, m.AgencyCd, m.CoopSiteNo, m.CDWRID,
			m.Value, m.AccuracyCd, m.DateTimeUTC, m.Date, m.Time, m.TimeZone,
			m.Precision, m.LocalDateTime, m.StatusCd, m.MethodCd,
			m.MeasuringAgency, m.SourceCd, m.WebCd,
		}); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteSummary writes one period-of-record row per site.
func WriteSummary(w io.Writer, recordedOn time.Time, sites []domain.Site) error {
	out := rdb.NewWriter(w, SummaryColumns)
	if err := comments(out,
		"## Groundwater Site Summary",
		"##",
		"## Recorded on "+recordedOn.Format(recordedLayout),
		"##",
	); err != nil {
		return err
	}
	if err := out.WriteHeader(); err != nil {
		return err
	}
	for _, s := range sites {
		row := []string{s.SiteID, s.AgencyCd, s.SiteNo, s.CoopSiteNo, s.CDWRID, s.StateWellNmbr, s.StationNm}
		if err := out.Write(append(row, periodCells(s)...)); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteCollection rewrites the collection with current rollups and appends
// candidate sites as commented rows, grouped by agency and kind.
func WriteCollection(w io.Writer, version string, recordedOn time.Time, sites []domain.Site, candidates []domain.Candidate) error {
	out := rdb.NewWriter(w, CollectionColumns)
	if err := comments(out,
		"## U.S. Geological Survey",
		"## Groundwater Periodic and Recorder Sites",
		"##",
		"## Version "+version,
		"## Version_Date on "+recordedOn.Format(recordedLayout),
		"##",
	); err != nil {
		return err
	}
	if err := out.WriteHeader(); err != nil {
		return err
	}
	for _, s := range sites {
		if err := out.Write(collectionRow(s)); err != nil {
			return err
		}
	}

	for _, agency := range domain.Agencies {
		for _, recorder := range []bool{false, true} {
			if err := writeCandidates(out, agency, recorder, candidates); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}

func writeCandidates(out *rdb.Writer, agency string, recorder bool, candidates []domain.Candidate) error {
	var block []domain.Candidate
	for _, c := range candidates {
		if c.Agency == agency && c.Recorder == recorder {
			block = append(block, c)
		}
	}
	if len(block) == 0 {
		return nil
	}

	kind := "periodic"
	if recorder {
		kind = "recorder"
	}
	if err := comments(out, "#", "# Possible new "+kind+" sites from "+agency+" source", "#"); err != nil {
		return err
	}
	for _, c := range block {
		s := domain.Site{SiteInfo: c.Site}
		p := domain.Period{Count: c.Count}
		if recorder {
			s.Recorder = agency
			s.RC = domain.Rollup{Agencies: []string{agency}, Total: p, ByAgency: map[string]domain.Period{agency: p}}
		} else {
			s.Periodic = agency
			s.GW = domain.Rollup{Agencies: []string{agency}, Total: p, ByAgency: map[string]domain.Period{agency: p}}
		}
		if err := out.WriteCommented(collectionRow(s)); err != nil {
			return err
		}
	}
	return nil
}

func collectionRow(s domain.Site) []string {
	row := []string{
		s.SiteID, s.AgencyCd, s.SiteNo, s.CoopSiteNo, s.StateWellNmbr, s.CDWRID,
		s.StationNm, s.Periodic, s.Recorder, s.DecLatVa, s.DecLongVa,
		s.AltVa, s.AltAcyVa, s.AltDatumCd, s.WellDepthVa,
	}
	return append(row, periodCells(s)...)
}

// periodCells renders the aggregate and per-agency periods in
// periodColumns order.
func periodCells(s domain.Site) []string {
	cells := []string{s.GW.AgencyList()}
	cells = append(cells, period(s.GW.Total)...)
	cells = append(cells, s.RC.AgencyList())
	cells = append(cells, period(s.RC.Total)...)
	for _, agency := range domain.Agencies {
		cells = append(cells, period(s.GW.Agency(agency))...)
		cells = append(cells, period(s.RC.Agency(agency))...)
	}
	return cells
}

func period(p domain.Period) []string {
	count := ""
	if p.Count > 0 {
		count = strconv.Itoa(p.Count)
	}
	return []string{p.Begin, p.End, p.Status, count}
}

func comments(out *rdb.Writer, lines ...string) error {
	for _, line := range lines {
		if err := out.Comment(line); err != nil {
			return err
		}
	}
	return nil
}
