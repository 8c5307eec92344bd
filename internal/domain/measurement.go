package domain

// Measurement is one canonical groundwater level reading. Field names follow
// the NWIS column names they are written under.
type Measurement struct {
	SiteID          string `json:"site_id"`
	SiteNo          string `json:"site_no"`
	AgencyCd        string `json:"agency_cd"`
	CoopSiteNo      string `json:"coop_site_no"`
	CDWRID          string `json:"cdwr_id"`
	Value           string `json:"lev_va"`
	AccuracyCd      string `json:"lev_acy_cd"`
	DateTimeUTC     string `json:"lev_dtm"`
	Date            string `json:"lev_dt"`
	Time            string `json:"lev_tm"`
	TimeZone        string `json:"lev_tz_cd"`
	Precision       string `json:"lev_dt_acy_cd"`
	LocalDateTime   string `json:"lev_str_dt"`
	StatusCd        string `json:"lev_status_cd"`
	MethodCd        string `json:"lev_meth_cd"`
	MeasuringAgency string `json:"lev_agency_cd"`
	SourceCd        string `json:"lev_src_cd"`
	WebCd           string `json:"lev_web_cd"`

	// Importer is the agency whose feed produced the record.
	Importer string `json:"-"`
	// Key is the deduplication key within a site.
	Key string `json:"-"`
}

// SetTimestamp copies a normalized time onto the measurement.
func (m *Measurement) SetTimestamp(ts Timestamp) {
	m.DateTimeUTC = ts.DTM()
	m.Date = ts.Date
	m.Time = ts.Time
	m.TimeZone = ts.TZ
	m.Precision = ts.Precision
	m.LocalDateTime = ts.Local
	m.Key = ts.Key()
}

// AttachSite copies the site identity columns onto the measurement.
func (m *Measurement) AttachSite(s SiteInfo) {
	m.SiteID = s.SiteID
	m.SiteNo = s.SiteNo
	m.AgencyCd = s.AgencyCd
	m.CoopSiteNo = s.CoopSiteNo
	m.CDWRID = s.CDWRID
}

// WebCode returns "Y" when a reading has a value and no status qualifier,
// meaning it is eligible for public display, and "N" otherwise.
func WebCode(value, status string) string {
	if value != "" && status == "" {
		return "Y"
	}
	return "N"
}
