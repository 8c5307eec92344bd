package domain

import "strings"

// Raw feed records as decoded from each agency. Values are kept as text;
// the importers translate and normalize them into Measurements.

// NWISLevel is one row of the NWIS gwlevels RDB service.
type NWISLevel struct {
	AgencyCd    string `csv:"agency_cd"`
	SiteNo      string `csv:"site_no"`
	LevDt       string `csv:"lev_dt"`
	LevTm       string `csv:"lev_tm"`
	LevTzCd     string `csv:"lev_tz_cd"`
	LevVa       string `csv:"lev_va"`
	LevStatusCd string `csv:"lev_status_cd"`
	LevAgencyCd string `csv:"lev_agency_cd"`
	LevDtAcyCd  string `csv:"lev_dt_acy_cd"`
	LevAcyCd    string `csv:"lev_acy_cd"`
	LevSrcCd    string `csv:"lev_src_cd"`
	LevMethCd   string `csv:"lev_meth_cd"`
}

// NWISSeries is one row of the NWIS site service series catalog.
type NWISSeries struct {
	AgencyCd   string `csv:"agency_cd"`
	SiteNo     string `csv:"site_no"`
	DataTypeCd string `csv:"data_type_cd"`
	ParmCd     string `csv:"parm_cd"`
	BeginDate  string `csv:"begin_date"`
	EndDate    string `csv:"end_date"`
	CountNu    string `csv:"count_nu"`
}

// NWISSite is one row of the NWIS site service in expanded output.
type NWISSite struct {
	AgencyCd    string `csv:"agency_cd"`
	SiteNo      string `csv:"site_no"`
	StationNm   string `csv:"station_nm"`
	SiteTpCd    string `csv:"site_tp_cd"`
	DecLatVa    string `csv:"dec_lat_va"`
	DecLongVa   string `csv:"dec_long_va"`
	AltVa       string `csv:"alt_va"`
	AltAcyVa    string `csv:"alt_acy_va"`
	AltDatumCd  string `csv:"alt_datum_cd"`
	WellDepthVa string `csv:"well_depth_va"`
	HoleDepthVa string `csv:"hole_depth_va"`
	CountyCd    string `csv:"county_cd"`
	StateCd     string `csv:"state_cd"`
}

// OWRDLevel is one periodic measurement from the OWRD export file or the
// OWRD REST API.
type OWRDLevel struct {
	GWLogID          string `csv:"gw_logid"`
	MeasuredDatetime string `csv:"measured_datetime"`
	MeasuredDate     string `csv:"measured_date"`
	MeasuredTime     string `csv:"measured_time"`
	WaterLevel       string `csv:"waterlevel_ft_below_land_surface"`
	StatusDesc       string `csv:"measurement_status_desc"`
	Method           string `csv:"method_of_water_level_measurement"`
	SourceOrg        string `csv:"measurement_source_organization_desc"`
	// Accuracy is reported by the REST API only.
	Accuracy string `csv:"-"`
}

// OWRDRecorderRow is one row of the OWRD recorder export.
type OWRDRecorderRow struct {
	GWLogID    string `csv:"gw_logid"`
	RecordDate string `csv:"record_date"`
	Source     string `csv:"source_description"`
}

// OWRDOtherID is one row of the OWRD other-identifier export.
type OWRDOtherID struct {
	GWLogID string `csv:"gw_logid"`
	Name    string `csv:"other_identity_name"`
	ID      string `csv:"other_identity_id"`
}

// CDWRLevel is one periodic measurement from the CNRA datastore.
type CDWRLevel struct {
	SiteCode    string
	MsmtDate    string
	Value       string
	QADetail    string
	MethodDesc  string
	AccuracyDes string
	CoopOrgName string
	OrgName     string
}

// CDWRContinuous is one continuous-sensor reading from the CNRA datastore.
type CDWRContinuous struct {
	Station  string
	MsmtDate string
}

// CDWRStation is one row of the CNRA periodic station table, used to
// discover sites by county and to fill site descriptions.
type CDWRStation struct {
	SiteCode   string
	SWN        string
	StnID      string
	WellName   string
	CountyName string
	Latitude   string
	Longitude  string
	GSE        string
	GSEAcc     string
	GSEMethod  string
	WellDepth  string
	// ContinuousStation is set when the site also has a continuous sensor.
	ContinuousStation string
}

// County is one entry of the Census county FIPS reference.
type County struct {
	FIPS  string
	State string
	Name  string
}

// Prefix returns the first four letters of the county name in upper case.
// OWRD well logs begin with this abbreviation (KLAM0000588).
func (c County) Prefix() string {
	name := strings.ToUpper(strings.TrimSpace(c.Name))
	if len(name) > 4 {
		name = name[:4]
	}
	return name
}

// StationCounty returns the county name as the CNRA station table spells it:
// without the " County" suffix, with ", ST" appended outside California.
func (c County) StationCounty() string {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(c.Name), " County"))
	if c.State != "" && c.State != "CA" {
		name += ", " + c.State
	}
	return name
}
