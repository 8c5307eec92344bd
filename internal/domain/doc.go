// Package domain models groundwater monitoring sites and water-level
// measurements reconciled from three agencies: USGS (NWIS web services),
// the Oregon Water Resources Department (OWRD export files and REST API),
// and the California Department of Water Resources (CNRA datastore).
//
// # Identifiers
//
// Each agency keys wells differently:
//
//	USGS  site_no       15-digit lat/long-derived number, e.g. "420358121280001"
//	OWRD  gw_logid      county prefix + sequence, e.g. "KLAM0001234"
//	CDWR  site_code     e.g. "419980N1215455W001"; continuous data uses the
//	                    state well number (state_well_nmbr) instead
//
// The collection file assigns every well one canonical site_id, normally
// the USGS number when there is one. [Resolver] answers all identifier
// lookups for a run.
//
// # Canonical Vocabulary
//
// Status, method, accuracy, and agency values are mapped onto NWIS codes by
// [Translator] using the tables in codes.yaml. Some notable conventions:
//
//	lev_status_cd  "" means a static, unqualified reading; any code (P pumping,
//	               D dry, F flowing, Z other, ...) disqualifies web display
//	lev_acy_cd     0 nearest foot, 1 tenth, 2 hundredth, 9 worse than a foot,
//	               U unknown; derived from the method when not reported
//	lev_src_cd     S the measuring agency's own record, A another agency,
//	               D driller, O owner, G other government/consultant, Z other
//	lev_web_cd     Y when the reading has a value and an empty status
//
// # Dates and Times
//
// Precision (lev_dt_acy_cd) is Y, M, D, or m. Coarse dates are anchored so
// that they sort and bucket sensibly:
//
//	Y  July 16, 12:00 UTC
//	M  the 16th (February: the 15th), 12:00 UTC
//	D  12:00 UTC, which is 04:00 PST on the same calendar date
//	m  the reported wall time converted to UTC
//
// OWRD and CDWR report Pacific local time. A fixed UTC-8 offset is used all
// year. Those sources write "00:00" or "12:00" when no time was taken, so
// such values are read as date-only (see [DateOnly]).
//
// lev_dtm is the UTC instant ("2006-01-02 15:04 UTC"); lev_str_dt is the
// local display value. The first ten characters of lev_str_dt are the
// deduplication key: at most one reading per site per local calendar day
// survives a merge.
package domain
