package domain

import (
	"sort"
	"strings"
)

// How a raw identifier was resolved.
const (
	ViaSiteNo     = "site_no"
	ViaCollection = "collection"
	ViaOtherID    = "other_id"
	ViaRaw        = "raw"
)

// Resolution is the canonical identity of a raw agency identifier.
type Resolution struct {
	SiteID string
	// SiteNo is the linked USGS site number, if any.
	SiteNo string
	// Known is false when the identifier is not in the collection; SiteID
	// is then synthesized and the record belongs to a candidate site.
	Known bool
	Via   string
}

// Resolver maps USGS site numbers, OWRD well-log ids, CDWR site codes, and
// state well numbers to canonical site ids. It is built once per run and
// only queried afterwards.
type Resolver struct {
	sites      map[string]Site
	byUSGS     map[string]string
	byOWRD     map[string]string
	byCDWR     map[string]string
	byStation  map[string]string
	owrdToUSGS map[string]string
}

// NewResolver indexes the collection sites. otherIDs links OWRD well-log ids
// to USGS site numbers where the collection lacks the link.
func NewResolver(sites []Site, otherIDs map[string]string) *Resolver {
	r := &Resolver{
		sites:      make(map[string]Site, len(sites)),
		byUSGS:     make(map[string]string),
		byOWRD:     make(map[string]string),
		byCDWR:     make(map[string]string),
		byStation:  make(map[string]string),
		owrdToUSGS: make(map[string]string),
	}
	for id, no := range otherIDs {
		r.owrdToUSGS[id] = no
	}
	for _, s := range sites {
		r.sites[s.SiteID] = s
		if s.SiteNo != "" {
			r.byUSGS[s.SiteNo] = s.SiteID
		}
		if s.CoopSiteNo != "" {
			r.byOWRD[s.CoopSiteNo] = s.SiteID
			if s.SiteNo != "" {
				r.owrdToUSGS[s.CoopSiteNo] = s.SiteNo
			}
		}
		if s.CDWRID != "" {
			r.byCDWR[s.CDWRID] = s.SiteID
			if s.StateWellNmbr != "" {
				r.byStation[s.StateWellNmbr] = s.SiteID
			}
		}
	}
	return r
}

// ResolveUSGS resolves a USGS site number.
func (r *Resolver) ResolveUSGS(siteNo string) Resolution {
	if id, ok := r.byUSGS[siteNo]; ok {
		return Resolution{SiteID: id, SiteNo: siteNo, Known: true, Via: ViaSiteNo}
	}
	return Resolution{SiteID: siteNo, SiteNo: siteNo, Via: ViaRaw}
}

// ResolveOWRD resolves an OWRD well-log id. In order: the collection site
// carrying the well-log id (with its USGS number, or one from the other-id
// cross-reference), a collection site found through the cross-referenced
// USGS number, the cross-referenced USGS number itself, and finally the
// well-log id.
func (r *Resolver) ResolveOWRD(gwLogID string) Resolution {
	if id, ok := r.byOWRD[gwLogID]; ok {
		s := r.sites[id]
		if s.SiteNo != "" {
			return Resolution{SiteID: id, SiteNo: s.SiteNo, Known: true, Via: ViaSiteNo}
		}
		return Resolution{SiteID: id, SiteNo: r.owrdToUSGS[gwLogID], Known: true, Via: ViaCollection}
	}
	if no, ok := r.owrdToUSGS[gwLogID]; ok {
		if id, ok := r.byUSGS[no]; ok {
			return Resolution{SiteID: id, SiteNo: no, Known: true, Via: ViaOtherID}
		}
		return Resolution{SiteID: no, SiteNo: no, Via: ViaOtherID}
	}
	return Resolution{SiteID: gwLogID, Via: ViaRaw}
}

// ResolveCDWR resolves a CDWR site code.
func (r *Resolver) ResolveCDWR(code string) Resolution {
	if id, ok := r.byCDWR[code]; ok {
		return Resolution{SiteID: id, SiteNo: r.sites[id].SiteNo, Known: true, Via: ViaCollection}
	}
	return Resolution{SiteID: code, Via: ViaRaw}
}

// ResolveStation resolves a CDWR state well number (continuous data station).
func (r *Resolver) ResolveStation(swn string) Resolution {
	if id, ok := r.byStation[swn]; ok {
		return Resolution{SiteID: id, SiteNo: r.sites[id].SiteNo, Known: true, Via: ViaCollection}
	}
	return Resolution{SiteID: swn, Via: ViaRaw}
}

// Site returns the collection site with the given canonical id.
func (r *Resolver) Site(id string) (Site, bool) {
	s, ok := r.sites[id]
	return s, ok
}

// Sites returns every collection site ordered by site_id.
func (r *Resolver) Sites() []Site {
	out := make([]Site, 0, len(r.sites))
	for _, id := range sortedKeys(r.sites) {
		out = append(out, r.sites[id])
	}
	return out
}

// USGSSiteNumbers returns the USGS site numbers in the collection, sorted.
func (r *Resolver) USGSSiteNumbers() []string { return sortedKeys(r.byUSGS) }

// OWRDWellLogs returns the OWRD well-log ids in the collection, sorted.
func (r *Resolver) OWRDWellLogs() []string { return sortedKeys(r.byOWRD) }

// CDWRCodes returns the CDWR site codes in the collection, sorted.
func (r *Resolver) CDWRCodes() []string { return sortedKeys(r.byCDWR) }

// StationNumbers returns state well numbers of CDWR sites, sorted.
func (r *Resolver) StationNumbers() []string { return sortedKeys(r.byStation) }

// OtherIDs returns a copy of the well-log to USGS number cross-reference.
func (r *Resolver) OtherIDs() map[string]string {
	out := make(map[string]string, len(r.owrdToUSGS))
	for k, v := range r.owrdToUSGS {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OtherIDMap builds the well-log to USGS number cross-reference from OWRD
// other-identifier rows. Only "USGS SITE ID" rows are used; quotes around
// the id are stripped. prefixes, when non-empty, restricts rows to well-log
// ids starting with one of them (OWRD ids begin with a county abbreviation).
func OtherIDMap(rows []OWRDOtherID, prefixes []string) map[string]string {
	out := make(map[string]string)
	for _, row := range rows {
		if NormalizeCode(row.Name) != "USGS SITE ID" {
			continue
		}
		if len(prefixes) > 0 && !HasCountyPrefix(row.GWLogID, prefixes) {
			continue
		}
		id := strings.Trim(row.ID, `"' `)
		if id == "" || row.GWLogID == "" {
			continue
		}
		out[row.GWLogID] = id
	}
	return out
}

// HasCountyPrefix reports whether an OWRD well-log id starts with one of the
// four-letter county prefixes.
func HasCountyPrefix(gwLogID string, prefixes []string) bool {
	if len(gwLogID) < 4 {
		return false
	}
	head := NormalizeCode(gwLogID[:4])
	for _, p := range prefixes {
		if head == p {
			return true
		}
	}
	return false
}
