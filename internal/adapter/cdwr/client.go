// Package cdwr queries California Department of Water Resources groundwater
// tables through the CNRA open-data datastore SQL endpoint.
package cdwr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/upstream"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
)

// Feed names used in logs and metrics.
const (
	FeedPeriodic   = "periodic"
	FeedContinuous = "continuous"
	FeedStations   = "stations"
)

// Client implements pipeline.CDWRSource.
type Client struct {
	http               *upstream.Client
	baseURL            string
	periodicResource   string
	continuousResource string
	stationsResource   string
}

// Resources names the datastore tables the client queries.
type Resources struct {
	Periodic   string
	Continuous string
	Stations   string
}

// NewClient creates a datastore client. baseURL is the datastore_search_sql
// action.
func NewClient(baseURL string, res Resources, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:               upstream.NewClient(domain.AgencyCDWR, timeout, metrics, logger),
		baseURL:            baseURL,
		periodicResource:   res.Periodic,
		continuousResource: res.Continuous,
		stationsResource:   res.Stations,
	}
}

// WithRetries enables n retries of failed requests.
func (c *Client) WithRetries(n int) *Client {
	c.http.WithRetries(n)
	return c
}

// PeriodicLevels returns the periodic measurements of the given site codes,
// ordered by site code and date.
func (c *Client) PeriodicLevels(ctx context.Context, siteCodes []string) ([]domain.CDWRLevel, error) {
	sql := fmt.Sprintf(`SELECT * from "%s" WHERE "site_code" IN (%s) ORDER BY "site_code", "msmt_date"`,
		c.periodicResource, quoteList(siteCodes))

	var records []periodicRecord
	if err := c.query(ctx, FeedPeriodic, sql, &records); err != nil {
		return nil, err
	}

	levels := make([]domain.CDWRLevel, 0, len(records))
	for _, r := range records {
		levels = append(levels, domain.CDWRLevel{
			SiteCode:    r.SiteCode.String(),
			MsmtDate:    r.MsmtDate.String(),
			Value:       r.GSEGWE.String(),
			QADetail:    r.QADetail.String(),
			MethodDesc:  r.MethodDesc.String(),
			AccuracyDes: r.AccuracyDesc.String(),
			CoopOrgName: r.CoopOrgName.String(),
			OrgName:     r.OrgName.String(),
		})
	}
	return levels, nil
}

// ContinuousReadings returns the continuous-sensor readings of the given
// state well numbers.
func (c *Client) ContinuousReadings(ctx context.Context, stations []string) ([]domain.CDWRContinuous, error) {
	sql := fmt.Sprintf(`SELECT * from "%s" WHERE "STATION" IN (%s)`, c.continuousResource, quoteList(stations))

	var records []continuousRecord
	if err := c.query(ctx, FeedContinuous, sql, &records); err != nil {
		return nil, err
	}

	readings := make([]domain.CDWRContinuous, 0, len(records))
	for _, r := range records {
		readings = append(readings, domain.CDWRContinuous{
			Station:  r.Station.String(),
			MsmtDate: r.MsmtDate.String(),
		})
	}
	return readings, nil
}

// Stations returns the periodic stations in the given counties, named as
// the station table spells them ("Modoc", "Klamath, OR").
func (c *Client) Stations(ctx context.Context, counties []string) ([]domain.CDWRStation, error) {
	sql := fmt.Sprintf(`SELECT * from "%s" WHERE "county_name" IN (%s)`, c.stationsResource, quoteList(counties))

	var records []stationRecord
	if err := c.query(ctx, FeedStations, sql, &records); err != nil {
		return nil, err
	}

	stations := make([]domain.CDWRStation, 0, len(records))
	for _, r := range records {
		stations = append(stations, domain.CDWRStation{
			SiteCode:          r.SiteCode.String(),
			SWN:               r.SWN.String(),
			StnID:             r.StnID.String(),
			WellName:          r.WellName.String(),
			CountyName:        r.CountyName.String(),
			Latitude:          r.Latitude.String(),
			Longitude:         r.Longitude.String(),
			GSE:               r.GSE.String(),
			GSEAcc:            r.GSEAcc.String(),
			GSEMethod:         r.GSEMethod.String(),
			WellDepth:         r.WellDepth.String(),
			ContinuousStation: r.ContinuousStation.String(),
		})
	}
	return stations, nil
}

func (c *Client) query(ctx context.Context, feed, sql string, records any) error {
	u := c.baseURL + "?" + url.Values{"sql": {sql}}.Encode()
	body, err := c.http.Get(ctx, feed, u)
	if err != nil {
		return err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: decode CDWR %s response: %w", upstream.ErrUpstream, feed, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: CDWR %s query failed: %s", upstream.ErrUpstream, feed, resp.Error)
	}
	if len(resp.Result.Records) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result.Records, records); err != nil {
		return fmt.Errorf("%w: decode CDWR %s records: %w", upstream.ErrUpstream, feed, err)
	}
	return nil
}

// quoteList renders identifiers as a SQL string list. Embedded quotes are
// doubled.
func quoteList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "'" + strings.ReplaceAll(id, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

// CNRA datastore response types.

type response struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error"`
	Result  struct {
		Records json.RawMessage `json:"records"`
	} `json:"result"`
}

type periodicRecord struct {
	SiteCode     upstream.Text `json:"site_code"`
	MsmtDate     upstream.Text `json:"msmt_date"`
	GSEGWE       upstream.Text `json:"gse_gwe"`
	QADetail     upstream.Text `json:"wlm_qa_detail"`
	MethodDesc   upstream.Text `json:"wlm_mthd_desc"`
	AccuracyDesc upstream.Text `json:"wlm_acc_desc"`
	CoopOrgName  upstream.Text `json:"coop_org_name"`
	OrgName      upstream.Text `json:"wlm_org_name"`
}

type continuousRecord struct {
	Station  upstream.Text `json:"STATION"`
	MsmtDate upstream.Text `json:"MSMT_DATE"`
}

type stationRecord struct {
	SiteCode          upstream.Text `json:"site_code"`
	SWN               upstream.Text `json:"swn"`
	StnID             upstream.Text `json:"stn_id"`
	WellName          upstream.Text `json:"well_name"`
	CountyName        upstream.Text `json:"county_name"`
	Latitude          upstream.Text `json:"latitude"`
	Longitude         upstream.Text `json:"longitude"`
	GSE               upstream.Text `json:"gse"`
	GSEAcc            upstream.Text `json:"gse_acc"`
	GSEMethod         upstream.Text `json:"gse_method"`
	WellDepth         upstream.Text `json:"well_depth"`
	ContinuousStation upstream.Text `json:"continuous_data_station_number"`
}
