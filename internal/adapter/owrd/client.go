package owrd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/upstream"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
)

// FeedAPI names the REST fallback in logs and metrics.
const FeedAPI = "gw_measured_water_level"

// Client implements pipeline.OWRDSource against the OWRD REST API.
type Client struct {
	http    *upstream.Client
	baseURL string
}

// NewClient creates an OWRD API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:    upstream.NewClient(domain.AgencyOWRD, timeout, metrics, logger),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// WithRetries enables n retries of failed requests.
func (c *Client) WithRetries(n int) *Client {
	c.http.WithRetries(n)
	return c
}

// MeasuredLevels returns every public measurement of one well log through
// the end of throughYear. An empty feature list is not an error.
func (c *Client) MeasuredLevels(ctx context.Context, gwLogID string, throughYear int) ([]domain.OWRDLevel, error) {
	params := url.Values{
		"start_date":      {"1/1/1900"},
		"end_date":        {"1/1/" + strconv.Itoa(throughYear+1)},
		"public_viewable": {""},
	}
	u := fmt.Sprintf("%s/%s/%s/?%s", c.baseURL, url.PathEscape(gwLogID), FeedAPI, params.Encode())

	body, err := c.http.Get(ctx, FeedAPI, u)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode OWRD response for %s: %w", upstream.ErrUpstream, gwLogID, err)
	}
	if resp.FeatureCount < 1 {
		return nil, nil
	}

	levels := make([]domain.OWRDLevel, 0, len(resp.FeatureList))
	for _, f := range resp.FeatureList {
		levels = append(levels, domain.OWRDLevel{
			GWLogID:      gwLogID,
			MeasuredDate: f.MeasuredDate.String(),
			MeasuredTime: f.MeasuredTime.String(),
			WaterLevel:   f.WaterLevel.String(),
			StatusDesc:   f.StatusDesc.String(),
			Method:       f.Method.String(),
			SourceOrg:    f.SourceOrg.String(),
			Accuracy:     f.Accuracy.String(),
		})
	}
	return levels, nil
}

// OWRD API response types.

type apiResponse struct {
	FeatureCount int       `json:"feature_count"`
	FeatureList  []feature `json:"feature_list"`
}

type feature struct {
	MeasuredDate upstream.Text `json:"measured_date"`
	MeasuredTime upstream.Text `json:"measured_time"`
	WaterLevel   upstream.Text `json:"waterlevel_ft_below_land_surface"`
	StatusDesc   upstream.Text `json:"measurement_status_desc"`
	Method       upstream.Text `json:"method_of_water_level_measurement"`
	Accuracy     upstream.Text `json:"waterlevel_accuracy"`
	SourceOrg    upstream.Text `json:"measurement_source_organization"`
}
