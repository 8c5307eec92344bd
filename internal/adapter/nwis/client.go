// Package nwis reads groundwater levels, series catalogs, and site metadata
// from the USGS NWIS web services in RDB format.
package nwis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/upstream"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
)

// Feed names used in logs and metrics.
const (
	FeedLevels = "gwlevels"
	FeedSeries = "series"
	FeedSites  = "site"
	FeedCounty = "county"
)

// Client implements pipeline.NWISSource.
type Client struct {
	http    *upstream.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates an NWIS client rooted at baseURL
// (for example https://waterservices.usgs.gov/nwis).
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http:    upstream.NewClient(domain.AgencyUSGS, timeout, metrics, logger),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// WithRetries enables n retries of failed requests.
func (c *Client) WithRetries(n int) *Client {
	c.http.WithRetries(n)
	return c
}

// GroundwaterLevels returns every field measurement recorded for siteNos.
func (c *Client) GroundwaterLevels(ctx context.Context, siteNos []string) ([]domain.NWISLevel, error) {
	params := url.Values{
		"format":     {"rdb"},
		"sites":      {strings.Join(siteNos, ",")},
		"startDT":    {"1800-01-01"},
		"siteStatus": {"all"},
	}
	return fetch[domain.NWISLevel](ctx, c, FeedLevels, "gwlevels", params, "site_no", "lev_dt")
}

// SeriesCatalog returns the daily and instantaneous series of siteNos.
func (c *Client) SeriesCatalog(ctx context.Context, siteNos []string) ([]domain.NWISSeries, error) {
	params := url.Values{
		"format":              {"rdb"},
		"sites":               {strings.Join(siteNos, ",")},
		"seriesCatalogOutput": {"true"},
		"siteStatus":          {"all"},
		"siteType":            {"GW"},
		"hasDataTypeCd":       {"dv,iv"},
		"outputDataTypeCd":    {"dv,iv"},
	}
	return fetch[domain.NWISSeries](ctx, c, FeedSeries, "site", params, "site_no", "parm_cd", "end_date")
}

// Sites returns expanded site metadata for siteNos.
func (c *Client) Sites(ctx context.Context, siteNos []string) ([]domain.NWISSite, error) {
	params := url.Values{
		"format":     {"rdb"},
		"sites":      {strings.Join(siteNos, ",")},
		"siteOutput": {"expanded"},
		"siteStatus": {"all"},
		"siteType":   {"GW"},
	}
	return fetch[domain.NWISSite](ctx, c, FeedSites, "site", params, "site_no")
}

// CountySites returns expanded metadata of groundwater sites with level,
// daily, or instantaneous data in the given five-digit county FIPS codes.
func (c *Client) CountySites(ctx context.Context, fips []string) ([]domain.NWISSite, error) {
	params := url.Values{
		"format":        {"rdb"},
		"countyCd":      {strings.Join(fips, ",")},
		"siteOutput":    {"expanded"},
		"siteStatus":    {"all"},
		"siteType":      {"GW"},
		"hasDataTypeCd": {"gw,dv,iv"},
	}
	return fetch[domain.NWISSite](ctx, c, FeedCounty, "site", params, "site_no")
}

// CountySeries returns the field-measurement, daily, and instantaneous
// series of groundwater sites in the given county FIPS codes.
func (c *Client) CountySeries(ctx context.Context, fips []string) ([]domain.NWISSeries, error) {
	params := url.Values{
		"format":           {"rdb"},
		"countyCd":         {strings.Join(fips, ",")},
		"siteStatus":       {"all"},
		"siteType":         {"GW"},
		"hasDataTypeCd":    {"gw,dv,iv"},
		"outputDataTypeCd": {"gw,dv,iv"},
	}
	return fetch[domain.NWISSeries](ctx, c, FeedCounty, "site", params, "site_no", "data_type_cd")
}

// fetch issues one RDB request. NWIS answers 404 when no site matches, which
// is an empty result rather than a failure.
func fetch[T any](ctx context.Context, c *Client, feed, service string, params url.Values, required ...string) ([]T, error) {
	u := fmt.Sprintf("%s/%s/?%s", c.baseURL, service, params.Encode())
	body, err := c.http.Get(ctx, feed, u)
	if upstream.IsNotFound(err) {
		c.logger.Debug("no NWIS records", "feed", feed, "sites", params.Get("sites"), "county", params.Get("countyCd"))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records, err := rdb.DecodeAll[T](bytes.NewReader(body), required...)
	if errors.Is(err, rdb.ErrEmptyInput) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s response: %w", upstream.ErrUpstream, feed, err)
	}
	return records, nil
}
