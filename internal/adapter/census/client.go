// Package census resolves five-digit county FIPS codes against the Census
// Bureau national county reference file.
package census

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/upstream"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/jszwec/csvutil"
)

// ErrUnknownFIPS is returned when a requested county code is not in the
// reference file.
var ErrUnknownFIPS = errors.New("unknown county FIPS code")

// FeedCounties names the reference download in logs and metrics.
const FeedCounties = "national_county"

// The reference file has no header row.
var countyHeader = []string{"state", "statefp", "countyfp", "countyname", "classfp"}

type countyRow struct {
	State      string `csv:"state"`
	StateFP    string `csv:"statefp"`
	CountyFP   string `csv:"countyfp"`
	CountyName string `csv:"countyname"`
}

// Client downloads the county reference.
type Client struct {
	http *upstream.Client
	url  string
}

// NewClient creates a client for the reference file at url.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		http: upstream.NewClient("Census", timeout, metrics, logger),
		url:  url,
	}
}

// WithRetries enables n retries of failed requests.
func (c *Client) WithRetries(n int) *Client {
	c.http.WithRetries(n)
	return c
}

// Counties returns every county keyed by its five-digit FIPS code.
func (c *Client) Counties(ctx context.Context) (map[string]domain.County, error) {
	body, err := c.http.Get(ctx, FeedCounties, c.url)
	if err != nil {
		return nil, err
	}
	counties, err := ParseCounties(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", upstream.ErrUpstream, err)
	}
	return counties, nil
}

// Resolve looks up each code and returns the counties in request order.
// Every unmatched code is named in the ErrUnknownFIPS error.
func (c *Client) Resolve(ctx context.Context, codes []string) ([]domain.County, error) {
	counties, err := c.Counties(ctx)
	if err != nil {
		return nil, err
	}
	return Lookup(counties, codes)
}

// Lookup resolves codes against an already loaded reference.
func Lookup(counties map[string]domain.County, codes []string) ([]domain.County, error) {
	var (
		out     []domain.County
		unknown []string
	)
	for _, code := range codes {
		county, ok := counties[strings.TrimSpace(code)]
		if !ok {
			unknown = append(unknown, code)
			continue
		}
		out = append(out, county)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFIPS, strings.Join(unknown, ", "))
	}
	return out, nil
}

// ParseCounties reads the comma-delimited reference file.
func ParseCounties(r io.Reader) (map[string]domain.County, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	dec, err := csvutil.NewDecoder(cr, countyHeader...)
	if err != nil {
		return nil, fmt.Errorf("read county reference: %w", err)
	}

	counties := make(map[string]domain.County)
	for {
		var row countyRow
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode county reference: %w", err)
		}
		fips := strings.TrimSpace(row.StateFP) + strings.TrimSpace(row.CountyFP)
		counties[fips] = domain.County{
			FIPS:  fips,
			State: strings.TrimSpace(row.State),
			Name:  strings.TrimSpace(row.CountyName),
		}
	}
	if len(counties) == 0 {
		return nil, errors.New("county reference is empty")
	}
	return counties, nil
}
