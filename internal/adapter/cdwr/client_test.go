package cdwr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/adapter/upstream"
	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	periodicTable   = "bfa9f262-24a1-45bd-8dc8-138bc8107266"
	continuousTable = "84e02633-00ca-47e8-97ec-c0093313ddcd"
	stationsTable   = "af157380-fb42-4abf-b72a-6f9f98868077"
)

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(baseURL, Resources{Periodic: periodicTable, Continuous: continuousTable, Stations: stationsTable}, 5*time.Second, observability.NewMetricsForTesting(), logger)
	c.http.WithBackoff(1, time.Millisecond, time.Millisecond)
	return c
}

func TestClient_PeriodicLevels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			`SELECT * from "`+periodicTable+`" WHERE "site_code" IN ('419980N1215455W001', '419978N1214546W001') ORDER BY "site_code", "msmt_date"`,
			r.URL.Query().Get("sql"))
		_, _ = io.WriteString(w, `{"success": true, "result": {"records": [
			{"_id": 1, "site_code": "419980N1215455W001", "msmt_date": "2019-03-26T10:17:00",
			 "gse_gwe": 51.2, "wlm_qa_detail": null, "wlm_mthd_desc": "Electric sounder",
			 "wlm_acc_desc": "Water level accuracy to nearest tenth of a foot",
			 "coop_org_name": "Department of Water Resources", "wlm_org_name": "Department of Water Resources"}
		]}}`)
	}))
	defer srv.Close()

	levels, err := testClient(srv.URL).PeriodicLevels(context.Background(), []string{"419980N1215455W001", "419978N1214546W001"})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, domain.CDWRLevel{
		SiteCode:    "419980N1215455W001",
		MsmtDate:    "2019-03-26T10:17:00",
		Value:       "51.2",
		MethodDesc:  "Electric sounder",
		AccuracyDes: "Water level accuracy to nearest tenth of a foot",
		CoopOrgName: "Department of Water Resources",
		OrgName:     "Department of Water Resources",
	}, levels[0])
}

func TestClient_ContinuousReadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `SELECT * from "`+continuousTable+`" WHERE "STATION" IN ('46N05E21M001M')`, r.URL.Query().Get("sql"))
		_, _ = io.WriteString(w, `{"success": true, "result": {"records": [
			{"STATION": "46N05E21M001M", "MSMT_DATE": "2020-01-01T00:00:00", "WLM_RPE": 100.0},
			{"STATION": "46N05E21M001M", "MSMT_DATE": "2020-01-01T01:00:00", "WLM_RPE": 100.0}
		]}}`)
	}))
	defer srv.Close()

	readings, err := testClient(srv.URL).ContinuousReadings(context.Background(), []string{"46N05E21M001M"})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "2020-01-01T01:00:00", readings[1].MsmtDate)
}

func TestClient_Stations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `SELECT * from "`+stationsTable+`" WHERE "county_name" IN ('Modoc', 'Klamath, OR')`, r.URL.Query().Get("sql"))
		_, _ = io.WriteString(w, `{"success": true, "result": {"records": [
			{"site_code": "419980N1215455W001", "swn": "48N04E23D001M", "stn_id": 5013, "well_name": null,
			 "county_name": "Modoc", "latitude": 41.998, "longitude": -121.5455, "gse": 4035.5,
			 "gse_acc": "0.1 ft", "gse_method": "NAVD88", "well_depth": 300,
			 "continuous_data_station_number": null}
		]}}`)
	}))
	defer srv.Close()

	stations, err := testClient(srv.URL).Stations(context.Background(), []string{"Modoc", "Klamath, OR"})
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, domain.CDWRStation{
		SiteCode:   "419980N1215455W001",
		SWN:        "48N04E23D001M",
		StnID:      "5013",
		CountyName: "Modoc",
		Latitude:   "41.998",
		Longitude:  "-121.5455",
		GSE:        "4035.5",
		GSEAcc:     "0.1 ft",
		GSEMethod:  "NAVD88",
		WellDepth:  "300",
	}, stations[0])
}

func TestClient_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success": true, "result": {"records": []}}`)
	}))
	defer srv.Close()

	levels, err := testClient(srv.URL).PeriodicLevels(context.Background(), []string{"X"})
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{"unsuccessful query", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"success": false, "error": {"message": "relation does not exist"}}`)
		}, "relation does not exist"},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, "status 503"},
		{"malformed", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"success": true, "result": {"records": {}}}`)
		}, "decode CDWR periodic records"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := testClient(srv.URL).PeriodicLevels(context.Background(), []string{"X"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, upstream.ErrUpstream))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestQuoteList(t *testing.T) {
	assert.Equal(t, "'a', 'O''Neil'", quoteList([]string{"a", "O'Neil"}))
}
