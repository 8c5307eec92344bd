package output

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/groundwater-etl/internal/domain"
	"github.com/couchcryptid/groundwater-etl/internal/pipeline"
	"github.com/couchcryptid/groundwater-etl/internal/rdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordedOn = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

func testSite() domain.Site {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	window := 365 * 24 * time.Hour
	return domain.Site{
		SiteInfo: domain.SiteInfo{
			SiteID:     "420000121000001",
			AgencyCd:   "USGS",
			SiteNo:     "420000121000001",
			CoopSiteNo: "KLAM0000001",
			StationNm:  "KLAMATH WELL",
			Periodic:   "USGS,OWRD",
			Recorder:   "USGS",
			DecLatVa:   "42.0",
		},
		GW: domain.NewRollup(map[string]domain.Period{
			"USGS": {Begin: "2020-03-01", End: "2023-07-10", Count: 2},
			"OWRD": {Begin: "2020-01-01", End: "2020-01-01", Count: 1},
		}, now, window),
		RC: domain.NewRollup(map[string]domain.Period{
			"USGS": {Begin: "2019-01-01", End: "2024-05-30", Count: 1977},
		}, now, window),
	}
}

func testMeasurement() domain.Measurement {
	return domain.Measurement{
		SiteID: "420000121000001", SiteNo: "420000121000001", AgencyCd: "USGS", CoopSiteNo: "KLAM0000001",
		Value: "12.25", AccuracyCd: "1", DateTimeUTC: "2023-07-10 18:30 UTC", Date: "2023-07-10",
		Time: "10:30", TimeZone: "PST", Precision: "m", LocalDateTime: "2023-07-10 10:30",
		MethodCd: "T", MeasuringAgency: "USGS", SourceCd: "S", WebCd: "Y",
	}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestWriteWaterlevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWaterlevel(&buf, recordedOn, []domain.Measurement{testMeasurement()}))

	got := lines(buf.String())
	require.Len(t, got, 7)
	assert.Equal(t, "## Groundwater Waterlevel Information", got[0])
	assert.Equal(t, "## Recorded on June 01, 2024", got[2])
	assert.True(t, strings.HasPrefix(got[4], "site_id\tsite_no\tagency_cd\t"))
	assert.True(t, strings.HasPrefix(got[5], "20s\t15s\t"))
	assert.Equal(t,
		"420000121000001\t420000121000001\tUSGS\tKLAM0000001\t\t12.25\t1\t2023-07-10 18:30 UTC\t2023-07-10\t10:30\tPST\tm\t2023-07-10 10:30\t\tT\tUSGS\tS\tY",
		got[6])
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, recordedOn, []domain.Site{testSite()}))

	r, err := rdb.NewReader(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Len(t, r.Columns(), len(SummaryColumns))

	got := lines(buf.String())
	assert.Equal(t, "## Groundwater Site Summary", got[0])
	cells := strings.Split(got[len(got)-1], "\t")
	require.Len(t, cells, len(SummaryColumns))

	byName := make(map[string]string, len(cells))
	for i, c := range SummaryColumns {
		byName[c.Name] = cells[i]
	}
	assert.Equal(t, "USGS,OWRD", byName["gw_agency_cd"])
	assert.Equal(t, "2020-01-01", byName["gw_begin_date"])
	assert.Equal(t, "3", byName["gw_count"])
	assert.Equal(t, "Active", byName["gw_status"])
	assert.Equal(t, "Inactive", byName["owrd_status"])
	assert.Equal(t, "1977", byName["usgs_rc_count"])
	assert.Equal(t, "", byName["cdwr_count"], "zero counts are blank")
	assert.Equal(t, "", byName["owrd_rc_count"])
}

func TestWriteCollection_ReadsBack(t *testing.T) {
	candidates := []domain.Candidate{
		{Site: domain.SiteInfo{SiteID: "KLAM0009999", AgencyCd: "OWRD", CoopSiteNo: "KLAM0009999"}, Agency: "OWRD", Count: 3},
		{Site: domain.SiteInfo{SiteID: "422000121000001", AgencyCd: "USGS", SiteNo: "422000121000001"}, Agency: "USGS", Recorder: true},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCollection(&buf, "2.1", recordedOn, []domain.Site{testSite()}, candidates))
	text := buf.String()

	assert.Contains(t, text, "## Version 2.1\n")
	assert.Contains(t, text, "## Version_Date on June 01, 2024\n")
	assert.Contains(t, text, "# Possible new recorder sites from USGS source\n")
	assert.Contains(t, text, "# Possible new periodic sites from OWRD source\n")
	assert.NotContains(t, text, "Possible new periodic sites from USGS")
	assert.Less(t,
		strings.Index(text, "from USGS source"),
		strings.Index(text, "from OWRD source"))
	assert.Contains(t, text, "\n#KLAM0009999\tOWRD\t")

	rows, err := rdb.DecodeAll[domain.SiteInfo](strings.NewReader(text), "site_id")
	require.NoError(t, err)
	require.Len(t, rows, 1, "candidate rows are commented out")
	assert.Equal(t, testSite().SiteInfo, rows[0])
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Waterlevel: filepath.Join(dir, "waterlevel.txt"),
		Summary:    filepath.Join(dir, "site_summary.txt"),
		Collection: filepath.Join(dir, "collection.txt"),
	}
	w := NewWriter(files, "1.0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	res := &pipeline.Result{
		RecordedOn:   recordedOn,
		Sites:        []domain.Site{testSite()},
		Measurements: []domain.Measurement{testMeasurement()},
	}

	require.NoError(t, w.Write(context.Background(), res))

	for _, path := range []string{files.Waterlevel, files.Summary, files.Collection} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestWriter_Write_FailureKeepsOldFiles(t *testing.T) {
	dir := t.TempDir()
	waterlevel := filepath.Join(dir, "waterlevel.txt")
	require.NoError(t, os.WriteFile(waterlevel, []byte("old\n"), 0o644))

	files := Files{
		Waterlevel: waterlevel,
		Summary:    filepath.Join(dir, "missing-dir", "site_summary.txt"),
	}
	w := NewWriter(files, "1.0", slog.New(slog.NewTextHandler(io.Discard, nil)))
	res := &pipeline.Result{RecordedOn: recordedOn, Measurements: []domain.Measurement{testMeasurement()}}

	require.Error(t, w.Write(context.Background(), res))

	got, err := os.ReadFile(waterlevel)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCheck_ConsistentOutputs(t *testing.T) {
	site := testSite()
	site.GW = domain.NewRollup(map[string]domain.Period{
		"USGS": {Begin: "2023-07-10", End: "2023-07-10", Count: 1},
	}, recordedOn, 365*24*time.Hour)

	var levels, summary bytes.Buffer
	require.NoError(t, WriteWaterlevel(&levels, recordedOn, []domain.Measurement{testMeasurement()}))
	require.NoError(t, WriteSummary(&summary, recordedOn, []domain.Site{site}))

	problems, err := Check(&levels, &summary)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCheck_Problems(t *testing.T) {
	levels := "site_id\tlev_dt\tlev_agency_cd\n" +
		"S1\t2020-01-01\tUSGS\n" +
		"S1\t2020-01-01\tOWRD\n" +
		"S1\t2021-05-02\tOR004\n" +
		"S9\t2020-01-01\tUSGS\n"
	summary := "site_id\tgw_begin_date\tgw_end_date\tgw_count\n" +
		"S1\t2020-01-01\t2021-05-02\t3\n" +
		"S2\t\t\t\n"

	problems, err := Check(strings.NewReader(levels), strings.NewReader(summary))
	require.NoError(t, err)

	var got []string
	for _, p := range problems {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{
		"S1: more than one reading on 2020-01-01",
		`S1: reading on 2021-05-02 has agency "OR004"`,
		"S9: reading on 2020-01-01 for a site missing from the summary",
		"S1: gw_count is 3 but waterlevel has 2 readings",
	}, got)
}

func TestCheck_MissingColumns(t *testing.T) {
	_, err := Check(strings.NewReader("site_id\tlev_va\nS1\t1.0\n"), strings.NewReader("site_id\nS1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waterlevel")
}
