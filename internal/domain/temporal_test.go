package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNWIS(t *testing.T) {
	tests := []struct {
		name                        string
		date, clock, tz, precision  string
		wantDTM, wantLocal, wantKey string
		wantDate, wantTime, wantTZ  string
		wantPrecision               string
	}{
		{
			name: "year", date: "1978", precision: "Y",
			wantDTM: "1978-07-16 12:00 UTC", wantLocal: "1978", wantKey: "1978",
			wantDate: "1978", wantPrecision: "Y",
		},
		{
			name: "month", date: "1985-03", precision: "M",
			wantDTM: "1985-03-16 12:00 UTC", wantLocal: "1985-03", wantKey: "1985-03",
			wantDate: "1985-03", wantPrecision: "M",
		},
		{
			name: "february", date: "1985-02", precision: "M",
			wantDTM: "1985-02-15 12:00 UTC", wantLocal: "1985-02", wantKey: "1985-02",
			wantDate: "1985-02", wantPrecision: "M",
		},
		{
			name: "day", date: "2020-06-15", precision: "D",
			wantDTM: "2020-06-15 12:00 UTC", wantLocal: "2020-06-15", wantKey: "2020-06-15",
			wantDate: "2020-06-15", wantPrecision: "D",
		},
		{
			name: "minute utc", date: "2020-06-15", clock: "18:30", tz: "UTC", precision: "m",
			wantDTM: "2020-06-15 18:30 UTC", wantLocal: "2020-06-15 10:30", wantKey: "2020-06-15",
			wantDate: "2020-06-15", wantTime: "10:30", wantTZ: "PST", wantPrecision: "m",
		},
		{
			name: "minute crosses local midnight", date: "2020-06-15", clock: "03:00", tz: "UTC", precision: "m",
			wantDTM: "2020-06-15 03:00 UTC", wantLocal: "2020-06-14 19:00", wantKey: "2020-06-14",
			wantDate: "2020-06-14", wantTime: "19:00", wantTZ: "PST", wantPrecision: "m",
		},
		{
			name: "minute pdt", date: "2020-06-15", clock: "10:30", tz: "PDT", precision: "m",
			wantDTM: "2020-06-15 17:30 UTC", wantLocal: "2020-06-15 09:30", wantKey: "2020-06-15",
			wantDate: "2020-06-15", wantTime: "09:30", wantTZ: "PST", wantPrecision: "m",
		},
		{
			name: "precision inferred", date: "1990-07",
			wantDTM: "1990-07-16 12:00 UTC", wantLocal: "1990-07", wantKey: "1990-07",
			wantDate: "1990-07", wantPrecision: "M",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NormalizeNWIS(tt.date, tt.clock, tt.tz, tt.precision)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDTM, ts.DTM())
			assert.Equal(t, tt.wantLocal, ts.Local)
			assert.Equal(t, tt.wantKey, ts.Key())
			assert.Equal(t, tt.wantDate, ts.Date)
			assert.Equal(t, tt.wantTime, ts.Time)
			assert.Equal(t, tt.wantTZ, ts.TZ)
			assert.Equal(t, tt.wantPrecision, ts.Precision)
		})
	}
}

func TestNormalizeNWIS_Invalid(t *testing.T) {
	_, err := NormalizeNWIS("19x8", "", "", "Y")
	assert.Error(t, err)

	_, err = NormalizeNWIS("2020-06-15", "10:00", "XST", "m")
	assert.Error(t, err)

	_, err = NormalizeNWIS("2020-13-01", "", "", "D")
	assert.Error(t, err)
}

func TestYearPrecisionFallsOnJuly16(t *testing.T) {
	for _, y := range []string{"1900", "1952", "2000", "2024"} {
		ts, err := NormalizeNWIS(y, "", "", PrecisionYear)
		require.NoError(t, err)
		assert.Equal(t, time.July, ts.UTC.Month())
		assert.Equal(t, 16, ts.UTC.Day())
	}
}

func TestDayPrecisionKeepsLocalDate(t *testing.T) {
	pst := time.FixedZone("PST", -8*60*60)
	for _, d := range []string{"2020-01-01", "2020-06-15", "2020-12-31"} {
		ts, err := NormalizeCDWR(d)
		require.NoError(t, err)
		assert.Equal(t, d, ts.UTC.In(pst).Format("2006-01-02"))
		assert.Equal(t, d, ts.Key())
	}
}

func TestNormalizeOWRDExport(t *testing.T) {
	t.Run("midnight is date-only", func(t *testing.T) {
		ts, err := NormalizeOWRDExport("01/01/2020 00:00:00")
		require.NoError(t, err)
		assert.Equal(t, PrecisionDay, ts.Precision)
		assert.Empty(t, ts.Time)
		assert.Empty(t, ts.TZ)
		assert.Equal(t, "2020-01-01", ts.Key())
		assert.Equal(t, "2020-01-01 12:00 UTC", ts.DTM())
		// Local anchor is 04:00 PST.
		assert.Equal(t, 4, ts.UTC.In(pacificStandard).Hour())
	})

	t.Run("noon is date-only", func(t *testing.T) {
		ts, err := NormalizeOWRDExport("03/10/2015 12:00")
		require.NoError(t, err)
		assert.Equal(t, PrecisionDay, ts.Precision)
		assert.Equal(t, "2015-03-10", ts.Date)
	})

	t.Run("no time", func(t *testing.T) {
		ts, err := NormalizeOWRDExport("03/10/2015")
		require.NoError(t, err)
		assert.Equal(t, PrecisionDay, ts.Precision)
	})

	t.Run("minute", func(t *testing.T) {
		ts, err := NormalizeOWRDExport("03/10/2015 09:45:00")
		require.NoError(t, err)
		assert.Equal(t, PrecisionMinute, ts.Precision)
		assert.Equal(t, "2015-03-10 17:45 UTC", ts.DTM())
		assert.Equal(t, "2015-03-10 09:45", ts.Local)
		assert.Equal(t, "09:45", ts.Time)
		assert.Equal(t, "PST", ts.TZ)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NormalizeOWRDExport("")
		assert.Error(t, err)
		_, err = NormalizeOWRDExport("31/12/2015")
		assert.Error(t, err)
	})
}

func TestNormalizeOWRDAPI(t *testing.T) {
	ts, err := NormalizeOWRDAPI("2019-04-02", "")
	require.NoError(t, err)
	assert.Equal(t, PrecisionDay, ts.Precision)

	ts, err = NormalizeOWRDAPI("2019-04-02T00:00:00", "13:05")
	require.NoError(t, err)
	assert.Equal(t, "2019-04-02 21:05 UTC", ts.DTM())
	assert.Equal(t, "2019-04-02", ts.Key())
}

func TestNormalizeCDWR(t *testing.T) {
	ts, err := NormalizeCDWR("2018-10-22 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, PrecisionDay, ts.Precision)
	assert.Equal(t, "2018-10-22 12:00 UTC", ts.DTM())

	ts, err = NormalizeCDWR("2018-10-22T20:15:00")
	require.NoError(t, err)
	assert.Equal(t, PrecisionMinute, ts.Precision)
	assert.Equal(t, "2018-10-23 04:15 UTC", ts.DTM())
	assert.Equal(t, "2018-10-22", ts.Key(), "key stays on the local date")

	_, err = NormalizeCDWR("22/10/2018 20:15")
	assert.Error(t, err)
}

// A genuine reading at exactly midnight or noon cannot be told apart from
// "no time recorded"; both are read as date-only.
func TestDateOnly_KnownLimitation(t *testing.T) {
	for _, clock := range []string{"", "00:00", "12:00", "00:00:00", "12:00:00", "00:00:00.000"} {
		assert.True(t, DateOnly(clock), clock)
	}
	for _, clock := range []string{"00:01", "11:59", "12:00:30", "06:00"} {
		assert.False(t, DateOnly(clock), clock)
	}
}

func TestParseEndDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2020", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2020-06", time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)},
		{"2020-06-15", time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseEndDate(tt.in)
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), tt.in)
	}
	_, err := ParseEndDate("2020-6-1")
	assert.Error(t, err)
}
