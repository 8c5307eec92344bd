package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

const activeWindow = 365 * 24 * time.Hour

func TestPeriodFromKeys(t *testing.T) {
	p := PeriodFromKeys([]string{"2020-06-15", "1978", "2001-05", "2019-01-02"})
	assert.Equal(t, Period{Begin: "1978", End: "2020-06-15", Count: 4}, p)
	assert.True(t, PeriodFromKeys(nil).IsZero())
}

func TestCombinePeriods(t *testing.T) {
	got := CombinePeriods(
		Period{Begin: "2001-01-01", End: "2010-12-31", Count: 20},
		Period{},
		Period{Begin: "1995-03-01", End: "2005-01-01", Count: 5},
	)
	assert.Equal(t, Period{Begin: "1995-03-01", End: "2010-12-31", Count: 25}, got)
}

func TestActiveStatus(t *testing.T) {
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		end  string
		want string
	}{
		{"2026-10-17", StatusActive},
		{"2025-10-17", StatusActive},   // exactly 365 days back
		{"2025-10-16", StatusInactive}, // one day outside
		{"2026", StatusActive},
		{"2025", StatusInactive},
		{"", ""},
		{"garbage", ""},
	}
	for _, tt := range tests {
		t.Run(tt.end, func(t *testing.T) {
			assert.Equal(t, tt.want, ActiveStatus(tt.end, now, activeWindow))
		})
	}
}

func TestNewRollup(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	r := NewRollup(map[string]Period{
		AgencyCDWR: {Begin: "2010-01-01", End: "2026-05-01", Count: 3},
		AgencyUSGS: {Begin: "1978", End: "2001-06-01", Count: 10},
		AgencyOWRD: {},
	}, Now(), activeWindow)

	assert.Equal(t, []string{AgencyUSGS, AgencyCDWR}, r.Agencies)
	assert.Equal(t, "USGS,CDWR", r.AgencyList())
	assert.Equal(t, StatusInactive, r.Agency(AgencyUSGS).Status)
	assert.Equal(t, StatusActive, r.Agency(AgencyCDWR).Status)
	assert.True(t, r.Agency(AgencyOWRD).IsZero())
	assert.Equal(t, Period{Begin: "1978", End: "2026-05-01", Status: StatusActive, Count: 13}, r.Total)
}

func TestIsCanonicalAgency(t *testing.T) {
	assert.True(t, IsCanonicalAgency("OWRD"))
	assert.False(t, IsCanonicalAgency("USBR"))
	assert.False(t, IsCanonicalAgency("owrd"))
}

func TestCounty_Names(t *testing.T) {
	tests := []struct {
		county  County
		prefix  string
		station string
	}{
		{County{FIPS: "41035", State: "OR", Name: "Klamath County"}, "KLAM", "Klamath, OR"},
		{County{FIPS: "06093", State: "CA", Name: "Siskiyou County"}, "SISK", "Siskiyou"},
		{County{FIPS: "41069", State: "OR", Name: "Lee"}, "LEE", "Lee, OR"},
	}
	for _, tt := range tests {
		t.Run(tt.county.FIPS, func(t *testing.T) {
			assert.Equal(t, tt.prefix, tt.county.Prefix())
			assert.Equal(t, tt.station, tt.county.StationCounty())
		})
	}
}
