package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// Precision codes (lev_dt_acy_cd).
const (
	PrecisionYear   = "Y"
	PrecisionMonth  = "M"
	PrecisionDay    = "D"
	PrecisionMinute = "m"
)

// LocalZone is the display zone for minute-precision readings. Pacific
// Standard Time is applied year-round; daylight saving is not observed.
const LocalZone = "PST"

var pacificStandard = time.FixedZone(LocalZone, -8*60*60)

// zoneOffsets maps NWIS lev_tz_cd values to hours east of UTC.
var zoneOffsets = map[string]int{
	"":    0,
	"UTC": 0,
	"GMT": 0,
	"PST": -8,
	"PDT": -7,
	"MST": -7,
	"MDT": -6,
	"CST": -6,
	"CDT": -5,
	"EST": -5,
	"EDT": -4,
}

// dateOnlyTimeRe matches clock values that carry no real time of day:
// midnight or noon, with or without seconds.
var dateOnlyTimeRe = regexp.MustCompile(`^(00|12):00(:00(\.0+)?)?$`)

// Timestamp is a normalized measurement time.
type Timestamp struct {
	UTC       time.Time
	Precision string // lev_dt_acy_cd
	Date      string // lev_dt, local
	Time      string // lev_tm, local, empty unless minute precision
	TZ        string // lev_tz_cd, empty unless minute precision
	Local     string // lev_str_dt
}

// DTM formats the canonical UTC instant as lev_dtm.
func (ts Timestamp) DTM() string {
	return ts.UTC.Format("2006-01-02 15:04") + " UTC"
}

// Key is the deduplication key: the local calendar date, or the year or
// year-month for coarser precisions.
func (ts Timestamp) Key() string {
	if len(ts.Local) > 10 {
		return ts.Local[:10]
	}
	return ts.Local
}

// DateOnly reports whether a source clock value means "no time recorded".
// Sources write midnight or noon when only a date was taken, so a genuine
// reading at exactly 00:00 or 12:00 is indistinguishable and is treated as
// date-only as well.
func DateOnly(clock string) bool {
	clock = strings.TrimSpace(clock)
	return clock == "" || dateOnlyTimeRe.MatchString(clock)
}

// NormalizeNWIS normalizes a USGS gwlevels date. When precision is empty or
// unrecognized it is inferred from the shape of date and clock.
func NormalizeNWIS(date, clock, tz, precision string) (Timestamp, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	switch precision {
	case PrecisionYear, PrecisionMonth, PrecisionDay, PrecisionMinute:
	default:
		precision = inferPrecision(date, clock)
	}

	switch precision {
	case PrecisionYear:
		y, err := strconv.Atoi(date)
		if err != nil || len(date) != 4 {
			return Timestamp{}, fmt.Errorf("invalid year %q", date)
		}
		return coarse(date, time.Date(y, time.July, 16, 12, 0, 0, 0, time.UTC), PrecisionYear), nil

	case PrecisionMonth:
		t, err := time.Parse("2006-01", date)
		if err != nil {
			return Timestamp{}, fmt.Errorf("invalid year-month %q: %w", date, err)
		}
		day := 16
		if t.Month() == time.February {
			day = 15
		}
		return coarse(date, time.Date(t.Year(), t.Month(), day, 12, 0, 0, 0, time.UTC), PrecisionMonth), nil

	case PrecisionDay:
		return dayPrecision(date, "2006-01-02")

	default:
		hours, ok := zoneOffsets[strings.ToUpper(tz)]
		if !ok {
			return Timestamp{}, fmt.Errorf("unknown time zone %q", tz)
		}
		loc := time.FixedZone(strings.ToUpper(tz), hours*60*60)
		if hours == 0 {
			loc = time.UTC
		}
		return minutePrecision(date, "2006-01-02", clock, loc)
	}
}

// NormalizeOWRDExport normalizes an OWRD export measured_datetime value,
// "MM/DD/YYYY[ HH:MM[:SS]]", in Pacific Standard Time.
func NormalizeOWRDExport(datetime string) (Timestamp, error) {
	fields := strings.Fields(datetime)
	if len(fields) == 0 {
		return Timestamp{}, fmt.Errorf("empty measured date")
	}
	clock := ""
	if len(fields) > 1 {
		clock = fields[1]
	}
	layout := "01/02/2006"
	if strings.Contains(fields[0], "-") {
		layout = "2006-01-02"
	}
	return localReading(fields[0], layout, clock)
}

// NormalizeOWRDAPI normalizes the REST API measured_date ("YYYY-MM-DD") and
// measured_time ("HH:MM") pair in Pacific Standard Time.
func NormalizeOWRDAPI(date, clock string) (Timestamp, error) {
	date = strings.TrimSpace(date)
	if len(date) > 10 {
		date = date[:10]
	}
	return localReading(date, "2006-01-02", clock)
}

// NormalizeCDWR normalizes a CNRA msmt_date, "YYYY-MM-DD[ T]HH:MM:SS", in
// Pacific Standard Time.
func NormalizeCDWR(msmtDate string) (Timestamp, error) {
	s := strings.TrimSpace(msmtDate)
	if len(s) <= 10 {
		return localReading(s, "2006-01-02", "")
	}

	t, err := iso8601.ParseString(strings.Replace(s, " ", "T", 1))
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid msmt_date %q: %w", msmtDate, err)
	}
	date := t.Format("2006-01-02")
	clock := s[11:]
	if DateOnly(clock) {
		return dayPrecision(date, "2006-01-02")
	}
	return minutePrecision(date, "2006-01-02", t.Format("15:04"), pacificStandard)
}

// ParseEndDate reads a period-of-record date of any precision ("YYYY",
// "YYYY-MM", "YYYY-MM-DD") as midnight UTC on its first day.
func ParseEndDate(s string) (time.Time, error) {
	switch len(s) {
	case 4:
		return time.Parse("2006", s)
	case 7:
		return time.Parse("2006-01", s)
	case 10:
		return time.Parse("2006-01-02", s)
	default:
		return time.Time{}, fmt.Errorf("invalid period date %q", s)
	}
}

func inferPrecision(date, clock string) string {
	switch len(date) {
	case 4:
		return PrecisionYear
	case 7:
		return PrecisionMonth
	}
	if clock != "" {
		return PrecisionMinute
	}
	return PrecisionDay
}

// localReading handles sources that report Pacific local wall time.
func localReading(date, layout, clock string) (Timestamp, error) {
	if DateOnly(clock) {
		return dayPrecision(date, layout)
	}
	return minutePrecision(date, layout, clock, pacificStandard)
}

func coarse(text string, utc time.Time, precision string) Timestamp {
	return Timestamp{UTC: utc, Precision: precision, Date: text, Local: text}
}

// dayPrecision anchors a calendar date at 12:00 UTC, which keeps the same
// calendar date in Pacific local time (04:00 PST).
func dayPrecision(date, layout string) (Timestamp, error) {
	d, err := time.Parse(layout, strings.TrimSpace(date))
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	iso := d.Format("2006-01-02")
	return Timestamp{
		UTC:       time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC),
		Precision: PrecisionDay,
		Date:      iso,
		Local:     iso,
	}, nil
}

func minutePrecision(date, layout, clock string, loc *time.Location) (Timestamp, error) {
	if parts := strings.SplitN(strings.TrimSpace(clock), ":", 3); len(parts) >= 2 {
		clock = parts[0] + ":" + parts[1]
	}
	t, err := time.ParseInLocation(layout+" 15:04", strings.TrimSpace(date)+" "+clock, loc)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid date/time %q %q: %w", date, clock, err)
	}
	utc := t.UTC()
	local := utc.In(pacificStandard)
	return Timestamp{
		UTC:       utc,
		Precision: PrecisionMinute,
		Date:      local.Format("2006-01-02"),
		Time:      local.Format("15:04"),
		TZ:        LocalZone,
		Local:     local.Format("2006-01-02 15:04"),
	}, nil
}
