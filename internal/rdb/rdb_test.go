package rdb

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type levelRow struct {
	AgencyCd string `csv:"agency_cd"`
	SiteNo   string `csv:"site_no"`
	LevDt    string `csv:"lev_dt"`
	LevVa    string `csv:"lev_va"`
}

const nwisDoc = `# ---------------------------------- WARNING ----------------------------------------
# Some of the data that you have obtained from this U.S. Geological Survey database
#
Agency_cd	Site_no	Lev_dt	Lev_va
5s	15s	10d	12s
USGS	420358121280001	2020-06-15	42.3

# mid-document comment
USGS	420358121280001	2020-09-01	None
`

func TestDecodeAll_NWIS(t *testing.T) {
	rows, err := DecodeAll[levelRow](strings.NewReader(nwisDoc), "site_no", "lev_dt")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, levelRow{AgencyCd: "USGS", SiteNo: "420358121280001", LevDt: "2020-06-15", LevVa: "42.3"}, rows[0])
	assert.Empty(t, rows[1].LevVa, "None is read as empty")
}

func TestNewReader_NoFormatRow(t *testing.T) {
	doc := "gw_logid\tmeasured_datetime\nKLAM0001\t01/01/2020 00:00:00\n"
	type row struct {
		LogID string `csv:"gw_logid"`
		When  string `csv:"measured_datetime"`
	}

	rows, err := DecodeAll[row](strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "KLAM0001", rows[0].LogID)
	assert.Equal(t, "01/01/2020 00:00:00", rows[0].When)
}

func TestNewReader_ShortRowsPadded(t *testing.T) {
	doc := "site_no\tlev_dt\tlev_va\n15s\t10d\t12s\n4203\t2020-06-15\n"

	rows, err := DecodeAll[levelRow](strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2020-06-15", rows[0].LevDt)
	assert.Empty(t, rows[0].LevVa)
}

func TestNewReader_Empty(t *testing.T) {
	_, err := NewReader(strings.NewReader("# only comments\n\n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReader_Require(t *testing.T) {
	rd, err := NewReader(strings.NewReader("site_id\tsite_no\n"))
	require.NoError(t, err)

	require.NoError(t, rd.Require("site_id"))

	err = rd.Require("site_id", "coop_site_no", "cdwr_id")
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "coop_site_no, cdwr_id")
}

func TestReader_HeaderOnly(t *testing.T) {
	rd, err := NewReader(strings.NewReader("site_no\tlev_dt\n15s\t10d\n"))
	require.NoError(t, err)

	var row levelRow
	assert.True(t, errors.Is(rd.Decode(&row), io.EOF))
}

func TestIsFormatRow(t *testing.T) {
	tests := []struct {
		row  []string
		want bool
	}{
		{[]string{"20s", "10d", "12n"}, true},
		{[]string{"s", "d"}, true},
		{[]string{"USGS", "15s"}, false},
		{[]string{"2020-06-15"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isFormatRow(tt.row), "%v", tt.row)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, []Column{{"site_id", 20}, {"lev_va", 12}})

	require.NoError(t, w.Comment("## Groundwater Waterlevel Information"))
	require.NoError(t, w.Write([]string{"420358121280001", "42.3"}))
	require.NoError(t, w.WriteCommented([]string{"KLAM0001", "bad\tvalue"}))
	require.NoError(t, w.Flush())

	want := "## Groundwater Waterlevel Information\n" +
		"site_id\tlev_va\n" +
		"20s\t12s\n" +
		"420358121280001\t42.3\n" +
		"#KLAM0001\tbad value\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_WrongWidth(t *testing.T) {
	w := NewWriter(io.Discard, []Column{{"site_id", 20}})
	assert.Error(t, w.Write([]string{"a", "b"}))
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, []Column{{"agency_cd", 5}, {"site_no", 15}, {"lev_dt", 10}, {"lev_va", 12}})
	require.NoError(t, w.Write([]string{"USGS", "420358121280001", "2020-06-15", "42.3"}))
	require.NoError(t, w.Flush())

	rows, err := DecodeAll[levelRow](&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42.3", rows[0].LevVa)
}
