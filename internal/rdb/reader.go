// Package rdb reads and writes the tab-delimited RDB text convention shared by
// USGS NWIS responses, OWRD exports, and the collection/waterlevel files.
//
// An RDB document is a run of '#' comment lines, one row of column names, an
// optional row of format specifiers (e.g. "20s", "10d"), and tab-separated
// data rows. Comment lines may also appear between data rows.
package rdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jszwec/csvutil"
)

var (
	// ErrEmptyInput is returned when a document has no header row.
	ErrEmptyInput = errors.New("rdb: no header row")
	// ErrMissingColumn is returned by Require when a needed column is absent.
	ErrMissingColumn = errors.New("rdb: missing column")
)

// formatFieldRe matches a format specifier cell such as "20s", "5d" or "s".
var formatFieldRe = regexp.MustCompile(`^\d*[sdnf]$`)

// maxLineSize bounds a single RDB line. NWIS site responses with expanded
// output can carry long station names and remarks.
const maxLineSize = 1 << 20

// Reader decodes RDB rows into structs tagged with `csv:"column"`.
type Reader struct {
	src     *rowSource
	columns []string
	dec     *csvutil.Decoder
}

// NewReader consumes the comment block, header row, and optional format row.
// Column names are lower-cased.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	src := &rowSource{sc: sc}

	header, err := src.next()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(header[i])
	}
	src.width = len(header)

	// The format row is optional: NWIS and the collection file carry one,
	// OWRD exports do not.
	row, err := src.next()
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, fmt.Errorf("read format row: %w", err)
	case !isFormatRow(row):
		src.pending = row
	}

	dec, err := csvutil.NewDecoder(src, header...)
	if err != nil {
		return nil, fmt.Errorf("init decoder: %w", err)
	}
	return &Reader{src: src, columns: header, dec: dec}, nil
}

// Columns returns the lower-cased header names in document order.
func (r *Reader) Columns() []string {
	return r.columns
}

// Has reports whether the document carries the named column.
func (r *Reader) Has(col string) bool {
	for _, c := range r.columns {
		if c == col {
			return true
		}
	}
	return false
}

// Require returns ErrMissingColumn naming every absent column.
func (r *Reader) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !r.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Decode reads the next data row into v. It returns io.EOF after the last row.
func (r *Reader) Decode(v any) error {
	if err := r.dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("decode line %d: %w", r.src.line, err)
	}
	return nil
}

// DecodeAll parses a whole document into a slice of T after checking that
// every required column is present.
func DecodeAll[T any](r io.Reader, required ...string) ([]T, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	if err := rd.Require(required...); err != nil {
		return nil, err
	}

	var out []T
	for {
		var v T
		err := rd.Decode(&v)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func isFormatRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	for _, f := range row {
		if !formatFieldRe.MatchString(f) {
			return false
		}
	}
	return true
}

// rowSource splits lines on tabs and implements csvutil.Reader. Blank and
// comment lines are skipped, fields are trimmed, and the literal "None"
// written by older exports is treated as empty.
type rowSource struct {
	sc      *bufio.Scanner
	pending []string
	width   int
	line    int
}

func (s *rowSource) Read() ([]string, error) {
	if s.pending != nil {
		row := s.pending
		s.pending = nil
		return s.pad(row), nil
	}
	row, err := s.next()
	if err != nil {
		return nil, err
	}
	return s.pad(row), nil
}

func (s *rowSource) next() ([]string, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimRight(s.sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		for i, f := range fields {
			f = strings.TrimSpace(f)
			if f == "None" {
				f = ""
			}
			fields[i] = f
		}
		return fields, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// pad extends rows whose trailing empty cells were dropped by the producer.
func (s *rowSource) pad(row []string) []string {
	if s.width == 0 || len(row) >= s.width {
		return row
	}
	out := make([]string, s.width)
	copy(out, row)
	return out
}
