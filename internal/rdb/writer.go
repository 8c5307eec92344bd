package rdb

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Column describes one output column and its display width for the format row.
type Column struct {
	Name  string
	Width int
}

// Writer emits an RDB document: comment lines, the column row, the format
// row, then data rows. Call Flush when done.
type Writer struct {
	w       *bufio.Writer
	columns []Column
	header  bool
}

// NewWriter creates a Writer for the given column layout.
func NewWriter(w io.Writer, columns []Column) *Writer {
	return &Writer{w: bufio.NewWriter(w), columns: columns}
}

// Comment writes a comment line. A leading '#' is added when missing.
func (w *Writer) Comment(line string) error {
	if !strings.HasPrefix(line, "#") {
		line = "# " + line
	}
	_, err := fmt.Fprintln(w.w, line)
	return err
}

// WriteHeader writes the column and format rows. It is called implicitly by
// the first Write if not called explicitly.
func (w *Writer) WriteHeader() error {
	if w.header {
		return nil
	}
	w.header = true

	names := make([]string, len(w.columns))
	formats := make([]string, len(w.columns))
	for i, c := range w.columns {
		names[i] = c.Name
		formats[i] = fmt.Sprintf("%ds", c.Width)
	}
	if _, err := fmt.Fprintln(w.w, strings.Join(names, "\t")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.w, strings.Join(formats, "\t"))
	return err
}

// Write writes one data row. values must be in column order.
func (w *Writer) Write(values []string) error {
	if len(values) != len(w.columns) {
		return fmt.Errorf("rdb: row has %d values, want %d", len(values), len(w.columns))
	}
	if err := w.WriteHeader(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.w, strings.Join(sanitize(values), "\t"))
	return err
}

// WriteCommented writes a data row prefixed with '#', so readers skip it.
// Operators uncomment such rows to accept them.
func (w *Writer) WriteCommented(values []string) error {
	if len(values) != len(w.columns) {
		return fmt.Errorf("rdb: row has %d values, want %d", len(values), len(w.columns))
	}
	if err := w.WriteHeader(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.w, "#"+strings.Join(sanitize(values), "\t"))
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", "")

// sanitize strips tabs and newlines that would break the row structure.
func sanitize(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cellReplacer.Replace(v)
	}
	return out
}
