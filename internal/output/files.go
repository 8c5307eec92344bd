// Package output writes the waterlevel, site-summary, and collection files.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/groundwater-etl/internal/pipeline"
)

// Files names the output paths. An empty Collection skips the collection
// rewrite.
type Files struct {
	Waterlevel string
	Summary    string
	Collection string
}

// Writer implements pipeline.Sink. All files are staged next to their
// targets and renamed into place only after every one was written.
type Writer struct {
	files   Files
	version string
	logger  *slog.Logger
}

// NewWriter creates a Writer. version is stamped into the collection header.
func NewWriter(files Files, version string, logger *slog.Logger) *Writer {
	return &Writer{files: files, version: version, logger: logger}
}

type stagedFile struct {
	target string
	temp   string
}

// Write stages and publishes every output file of res.
func (w *Writer) Write(ctx context.Context, res *pipeline.Result) error {
	jobs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{w.files.Waterlevel, func(out io.Writer) error {
			return WriteWaterlevel(out, res.RecordedOn, res.Measurements)
		}},
		{w.files.Summary, func(out io.Writer) error {
			return WriteSummary(out, res.RecordedOn, res.Sites)
		}},
		{w.files.Collection, func(out io.Writer) error {
			return WriteCollection(out, w.version, res.RecordedOn, res.Sites, res.Candidates)
		}},
	}

	var staged []stagedFile
	cleanup := func() {
		for _, s := range staged {
			_ = os.Remove(s.temp)
		}
	}
	for _, job := range jobs {
		if job.path == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		temp, err := stage(job.path, job.write)
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, stagedFile{target: job.path, temp: temp})
	}

	for i, s := range staged {
		if err := os.Rename(s.temp, s.target); err != nil {
			for _, rest := range staged[i:] {
				_ = os.Remove(rest.temp)
			}
			return fmt.Errorf("replace %s: %w", s.target, err)
		}
		w.logger.Info("output written", "path", s.target)
	}
	return nil
}

// stage writes a temp file in the target's directory and returns its path.
func stage(target string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", target, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	// CreateTemp uses 0600; outputs are read by other users.
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("chmod %s: %w", target, err)
	}
	return f.Name(), nil
}
