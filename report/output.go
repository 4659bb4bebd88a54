package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/ragdoll/config"
)

// Writer writes reports into a directory. bodies.csv and constraints.csv
// hold the latest report; summary.csv gains one row per report.
type Writer struct {
	dir         string
	summaryFile *os.File

	summaryHeaderWritten bool
}

// NewWriter creates the output directory and opens summary.csv.
// Returns nil if dir is empty (output disabled).
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating summary.csv: %w", err)
	}
	return &Writer{dir: dir, summaryFile: f}, nil
}

// WriteConfig saves the configuration used for the run as YAML.
func (w *Writer) WriteConfig(cfg *config.Config) error {
	if w == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(w.dir, "config.yaml"))
}

// WriteReport rewrites bodies.csv and constraints.csv and appends the
// summary row.
func (w *Writer) WriteReport(r *Report) error {
	if w == nil {
		return nil
	}
	if err := writeTable(filepath.Join(w.dir, "bodies.csv"), &r.Bodies); err != nil {
		return fmt.Errorf("writing bodies: %w", err)
	}
	if err := writeTable(filepath.Join(w.dir, "constraints.csv"), &r.Constraints); err != nil {
		return fmt.Errorf("writing constraints: %w", err)
	}

	records := []Summary{r.Summary}
	if !w.summaryHeaderWritten {
		if err := gocsv.Marshal(records, w.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		w.summaryHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, w.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	return nil
}

func writeTable(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Dir returns the output directory path.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Close closes summary.csv.
func (w *Writer) Close() error {
	if w == nil || w.summaryFile == nil {
		return nil
	}
	return w.summaryFile.Close()
}
