// Package export writes the normalized result set to CSV, XLSX, and PDF
// artifacts. All exporters share one deterministic column schema so every
// format carries field-for-field identical content.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prixnc/extractor/pkg/normalize"
)

// Prometheus metrics for export operations.
var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prixnc_exports_total",
		Help: "Total export attempts by format and outcome",
	}, []string{"format", "outcome"})
)

// Fixed leading columns, in output order. Extra passthrough columns follow,
// sorted by name.
var baseColumns = []string{"id", "name", "price", "category"}

// priceColumn is the index of the price column within the schema.
const priceColumn = 2

// Exporter writes a result set to one artifact.
type Exporter interface {
	// Format returns the artifact format name ("csv", "xlsx", "pdf").
	Format() string

	// Export writes all records to path. The write is atomic: either the
	// complete artifact lands at path or nothing does.
	Export(records []normalize.Record, path string) error
}

// ExportError reports a failed artifact write for one format.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// Schema is the deterministic column layout shared by all exporters.
type Schema struct {
	Columns []string
	extras  []string
}

// BuildSchema computes the column layout for a result set: the fixed base
// columns followed by the sorted union of extra field names.
func BuildSchema(records []normalize.Record) Schema {
	extras := normalize.ExtraColumns(records)
	columns := make([]string, 0, len(baseColumns)+len(extras))
	columns = append(columns, baseColumns...)
	columns = append(columns, extras...)
	return Schema{Columns: columns, extras: extras}
}

// Row renders one record as text cells in schema order. Price renders via
// decimal formatting, so identical result sets produce identical rows.
func (s Schema) Row(r normalize.Record) []string {
	row := make([]string, 0, len(s.Columns))
	row = append(row, r.ID, r.Name, r.Price.String(), r.Category)
	for _, key := range s.extras {
		row = append(row, r.Extra[key])
	}
	return row
}

// writeAtomic writes an artifact through a temp file in the destination
// directory and renames it into place on success. A failed or aborted write
// leaves no partial file at path.
func writeAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// observe records the outcome metric for an export attempt.
func observe(format string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	exportsTotal.WithLabelValues(format, outcome).Inc()
}
