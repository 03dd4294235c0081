package export

import (
	"encoding/csv"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/prixnc/extractor/pkg/normalize"
)

// CSVExporter writes one header row followed by one row per record, all
// values rendered as text. Output is byte-deterministic for identical
// result sets.
type CSVExporter struct{}

// NewCSV creates a CSV exporter.
func NewCSV() *CSVExporter {
	return &CSVExporter{}
}

// Format returns "csv".
func (e *CSVExporter) Format() string {
	return "csv"
}

// Export writes the result set to path.
func (e *CSVExporter) Export(records []normalize.Record, path string) error {
	schema := BuildSchema(records)

	err := writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(schema.Columns); err != nil {
			return err
		}
		for _, record := range records {
			if err := cw.Write(schema.Row(record)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	observe(e.Format(), err)
	if err != nil {
		return &ExportError{Format: e.Format(), Path: path, Err: err}
	}

	log.Info().
		Str("component", "export").
		Str("format", e.Format()).
		Str("path", path).
		Int("rows", len(records)).
		Msg("Artifact written")
	return nil
}
