package export

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/prixnc/extractor/pkg/normalize"
)

// Excel layout bounds.
const (
	excelSheet    = "Produits"
	minColWidth   = 8.0
	maxColWidth   = 60.0
	colWidthSlack = 2.0
)

// ExcelExporter writes a single worksheet with the same header/row contract
// as CSV, a bold header row, auto-sized columns, and numeric price cells.
type ExcelExporter struct{}

// NewExcel creates an XLSX exporter.
func NewExcel() *ExcelExporter {
	return &ExcelExporter{}
}

// Format returns "xlsx".
func (e *ExcelExporter) Format() string {
	return "xlsx"
}

// Export writes the result set to path.
func (e *ExcelExporter) Export(records []normalize.Record, path string) error {
	schema := BuildSchema(records)

	err := writeAtomic(path, func(w io.Writer) error {
		return e.writeWorkbook(schema, records, w)
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

func (e *ExcelExporter) writeWorkbook(schema Schema, records []normalize.Record, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// Header row
	for col, name := range schema.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(excelSheet, cell, name); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(schema.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(excelSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	// Data rows; price as a numeric cell, everything else as text
	widths := make([]int, len(schema.Columns))
	for i, name := range schema.Columns {
		widths[i] = utf8.RuneCountInString(name)
	}

	for rowIdx, record := range records {
		row := schema.Row(record)
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if col == priceColumn {
				price, _ := record.Price.Float64()
				if err := f.SetCellValue(excelSheet, cell, price); err != nil {
					return err
				}
			} else {
				if err := f.SetCellStr(excelSheet, cell, value); err != nil {
					return err
				}
			}
			if n := utf8.RuneCountInString(value); n > widths[col] {
				widths[col] = n
			}
		}
	}

	// Column auto-sizing from the longest cell per column
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		w := float64(width) + colWidthSlack
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}
		if err := f.SetColWidth(excelSheet, name, name, w); err != nil {
			return err
		}
	}

	return f.Write(w)
}
