package export

import (
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"github.com/prixnc/extractor/pkg/normalize"
)

// PDF layout constants (mm, landscape A4).
const (
	pdfMargin      = 10.0
	pdfRowHeight   = 6.0
	pdfTitleSize   = 14.0
	pdfHeaderSize  = 9.0
	pdfBodySize    = 8.0
	pdfMinColWidth = 18.0
	pdfMaxColWidth = 70.0
)

// PDFExporter renders a tabular report: title, generation timestamp, then
// the same rows as the other formats, with the header row repeated on every
// page. Presentation only; cell content matches CSV field for field.
type PDFExporter struct {
	// Title printed above the table.
	Title string

	now func() time.Time
}

// NewPDF creates a PDF exporter with the given report title.
func NewPDF(title string) *PDFExporter {
	return &PDFExporter{
		Title: title,
		now:   time.Now,
	}
}

// Format returns "pdf".
func (e *PDFExporter) Format() string {
	return "pdf"
}

// Export writes the result set to path.
func (e *PDFExporter) Export(records []normalize.Record, path string) error {
	schema := BuildSchema(records)

	err := writeAtomic(path, func(w io.Writer) error {
		return e.writeDocument(schema, records, w)
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

func (e *PDFExporter) writeDocument(schema Schema, records []normalize.Record, w io.Writer) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	usableW := pageW - 2*pdfMargin
	widths := e.columnWidths(schema, records, usableW)

	drawHeaderRow := func() {
		pdf.SetFont("Helvetica", "B", pdfHeaderSize)
		pdf.SetFillColor(79, 129, 189)
		pdf.SetTextColor(255, 255, 255)
		for col, name := range schema.Columns {
			pdf.CellFormat(widths[col], pdfRowHeight, tr(name), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	// First page carries title and generation timestamp
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", pdfTitleSize)
	pdf.CellFormat(usableW, 8, tr(e.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", pdfBodySize)
	pdf.CellFormat(usableW, 5, "Generated "+e.now().Format(time.RFC3339), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	drawHeaderRow()

	pdf.SetFont("Helvetica", "", pdfBodySize)
	for i, record := range records {
		if pdf.GetY()+pdfRowHeight > pageH-pdfMargin {
			pdf.AddPage()
			drawHeaderRow()
			pdf.SetFont("Helvetica", "", pdfBodySize)
		}

		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(230, 230, 230)
		}
		for col, value := range schema.Row(record) {
			pdf.CellFormat(widths[col], pdfRowHeight, tr(value), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

// columnWidths sizes columns from their longest content, clamped and then
// scaled so the table fills the usable page width.
func (e *PDFExporter) columnWidths(schema Schema, records []normalize.Record, usableW float64) []float64 {
	longest := make([]int, len(schema.Columns))
	for i, name := range schema.Columns {
		longest[i] = len(name)
	}
	for _, record := range records {
		for col, value := range schema.Row(record) {
			if len(value) > longest[col] {
				longest[col] = len(value)
			}
		}
	}

	widths := make([]float64, len(longest))
	total := 0.0
	for i, n := range longest {
		w := float64(n) * 1.8
		if w < pdfMinColWidth {
			w = pdfMinColWidth
		}
		if w > pdfMaxColWidth {
			w = pdfMaxColWidth
		}
		widths[i] = w
		total += w
	}

	scale := usableW / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}
