package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExcelExporter_Export(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "produits.xlsx")
	records := sampleRecords()

	exporter := NewExcel()
	if exporter.Format() != "xlsx" {
		t.Errorf("Format() = %q, want xlsx", exporter.Format())
	}
	if err := exporter.Export(records, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(excelSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	// Row count matches CSV: 1 header + one row per record
	if len(rows) != len(records)+1 {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(records)+1)
	}
	if rows[0][0] != "id" || rows[0][2] != "price" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "p-1" {
		t.Errorf("first row = %v", rows[1])
	}

	// Price is stored as a numeric cell, not text
	cellType, err := f.GetCellType(excelSheet, "C2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if cellType == excelize.CellTypeSharedString || cellType == excelize.CellTypeInlineString {
		t.Errorf("price cell type = %v, want numeric", cellType)
	}

	// Header row is bold
	styleID, err := f.GetCellStyle(excelSheet, "A1")
	if err != nil {
		t.Fatalf("GetCellStyle: %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("GetStyle: %v", err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Error("header row should be bold")
	}
}

func TestExcelExporter_ColumnWidths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "produits.xlsx")

	if err := NewExcel().Export(sampleRecords(), path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	// Column B holds the longest content ("Riz parfume 1kg"); it must be
	// wider than the minimum.
	widthB, err := f.GetColWidth(excelSheet, "B")
	if err != nil {
		t.Fatalf("GetColWidth: %v", err)
	}
	if widthB <= minColWidth {
		t.Errorf("column B width = %v, want > %v", widthB, minColWidth)
	}
}
