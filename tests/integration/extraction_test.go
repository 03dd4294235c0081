package integration

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/prixnc/extractor/internal/testutil"
	"github.com/prixnc/extractor/pkg/client"
	"github.com/prixnc/extractor/pkg/pipeline"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// TestFullExtractionFlow runs the complete pipeline against the mock API and
// checks that every artifact carries the same rows as the result set.
func TestFullExtractionFlow(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPages([][]map[string]any{
		{
			testutil.Produit("p-1", "Riz parfume 1kg", 450.0, "Alimentation"),
			testutil.Produit("p-2", "Lait entier 1L", "N/A", "Alimentation"),
		},
		{
			testutil.Produit("p-3", "Savon", 150.0, "Hygiene"),
			testutil.Produit("", "Sans identifiant", 99.0, "Divers"),
		},
		{
			testutil.Produit("p-5", "Farine 1kg", 210.0, "Alimentation"),
			testutil.Produit("p-6", "Sucre 1kg", 180.0, "Alimentation"),
		},
	})

	clientCfg := client.DefaultConfig(mock.URL())
	c, err := client.New(clientCfg)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	c.SetSleepFunc(noSleep)
	defer c.Close()

	dir := t.TempDir()
	cfg := pipeline.DefaultConfig(dir)
	cfg.PageSize = 2
	p, err := pipeline.New(c, cfg)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Records != 5 {
		t.Fatalf("Records = %d, want 5", summary.Records)
	}

	// CSV row count == Excel row count == result set size
	f, err := os.Open(filepath.Join(dir, "produits.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	csvRows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(csvRows)-1 != summary.Records {
		t.Errorf("CSV data rows = %d, want %d", len(csvRows)-1, summary.Records)
	}

	wb, err := excelize.OpenFile(filepath.Join(dir, "produits.xlsx"))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	xlsxRows, err := wb.GetRows("Produits")
	if err != nil {
		t.Fatal(err)
	}
	if len(xlsxRows)-1 != summary.Records {
		t.Errorf("XLSX data rows = %d, want %d", len(xlsxRows)-1, summary.Records)
	}

	// Content parity between CSV and XLSX on the identifier column
	for i := 1; i < len(csvRows); i++ {
		if csvRows[i][0] != xlsxRows[i][0] {
			t.Errorf("row %d: csv id %q != xlsx id %q", i, csvRows[i][0], xlsxRows[i][0])
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "produits.pdf")); err != nil {
		t.Errorf("pdf artifact missing: %v", err)
	}
}

// TestRetryThenSuccess exercises the retry loop against a scripted flaky
// upstream end to end.
func TestRetryThenSuccess(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPages([][]map[string]any{
		{testutil.Produit("p-1", "Riz", 450.0, "Alimentation")},
	})
	mock.FailPage(0, 500, 2)

	clientCfg := client.DefaultConfig(mock.URL())
	clientCfg.Retry.MaxRetries = 3
	c, err := client.New(clientCfg)
	if err != nil {
		t.Fatal(err)
	}
	c.SetSleepFunc(noSleep)
	defer c.Close()

	dir := t.TempDir()
	cfg := pipeline.DefaultConfig(dir)
	cfg.Formats = []string{"csv"}
	p, err := pipeline.New(c, cfg)
	if err != nil {
		t.Fatal(err)
	}

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Records != 1 {
		t.Errorf("Records = %d, want 1", summary.Records)
	}
	if got := mock.Requests(0); got != 3 {
		t.Errorf("Requests = %d, want 3 (2 failures + 1 success)", got)
	}
}
