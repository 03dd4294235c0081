// Package pipeline drives one extraction run end to end: paginated fetch,
// per-page normalization, and export of the accumulated result set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prixnc/extractor/pkg/client"
	"github.com/prixnc/extractor/pkg/export"
	"github.com/prixnc/extractor/pkg/normalize"
)

// State is the run state machine:
// INIT → FETCHING → NORMALIZING (per page) → EXPORTING → DONE,
// with FAILED reachable from any state on a fatal error.
type State string

const (
	StateInit        State = "INIT"
	StateFetching    State = "FETCHING"
	StateNormalizing State = "NORMALIZING"
	StateExporting   State = "EXPORTING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Config holds the run configuration.
type Config struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// MaxPages is the safety bound on page requests. Zero means no bound.
	MaxPages int

	// OutputDir is the destination folder for artifacts.
	OutputDir string

	// BaseName names the artifacts: <BaseName>.csv / .xlsx / .pdf.
	BaseName string

	// Formats selects which artifacts to produce ("csv", "xlsx", "pdf").
	Formats []string

	// Title is printed on the PDF report.
	Title string

	// ExportPartial exports whatever was fetched before a fatal fetch
	// error. Off by default: a failed fetch produces no artifacts.
	ExportPartial bool
}

// DefaultConfig returns a safe default run configuration.
func DefaultConfig(outputDir string) Config {
	return Config{
		PageSize:  500,
		MaxPages:  200,
		OutputDir: outputDir,
		BaseName:  "produits",
		Formats:   []string{"csv", "xlsx", "pdf"},
		Title:     "prix.nc product catalogue",
	}
}

// FormatResult reports the outcome of one exporter.
type FormatResult struct {
	Format string
	Path   string
	Err    error
}

// Summary is the user-visible outcome of a run.
type Summary struct {
	State           State
	Pages           int
	Records         int
	MalformedPrices int
	SkippedRecords  int

	// Truncated is set when the MaxPages safety bound stopped pagination
	// before the upstream reported the last page.
	Truncated bool

	FetchErr error
	Exports  []FormatResult
}

// Err aggregates the fatal fetch error and all export errors. Nil when the
// run succeeded.
func (s *Summary) Err() error {
	errs := make([]error, 0, len(s.Exports)+1)
	if s.FetchErr != nil {
		errs = append(errs, s.FetchErr)
	}
	for _, result := range s.Exports {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errors.Join(errs...)
}

// Pipeline orchestrates one run. Not safe for concurrent use.
type Pipeline struct {
	client    *client.Client
	config    Config
	exporters []export.Exporter
	logger    zerolog.Logger
	state     State
}

// New creates a pipeline for the given client and configuration.
func New(c *client.Client, cfg Config) (*Pipeline, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be positive (got %d)", cfg.PageSize)
	}
	if len(cfg.Formats) == 0 {
		return nil, fmt.Errorf("at least one export format is required")
	}

	exporters := make([]export.Exporter, 0, len(cfg.Formats))
	for _, format := range cfg.Formats {
		exporter, err := newExporter(format, cfg.Title)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, exporter)
	}

	return &Pipeline{
		client:    c,
		config:    cfg,
		exporters: exporters,
		logger:    log.With().Str("component", "pipeline").Logger(),
		state:     StateInit,
	}, nil
}

// newExporter maps a format name to its exporter.
func newExporter(format, title string) (export.Exporter, error) {
	switch format {
	case "csv":
		return export.NewCSV(), nil
	case "xlsx":
		return export.NewExcel(), nil
	case "pdf":
		return export.NewPDF(title), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// State returns the current run state.
func (p *Pipeline) State() State {
	return p.state
}

// SetExporters replaces the configured exporters (for testing).
func (p *Pipeline) SetExporters(exporters []export.Exporter) {
	p.exporters = exporters
}

// transition moves the state machine.
func (p *Pipeline) transition(to State) {
	p.logger.Debug().
		Str("from", string(p.state)).
		Str("to", string(to)).
		Msg("State transition")
	p.state = to
}

// Run executes the pipeline: fetch all pages, normalize per page in fetch
// order, then export the result set. The returned Summary is always
// populated; the error mirrors Summary.Err.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{State: StateInit}
	normalizer := normalize.New()
	var records []normalize.Record

	p.transition(StateFetching)

	for pageNum := 0; ; pageNum++ {
		if p.config.MaxPages > 0 && pageNum >= p.config.MaxPages {
			summary.Truncated = true
			p.logger.Warn().
				Int("max_pages", p.config.MaxPages).
				Msg("Page safety bound reached, truncating fetch")
			break
		}

		if err := ctx.Err(); err != nil {
			summary.FetchErr = fmt.Errorf("run aborted: %w", err)
			break
		}

		page, err := p.client.FetchPage(ctx, pageNum, p.config.PageSize)
		if err != nil {
			// The client absorbs transient errors; whatever surfaces
			// here ends pagination.
			summary.FetchErr = err
			p.logger.Error().Err(err).Int("page", pageNum).Msg("Fatal fetch error")
			break
		}
		summary.Pages++

		p.transition(StateNormalizing)
		records = append(records, normalizer.Page(page.Items)...)
		p.transition(StateFetching)

		if len(page.Items) == 0 || !page.HasNext {
			break
		}
	}

	stats := normalizer.Stats()
	summary.Records = len(records)
	summary.MalformedPrices = stats.MalformedPrices
	summary.SkippedRecords = stats.Skipped

	if summary.FetchErr != nil && !p.config.ExportPartial {
		p.transition(StateFailed)
		summary.State = p.state
		p.logSummary(summary)
		return summary, summary.Err()
	}

	p.transition(StateExporting)
	for _, exporter := range p.exporters {
		path := filepath.Join(p.config.OutputDir, p.config.BaseName+"."+exporter.Format())
		err := exporter.Export(records, path)
		if err != nil {
			p.logger.Error().Err(err).Str("format", exporter.Format()).Msg("Export failed")
		}
		summary.Exports = append(summary.Exports, FormatResult{
			Format: exporter.Format(),
			Path:   path,
			Err:    err,
		})
	}

	if summary.Err() != nil {
		p.transition(StateFailed)
	} else {
		p.transition(StateDone)
	}
	summary.State = p.state
	p.logSummary(summary)
	return summary, summary.Err()
}

// logSummary emits the end-of-run report.
func (p *Pipeline) logSummary(s *Summary) {
	event := p.logger.Info()
	if s.State == StateFailed {
		event = p.logger.Error()
	}
	exportsOK := 0
	exportsFailed := 0
	for _, result := range s.Exports {
		if result.Err != nil {
			exportsFailed++
		} else {
			exportsOK++
		}
	}
	event.
		Str("state", string(s.State)).
		Int("pages", s.Pages).
		Int("records", s.Records).
		Int("malformed_prices", s.MalformedPrices).
		Int("skipped_records", s.SkippedRecords).
		Bool("truncated", s.Truncated).
		Int("exports_ok", exportsOK).
		Int("exports_failed", exportsFailed).
		Msg("Run finished")
}
