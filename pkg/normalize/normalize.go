// Package normalize converts raw prix.nc items into flat typed records,
// cleaning malformed fields and counting data-quality incidents.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Prometheus metrics for data quality.
var (
	recordsNormalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prixnc_records_normalized_total",
		Help: "Total records successfully normalized",
	})

	malformedPricesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prixnc_malformed_prices_total",
		Help: "Total records whose price could not be parsed and was coerced to zero",
	})

	skippedRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prixnc_skipped_records_total",
		Help: "Total records dropped because the identifier was missing",
	})
)

// Upstream field names on product items.
const (
	fieldID       = "id"
	fieldName     = "nom"
	fieldPrice    = "prix"
	fieldCategory = "categorie"
	fieldLinks    = "_links"
)

// Record is one normalized product. Every record has a non-empty ID; Price
// is decimal.Zero when the source value was missing or unparseable (the
// malformed-price counter is the signal for that).
type Record struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string

	// Extra holds passthrough fields rendered as trimmed text, keyed by the
	// upstream field name. Item _links metadata is stripped, never passed
	// through.
	Extra map[string]string
}

// Stats counts data-quality incidents for one run.
type Stats struct {
	// Normalized is the number of records kept.
	Normalized int

	// MalformedPrices counts prices coerced to zero.
	MalformedPrices int

	// Skipped counts records dropped for a missing identifier.
	Skipped int
}

// Normalizer cleans raw items page by page, preserving input order.
// Not safe for concurrent use; the pipeline owns one per run.
type Normalizer struct {
	stats  Stats
	logger zerolog.Logger
}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{
		logger: log.With().Str("component", "normalizer").Logger(),
	}
}

// Page normalizes one page of raw items, in input order. Malformed fields
// never fail the page; they are coerced and counted.
func (n *Normalizer) Page(items []map[string]any) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		record, ok := n.Item(item)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

// Item normalizes a single raw item. The second return value is false when
// the item was dropped (missing identifier).
func (n *Normalizer) Item(raw map[string]any) (Record, bool) {
	id := strings.TrimSpace(renderValue(raw[fieldID]))
	if id == "" {
		n.stats.Skipped++
		skippedRecordsTotal.Inc()
		n.logger.Warn().Msg("Record skipped: missing identifier")
		return Record{}, false
	}

	record := Record{
		ID:       id,
		Name:     strings.TrimSpace(renderValue(raw[fieldName])),
		Category: strings.TrimSpace(renderValue(raw[fieldCategory])),
	}

	price, ok := parsePrice(raw[fieldPrice])
	if !ok {
		n.stats.MalformedPrices++
		malformedPricesTotal.Inc()
		n.logger.Warn().
			Str("id", id).
			Interface("price", raw[fieldPrice]).
			Msg("Malformed price coerced to zero")
	}
	record.Price = price

	for key, value := range raw {
		switch key {
		case fieldID, fieldName, fieldPrice, fieldCategory, fieldLinks:
			continue
		}
		if record.Extra == nil {
			record.Extra = make(map[string]string)
		}
		record.Extra[key] = strings.TrimSpace(renderValue(value))
	}

	n.stats.Normalized++
	recordsNormalizedTotal.Inc()
	return record, true
}

// Stats returns the counters accumulated so far.
func (n *Normalizer) Stats() Stats {
	return n.stats
}

// parsePrice coerces a raw price value to a decimal. The second return value
// is false when the value was missing or unparseable and decimal.Zero is
// returned instead.
func parsePrice(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// renderValue converts an arbitrary JSON value to text. Floats that carry an
// integral value render without a fraction so identifiers decoded as float64
// round-trip cleanly.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ExtraColumns returns the sorted union of Extra keys across records, used
// by exporters to lay out a deterministic column schema.
func ExtraColumns(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for key := range r.Extra {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	return columns
}
