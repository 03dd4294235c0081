// Package metrics provides the centralized Prometheus registry reference for
// the extractor. Metrics are defined in their respective packages (client,
// cache, normalize, export) via promauto to maintain modularity.
//
// This package documents all available metrics in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the extractor.
// All metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - prixnc_requests_total{status} (Counter): Upstream requests by HTTP status,
//     plus "network_error" and "cache_hit" pseudo-statuses
//   - prixnc_request_duration_seconds{endpoint} (Histogram): Fetch duration
//   - prixnc_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - prixnc_retries_total{error_class} (Counter): Retry attempts by error class
//   - prixnc_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - prixnc_retry_exhausted_total{error_class} (Counter): Fetches that exhausted retries
//
// Cache Metrics (pkg/cache):
//   - prixnc_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - prixnc_cache_misses_total (Counter): Page cache misses
//   - prixnc_cache_errors_total{operation} (Counter): Cache operation errors
//
// Data Quality Metrics (pkg/normalize):
//   - prixnc_records_normalized_total (Counter): Records kept
//   - prixnc_malformed_prices_total (Counter): Prices coerced to zero
//   - prixnc_skipped_records_total (Counter): Records dropped for missing identifier
//
// Export Metrics (pkg/export):
//   - prixnc_exports_total{format, outcome} (Counter): Export attempts by format and outcome
//
// Example Prometheus Queries:
//
//   # Data quality ratio
//   rate(prixnc_malformed_prices_total[5m]) / rate(prixnc_records_normalized_total[5m])
//
//   # Retry pressure
//   rate(prixnc_retries_total[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(prixnc_request_duration_seconds_bucket[5m]))
