// Package cache provides a Redis-backed page cache so repeated or resumed
// runs within the TTL window skip pages that were already downloaded.
package cache

import (
	"time"
)

// Entry represents one cached page payload.
type Entry struct {
	// Body is the raw page payload as returned by the upstream
	Body []byte `json:"body"`

	// FetchedAt is when the page was downloaded
	FetchedAt time.Time `json:"fetched_at"`
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age() time.Duration {
	return time.Since(e.FetchedAt)
}
