package cache

import (
	"fmt"
	"strings"
)

// Key identifies one cached page of the product listing.
type Key struct {
	// Endpoint is the upstream path (e.g. "/api/v1/produits/")
	Endpoint string

	// Page is the zero-based page number
	Page int

	// Size is the page size the request asked for
	Size int
}

// String generates a deterministic cache key string.
// Format: prixnc:endpoint:page=N:size=M
//
// Example:
//
//	prixnc:api/v1/produits:page=3:size=500
func (k Key) String() string {
	endpoint := strings.Trim(k.Endpoint, "/")
	return fmt.Sprintf("prixnc:%s:page=%d:size=%d", endpoint, k.Page, k.Size)
}
