// Package testutil provides testing utilities for the prix.nc extractor.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// productsPath is the listing path the client requests.
const productsPath = "/api/v1/produits/"

// pageScript configures failures for one page: the first Times requests get
// Status, later ones the normal payload. Times < 0 means fail forever.
type pageScript struct {
	Status int
	Times  int
	served int
}

// MockAPI is a configurable mock prix.nc server speaking the HAL pagination
// format.
type MockAPI struct {
	server *httptest.Server
	mu     sync.Mutex

	pages    [][]map[string]any
	pageSize int
	scripts  map[int]*pageScript
	rawBody  map[int]string

	// Tracking
	requestCount int
	pageHits     map[int]int
	lastHeader   http.Header
}

// NewMockAPI creates a mock server with no pages configured.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		scripts:  make(map[int]*pageScript),
		rawBody:  make(map[int]string),
		pageHits: make(map[int]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetPages configures the catalogue served page by page. Page numbers are
// zero-based; the last page carries no next link.
func (m *MockAPI) SetPages(pages [][]map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

// FailPage makes the first times requests for page fail with status before
// the page serves normally. Pass times < 0 to fail every request.
func (m *MockAPI) FailPage(page, status, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[page] = &pageScript{Status: status, Times: times}
}

// SetRawBody serves a literal body with status 200 for page, bypassing HAL
// encoding. Useful for malformed-payload tests.
func (m *MockAPI) SetRawBody(page int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawBody[page] = body
}

// Requests returns how many requests were made for page.
func (m *MockAPI) Requests(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageHits[page]
}

// TotalRequests returns the total request count.
func (m *MockAPI) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// LastHeader returns the headers of the most recent request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != productsPath {
		http.NotFound(w, r)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	m.mu.Lock()
	m.requestCount++
	m.pageHits[page]++
	m.lastHeader = r.Header.Clone()

	if script, ok := m.scripts[page]; ok {
		if script.Times < 0 || script.served < script.Times {
			script.served++
			status := script.Status
			m.mu.Unlock()
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error": %q}`, http.StatusText(status))
			return
		}
	}

	if body, ok := m.rawBody[page]; ok {
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
		return
	}

	body := m.encodePage(page, size)
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/hal+json")
	w.Write(body)
}

// encodePage builds the HAL payload for a page. Callers hold the lock.
func (m *MockAPI) encodePage(page, size int) []byte {
	totalPages := len(m.pages)
	totalElements := 0
	for _, items := range m.pages {
		totalElements += len(items)
	}

	var items []map[string]any
	if page < len(m.pages) {
		items = m.pages[page]
	}

	links := map[string]map[string]string{
		"self": {"href": fmt.Sprintf("%s%s?page=%d&size=%d", m.server.URL, productsPath, page, size)},
	}
	if page+1 < totalPages {
		links["next"] = map[string]string{
			"href": fmt.Sprintf("%s%s?page=%d&size=%d", m.server.URL, productsPath, page+1, size),
		}
	}

	payload := map[string]any{
		"_embedded": map[string]any{"produits": items},
		"_links":    links,
		"page": map[string]any{
			"size":          size,
			"totalElements": totalElements,
			"totalPages":    totalPages,
			"number":        page,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("testutil: encode page: %v", err))
	}
	return body
}

// Produit builds a raw item with the standard upstream fields.
func Produit(id, name string, price any, category string) map[string]any {
	item := map[string]any{
		"nom":       name,
		"prix":      price,
		"categorie": category,
		"_links": map[string]any{
			"self": map[string]string{"href": "https://prix.nc/api/v1/produits/" + id},
		},
	}
	if id != "" {
		item["id"] = id
	}
	return item
}
