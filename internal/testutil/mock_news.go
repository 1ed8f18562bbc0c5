// Package testutil provides testing utilities for the news cache.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Quota headers the mock reports on every response.
const (
	headerRemaining = "X-RateLimit-Requests-Remaining"
	headerReset     = "X-RateLimit-Requests-Reset"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNewsAPI is a configurable mock news API server for testing.
//
// Without overrides it serves /v2/trendings in pages of PageSize items
// generated per topic, and /v2/info/topics from Topics.
type MockNewsAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// PageSize and TotalItems shape the generated trendings pages.
	PageSize   int
	TotalItems int

	// Topics served by /v2/info/topics as {id, name} pairs.
	Topics [][2]string

	// APIKey, when set, is required in the x-rapidapi-key header.
	APIKey string

	// Remaining is reported in the quota header.
	Remaining int

	// Version is baked into ETags and titles; bump it to simulate new content.
	Version int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	RequestsByURL     map[string]int
}

// NewMockNewsAPI creates a new mock news API server.
func NewMockNewsAPI() *MockNewsAPI {
	mock := &MockNewsAPI{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PageSize:      10,
		TotalItems:    25,
		Topics:        [][2]string{{"world", "World"}, {"general", "General"}, {"business", "Business"}},
		Remaining:     100,
		Version:       1,
		RequestsByURL: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestsByURL[r.URL.RequestURI()]++
		mock.LastRequestHeader = r.Header.Clone()

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		apiKey := mock.APIKey
		mock.mu.Unlock()

		if apiKey != "" && r.Header.Get("x-rapidapi-key") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid API key"}`))
			return
		}

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/v2/trendings":
			mock.trendingsHandler(w, r)
		case "/v2/info/topics":
			mock.topicsHandler(w, r)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"success":false}`))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockNewsAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNewsAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockNewsAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.RequestsByURL = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNewsAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockNewsAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetVersion changes the generated content and its ETags.
func (m *MockNewsAPI) SetVersion(v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Version = v
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNewsAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockNewsAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequestsFor returns how often a path plus query was requested.
func (m *MockNewsAPI) GetRequestsFor(requestURI string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestsByURL[requestURI]
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockNewsAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func (m *MockNewsAPI) writeQuota(w http.ResponseWriter) {
	w.Header().Set(headerRemaining, strconv.Itoa(m.Remaining))
	w.Header().Set(headerReset, "3600")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}

type mockPublisher struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Favicon string `json:"favicon"`
}

type mockNews struct {
	Title     string        `json:"title"`
	URL       string        `json:"url"`
	Excerpt   string        `json:"excerpt"`
	Thumbnail string        `json:"thumbnail"`
	Date      string        `json:"date"`
	Publisher mockPublisher `json:"publisher"`
}

// trendingsHandler serves generated pages with per-page ETags.
func (m *MockNewsAPI) trendingsHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	pageSize, total, version := m.PageSize, m.TotalItems, m.Version
	m.mu.RUnlock()

	m.writeQuota(w)

	q := r.URL.Query()
	topic := q.Get("topic")
	if topic == "" || q.Get("language") == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"message":"topic and language are required"}`))
		return
	}

	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"invalid page"}`))
			return
		}
		page = n
	}

	totalPages := (total + pageSize - 1) / pageSize
	etag := fmt.Sprintf(`"%s-%d-v%d"`, topic, page, version)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data := []mockNews{}
	for i := (page - 1) * pageSize; i < page*pageSize && i < total; i++ {
		data = append(data, mockNews{
			Title:     fmt.Sprintf("%s story %d (v%d)", topic, i+1, version),
			URL:       fmt.Sprintf("https://news.example.com/%s/%d", topic, i+1),
			Excerpt:   "Excerpt",
			Thumbnail: fmt.Sprintf("https://news.example.com/img/%d.jpg", i+1),
			Date:      "2025-01-02T10:00:00Z",
			Publisher: mockPublisher{Name: "Example", URL: "https://news.example.com", Favicon: "https://news.example.com/favicon.ico"},
		})
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"size":       len(data),
		"page":       page,
		"totalPages": totalPages,
		"data":       data,
	})
}

func (m *MockNewsAPI) topicsHandler(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	topics := make([]map[string]string, 0, len(m.Topics))
	for _, t := range m.Topics {
		topics = append(topics, map[string]string{"id": t[0], "name": t[1]})
	}
	m.mu.RUnlock()

	m.writeQuota(w)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    topics,
	})
}

// NewHealthyResponse creates a standard 200 OK response with quota headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			headerRemaining: "100",
			headerReset:     "3600",
			"ETag":          `"test-etag-123"`,
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			headerRemaining: "100",
			headerReset:     "3600",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "You have exceeded the rate limit per second for your plan"}`,
		Headers: map[string]string{
			headerRemaining: "0",
			headerReset:     "30",
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"success": false}`,
		Headers: map[string]string{
			headerRemaining: "95",
			headerReset:     "3600",
			"Content-Type":  "application/json; charset=utf-8",
		},
	}
}
