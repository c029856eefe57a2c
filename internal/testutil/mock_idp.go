// Package testutil provides testing utilities for the identity-provider client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// RecordedRequest captures what the mock server received.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Accept        string
}

// MockIdP is a configurable mock identity-provider API for testing.
type MockIdP struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockIdP starts a new mock server.
func NewMockIdP() *MockIdP {
	mock := &MockIdP{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Authorization: r.Header.Get("Authorization"),
			Accept:        r.Header.Get("Accept"),
		})
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.notFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockIdP) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockIdP) Close() {
	m.server.Close()
}

// Requests returns a copy of all recorded requests in arrival order.
func (m *MockIdP) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockIdP) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// SetHandler sets a handler for a path, for all methods.
func (m *MockIdP) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetMethodHandler sets a handler for one method and path.
func (m *MockIdP) SetMethodHandler(method, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method+" "+path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockIdP) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, resp.write)
}

// SetSequence serves the given responses in order, repeating the last one.
func (m *MockIdP) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	calls := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := calls
		if i >= len(responses) {
			i = len(responses) - 1
		}
		calls++
		mu.Unlock()
		responses[i].write(w, r)
	})
}

// SetPages serves a link-paginated list at path. Page i (0-based) is
// selected by the "after" query parameter; every page but the last carries
// a rel="next" link. Each page is marshalled as a JSON array.
func (m *MockIdP) SetPages(path string, pages ...[]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		index := 0
		if after := r.URL.Query().Get("after"); after != "" {
			n, err := strconv.Atoi(after)
			if err != nil || n < 0 || n >= len(pages) {
				writeError(w, http.StatusBadRequest, "E0000001", "Api validation failed: after")
				return
			}
			index = n
		}

		self := m.server.URL + path
		link := fmt.Sprintf(`<%s>; rel="self"`, self)
		if index+1 < len(pages) {
			link += fmt.Sprintf(`, <%s?after=%d>; rel="next"`, self, index+1)
		}
		w.Header().Set("Link", link)
		SetHealthyHeaders(w)

		page := pages[index]
		if page == nil {
			page = []any{}
		}
		body, _ := json.Marshal(page)
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

func (r MockResponse) write(w http.ResponseWriter, _ *http.Request) {
	SetHealthyHeaders(w)
	for key, value := range r.Headers {
		w.Header().Set(key, value)
	}
	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.Body != "" {
		w.Write([]byte(r.Body))
	}
}

func (m *MockIdP) notFound(w http.ResponseWriter, r *http.Request) {
	SetHealthyHeaders(w)
	writeError(w, http.StatusNotFound, "E0000007", "Not found: Resource not found: "+r.URL.Path)
}

// SetHealthyHeaders writes JSON content type and a rate budget far from
// exhaustion.
func SetHealthyHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Rate-Limit-Limit", "600")
	w.Header().Set("X-Rate-Limit-Remaining", "599")
	w.Header().Set("X-Rate-Limit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
}

func writeError(w http.ResponseWriter, status int, code, summary string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, _ := json.Marshal(map[string]string{
		"errorCode":    code,
		"errorSummary": summary,
	})
	w.Write(body)
}

// NewJSONResponse creates a 200 response with a healthy rate budget.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewRateLimitResponse creates a 429 with an exhausted budget resetting at reset.
func NewRateLimitResponse(reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errorCode":"E0000047","errorSummary":"API call exceeded rate limit due to too many requests."}`,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     strconv.FormatInt(reset.Unix(), 10),
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errorCode":"E0000009","errorSummary":"Internal Server Error"}`,
	}
}

// NewExhaustedResponse creates a 200 whose budget is at the backoff threshold
// and whose reset header is absent.
func NewExhaustedResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"X-Rate-Limit-Remaining": "1",
			"X-Rate-Limit-Reset":     "",
		},
	}
}
