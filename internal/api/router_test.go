package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewRouter(t *testing.T) {
	router := NewRouter(NewMockScanner(nil, 0), nil, RouterConfig{})

	if router == nil {
		t.Fatal("Expected router to be created")
	}
}

func TestRootRedirect(t *testing.T) {
	handler := testRouter(t, NewMockScanner(nil, 0), false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Errorf("Expected status 302 for root redirect, got %d", w.Code)
	}

	if location := w.Header().Get("Location"); location != "/api/health" {
		t.Errorf("Expected redirect to /api/health, got %s", location)
	}
}

func TestPingEndpoint(t *testing.T) {
	handler := testRouter(t, NewMockScanner(nil, 0), false)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for ping endpoint, got %d", w.Code)
	}

	if w.Body.String() != "." {
		t.Errorf("Expected ping response '.', got %s", w.Body.String())
	}
}

func TestCORSHeaders(t *testing.T) {
	handler := testRouter(t, NewMockScanner(nil, 0), false)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for OPTIONS request, got %d", w.Code)
	}

	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Expected CORS origin '*', got %s", origin)
	}

	if headers := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(headers, actorHeader) {
		t.Errorf("Expected CORS headers to include %s, got %s", actorHeader, headers)
	}
}

func TestReputationRoutesWithoutManager(t *testing.T) {
	handler := testRouter(t, NewMockScanner(nil, 0), false)

	for _, path := range []string{"/api/reputation/history", "/api/reputation/export", "/api/reputation/lists/keywords"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", path, w.Code)
		}
	}
}

func TestScanRateLimit(t *testing.T) {
	handler := NewRouter(NewMockScanner(nil, 0), nil, RouterConfig{ScanLimit: 2, ScanWindow: time.Hour})

	codes := make([]int, 0, 3)

	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"url":"example.com"}`))
		req.RemoteAddr = "198.51.100.4:5000"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected two scans then a 429, got %v", codes)
	}

	// other clients keep their own budget
	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"url":"example.com"}`))
	req.RemoteAddr = "203.0.113.9:5000"
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected a different client to be allowed, got %d", w.Code)
	}

	// health is never limited
	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "198.51.100.4:5000"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected health to bypass the limiter, got %d", w.Code)
		}
	}
}
