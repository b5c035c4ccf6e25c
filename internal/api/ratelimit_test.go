package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScanLimiterRejectsWithEnvelope(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	handler := scanLimiter(1, time.Minute)(next)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/scan", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		return w
	}

	if w := send("198.51.100.7:4000"); w.Code != http.StatusNoContent {
		t.Fatalf("Expected the first request to pass, got %d", w.Code)
	}

	// a new source port is still the same client
	w := send("198.51.100.7:4001")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", w.Code)
	}

	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Success {
		t.Error("Expected success to be false")
	}

	if resp.Error == nil || resp.Error.Code != errCodeRateLimited {
		t.Errorf("Expected error code %q, got %+v", errCodeRateLimited, resp.Error)
	}

	if w := send("[2001:db8::1]:4000"); w.Code != http.StatusNoContent {
		t.Errorf("Expected another client to pass, got %d", w.Code)
	}
}
