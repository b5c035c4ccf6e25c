// Package api exposes the URL scanner and reputation list management over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/theopenlane/urlscout/internal/reputation"
	"github.com/theopenlane/urlscout/internal/scanner"
	"github.com/theopenlane/urlscout/internal/types"
)

const serviceName = "urlscout"

// Handler manages API endpoints
type Handler struct {
	scanner     scanner.Interface
	reputation  *reputation.Manager
	maxBodySize int64
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string    `json:"status" example:"healthy"`
	Service         string    `json:"service" example:"urlscout"`
	Timestamp       string    `json:"timestamp" example:"2026-01-15T10:30:00Z"`
	SnapshotVersion uint64    `json:"snapshot_version,omitempty"`
	Unavailable     []string  `json:"unavailable_lists,omitempty"`
	LastHydrated    time.Time `json:"last_hydrated,omitzero"`
}

// handleHealth reports service health. A degraded reputation store is
// reported but does not fail the check, since scans still complete.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.reputation != nil {
		snap, err := h.reputation.Snapshot(r.Context())
		if err != nil {
			response.Status = "degraded"
		}

		response.SnapshotVersion = snap.Version()

		for _, name := range snap.Unavailable() {
			response.Unavailable = append(response.Unavailable, string(name))
		}

		response.LastHydrated = h.reputation.LastHydrated()
	}

	writeJSON(w, http.StatusOK, response)
}

// ScanRequest represents a URL scan request
type ScanRequest struct {
	URL string `json:"url" example:"http://paypa1-login.xyz/verify" description:"URL to evaluate"`
}

// ScanResponse represents the scan response
type ScanResponse struct {
	Success bool              `json:"success" description:"Whether the scan produced a report"`
	Data    *types.ScanReport `json:"data,omitempty" description:"Scan report when successful"`
	Error   *Error            `json:"error,omitempty" description:"Error details when the scan could not run"`
}

// handleScan evaluates a URL and returns its report. Only a malformed URL is
// a client error; network and store failures are reflected inside the report.
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var req ScanRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLRequired.Error())
		return
	}

	report, err := h.scanner.Scan(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrInvalidTarget):
			respondError(w, http.StatusBadRequest, errCodeInvalidTarget, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusGatewayTimeout, errCodeTimeout, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		}

		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{Success: true, Data: report})
}
