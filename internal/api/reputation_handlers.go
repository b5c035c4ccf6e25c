package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/theopenlane/urlscout/internal/reputation"
)

// actorHeader identifies the operator behind a list change in the audit log
const actorHeader = "X-Actor"

// ListResponse returns the entries of one reputation list.
type ListResponse struct {
	Success bool               `json:"success"`
	List    string             `json:"list"`
	Data    []reputation.Entry `json:"data"`
}

// EntryResponse returns a single written entry.
type EntryResponse struct {
	Success bool              `json:"success"`
	Data    *reputation.Entry `json:"data"`
}

// HistoryResponse returns audit entries, newest first.
type HistoryResponse struct {
	Success bool                      `json:"success"`
	Data    []reputation.HistoryEntry `json:"data"`
}

// ExportResponse returns every list.
type ExportResponse struct {
	Success bool                `json:"success"`
	Data    *reputation.Dataset `json:"data"`
}

// ImportResponse reports how many entries an import wrote.
type ImportResponse struct {
	Success bool `json:"success"`
	Written int  `json:"written"`
}

// HydrateResponse carries the summary of a feed hydration run.
type HydrateResponse struct {
	Success bool                         `json:"success"`
	Data    *reputation.HydrationSummary `json:"data,omitempty"`
	Error   *Error                       `json:"error,omitempty"`
}

// requireReputation answers 503 when list management is not configured
func (h *Handler) requireReputation(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.reputation == nil {
			respondError(w, http.StatusServiceUnavailable, errCodeUnavailable, ErrReputationNotConfigured.Error())
			return
		}

		next(w, r)
	}
}

func listParam(w http.ResponseWriter, r *http.Request) (reputation.ListName, bool) {
	name, err := reputation.ParseListName(chi.URLParam(r, "list"))
	if err != nil {
		respondError(w, http.StatusNotFound, errCodeNotFound, err.Error())
		return "", false
	}

	return name, true
}

func actor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(actorHeader))
}

// respondStoreError maps reputation errors onto HTTP statuses
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reputation.ErrEmptyValue), errors.Is(err, reputation.ErrUnknownList):
		respondError(w, http.StatusBadRequest, errCodeValidation, err.Error())
	case errors.Is(err, reputation.ErrEntryNotFound):
		respondError(w, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, errCodeTimeout, err.Error())
	default:
		respondError(w, http.StatusServiceUnavailable, errCodeUnavailable, err.Error())
	}
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	name, ok := listParam(w, r)
	if !ok {
		return
	}

	entries, err := h.reputation.Entries(r.Context(), name)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Success: true, List: string(name), Data: entries})
}

// handleAddEntry creates or replaces an entry
func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	name, ok := listParam(w, r)
	if !ok {
		return
	}

	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var entry reputation.Entry
	if err := decodeJSONBody(r, &entry); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	written, err := h.reputation.AddEntry(r.Context(), name, entry, actor(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Data: &written})
}

func (h *Handler) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	name, ok := listParam(w, r)
	if !ok {
		return
	}

	if err := h.reputation.RemoveEntry(r.Context(), name, chi.URLParam(r, "value"), actor(r)); err != nil {
		respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, errCodeValidation, ErrInvalidLimit.Error())
			return
		}

		limit = n
	}

	history, err := h.reputation.History(r.Context(), limit)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Success: true, Data: history})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ds, err := h.reputation.Export(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExportResponse{Success: true, Data: &ds})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var ds reputation.Dataset
	if err := decodeJSONBody(r, &ds); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return
	}

	written, err := h.reputation.Import(r.Context(), ds, actor(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{Success: true, Written: written})
}

// handleHydrate triggers a fresh download of all configured blacklist feeds.
func (h *Handler) handleHydrate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reputation.Hydrate(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		code := errCodeInternal

		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			code = errCodeTimeout
		case errors.Is(err, reputation.ErrNoFeedsDefined):
			status = http.StatusConflict
			code = errCodeUnavailable
		case errors.Is(err, reputation.ErrNoUsableHydrationData):
			status = http.StatusServiceUnavailable
			code = errCodeUnavailable
		}

		writeJSON(w, status, HydrateResponse{Success: false, Data: &summary, Error: &Error{Code: code, Message: err.Error()}})

		return
	}

	writeJSON(w, http.StatusOK, HydrateResponse{Success: true, Data: &summary})
}
