package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"docent/internal/logging"
	"docent/internal/registry"
	"docent/internal/resolution"
	"docent/internal/services"
)

const (
	msgRateLimited = "Rate limit exceeded. Please try again later."
	msgCredits     = "AI credits depleted. Please add funds."
)

type errorBody struct {
	Error string `json:"error"`
}

type analyzeRequest struct {
	ImageURL string `json:"imageUrl"`
}

type artifactsResponse struct {
	Artifacts []registry.Entry `json:"artifacts"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Artifacts int    `json:"artifacts"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	entries := h.resolver.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Artifacts: len(entries)})
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := services.WithOperation(r.Context(), "analyze")
	resp, err := h.resolver.Analyze(ctx, req.ImageURL)
	if err != nil {
		status, message := analyzeFailure(err)
		h.writeError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// analyzeFailure maps pipeline errors to the status and message kiosks expect.
func analyzeFailure(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, services.ErrCreditsExhausted):
		return http.StatusPaymentRequired, msgCredits
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var guess resolution.Guess
	if err := decodeBody(w, r, &guess); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := services.WithOperation(r.Context(), "resolve")
	writeJSON(w, http.StatusOK, h.resolver.ResolveGuess(ctx, guess))
}

func (h *handler) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	entries := h.resolver.Snapshot(r.Context())
	if entries == nil {
		entries = []registry.Entry{}
	}
	writeJSON(w, http.StatusOK, artifactsResponse{Artifacts: entries})
}

// handleGetArtifact looks the id up in the same snapshot the list endpoint
// serves, so sample fallback ids resolve too.
func (h *handler) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, entry := range h.resolver.Snapshot(r.Context()) {
		if entry.ID == id {
			writeJSON(w, http.StatusOK, entry)
			return
		}
	}
	h.writeStoreError(w, registry.ErrNotFound)
}

func (h *handler) handleUpsertArtifact(w http.ResponseWriter, r *http.Request) {
	var entry registry.Entry
	if err := decodeBody(w, r, &entry); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusOK
	if id := chi.URLParam(r, "id"); id != "" {
		entry.ID = id
	} else if strings.TrimSpace(entry.ID) == "" {
		status = http.StatusCreated
	}
	stored, err := h.store.Upsert(r.Context(), entry)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	logging.WithContext(r.Context(), h.logger).Info("registry entry saved",
		logging.String("registry_id", stored.ID),
		logging.String("name", stored.Name),
	)
	writeJSON(w, status, stored)
}

func (h *handler) handleDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	logging.WithContext(r.Context(), h.logger).Info("registry entry deleted", logging.String("registry_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, registry.ErrInvalidEntry):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body required")
		default:
			return errors.New("invalid JSON body")
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", logging.Int("status", status), logging.String("error", message))
	}
	writeJSON(w, status, errorBody{Error: message})
}
