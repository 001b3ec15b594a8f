// Package api exposes the activity ledger over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/domain"
)

const activitiesPrefix = "/v1/ledger/activities/"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *slog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/ledger", h.ledger)
	mux.HandleFunc("/v1/ledger/draft", h.draft)
	mux.HandleFunc("/v1/ledger/submit", h.submit)
	mux.HandleFunc(activitiesPrefix, h.activityByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	key, ok := authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLedgerView(h.service.View(r.Context(), key)))
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	key, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	state := h.service.UpdateDraft(r.Context(), key, req.patch())
	writeJSON(w, http.StatusOK, toLedgerView(state))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	key, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	// The body is optional: an empty POST submits the draft as it stands.
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	change, state, err := h.service.Submit(r.Context(), key, req.patch())
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Type:   "validation_failed",
				Code:   string(verr.Kind),
				Field:  verr.Field,
				Title:  domain.ErrorTitle,
				Detail: verr.Error(),
				Ledger: toLedgerView(state),
			})
			return
		}
		h.logger.Error("submit failed", slog.String("session", key.String()), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	status := http.StatusCreated
	if change.Kind == domain.ChangeUpdated {
		status = http.StatusOK
	}
	writeJSON(w, status, SubmitResponse{
		Activity: toActivityView(change.Activity),
		Ledger:   toLedgerView(state),
	})
}

// activityByID serves DELETE /v1/ledger/activities/{id} and POST /v1/ledger/activities/{id}/edit.
func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, activitiesPrefix)
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		h.deleteActivity(w, r, id)
	case action == "edit" && r.Method == http.MethodPost:
		h.beginEdit(w, r, id)
	case action == "" || action == "edit":
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown activity action")
	}
}

func (h *Handler) beginEdit(w http.ResponseWriter, r *http.Request, id string) {
	key, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}
	state, _ := h.service.BeginEdit(r.Context(), key, id)
	writeJSON(w, http.StatusOK, toLedgerView(state))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	key, ok := authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}
	state, _ := h.service.Delete(r.Context(), key, id)
	writeJSON(w, http.StatusOK, toLedgerView(state))
}

// authorize resolves the caller's session, requiring at least one of scopes.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) (domain.SessionKey, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return domain.SessionKey{}, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return domain.SessionKey{TenantID: claims.TenantID, Subject: claims.Subject}, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return domain.SessionKey{}, false
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
