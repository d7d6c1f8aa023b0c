package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
)

// BackendHandlers exposes the session backend to remote kiosks.
type BackendHandlers struct {
	backend backend.SessionBackend
	logger  *zap.Logger
}

// NewBackendHandlers returns handler.
func NewBackendHandlers(b backend.SessionBackend, logger *zap.Logger) *BackendHandlers {
	return &BackendHandlers{backend: b, logger: logger}
}

// ConfirmStart handles POST /backend/sessions.
func (h *BackendHandlers) ConfirmStart(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if strings.TrimSpace(req.SiteID) == "" || strings.TrimSpace(req.GunID) == "" {
		writeError(w, http.StatusBadRequest, "siteId and gunId are required")
		return
	}

	token, err := h.backend.ConfirmStart(r.Context(), req.SiteID, req.GunID)
	switch {
	case errors.Is(err, backend.ErrRejected):
		writeError(w, http.StatusConflict, "connector busy")
		return
	case err != nil:
		h.logger.Error("confirm start failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "session backend unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": string(token)})
}

// ConfirmStop handles POST /backend/sessions/{token}/stop.
func (h *BackendHandlers) ConfirmStop(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.backend.ConfirmStop(r.Context(), backend.Token(r.PathValue("token")))
	switch {
	case errors.Is(err, backend.ErrUnknownToken):
		writeError(w, http.StatusNotFound, "unknown session token")
		return
	case err != nil:
		h.logger.Error("confirm stop failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "session backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
