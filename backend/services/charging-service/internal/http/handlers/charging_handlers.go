package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/receipt"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/service"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/ws"
)

// ChargingHandlers exposes charging sessions, the wallet and history.
type ChargingHandlers struct {
	svc    *service.ChargingService
	stream *ws.Server
	logger *zap.Logger
}

// NewChargingHandlers returns handler.
func NewChargingHandlers(svc *service.ChargingService, stream *ws.Server, logger *zap.Logger) *ChargingHandlers {
	return &ChargingHandlers{svc: svc, stream: stream, logger: logger}
}

type createSessionRequest struct {
	SiteID string `json:"siteId"`
	GunID  string `json:"gunId"`
}

// Create handles POST /charging/sessions.
func (h *ChargingHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	req.SiteID = strings.TrimSpace(req.SiteID)
	req.GunID = strings.TrimSpace(req.GunID)
	if req.SiteID == "" || req.GunID == "" {
		writeError(w, http.StatusBadRequest, "siteId and gunId are required")
		return
	}

	snap, err := h.svc.CreateSession(r.Context(), userID, req.SiteID, req.GunID)
	if err != nil {
		h.logFailure("create session failed", err)
		writeSessionError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// Get handles GET /charging/sessions/{id}.
func (h *ChargingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Get(userID, r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Start handles POST /charging/sessions/{id}/start.
func (h *ChargingHandlers) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Start)
}

// Stop handles POST /charging/sessions/{id}/stop.
func (h *ChargingHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Stop)
}

// Reset handles POST /charging/sessions/{id}/reset.
func (h *ChargingHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reset)
}

// Cancel handles DELETE /charging/sessions/{id}.
func (h *ChargingHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(_ context.Context, userID int64, id string) (session.Snapshot, error) {
		return h.svc.Cancel(userID, id)
	})
}

func (h *ChargingHandlers) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, string) (session.Snapshot, error)) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	snap, err := op(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.logFailure("session transition failed", err)
		writeSessionError(w, err, &snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Stream handles GET /charging/sessions/{id}/stream.
func (h *ChargingHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctrl, err := h.svc.Controller(userID, r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err, nil)
		return
	}
	h.stream.Stream(w, r, ctrl)
}

// Wallet handles GET /wallet.
func (h *ChargingHandlers) Wallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	wallet, err := h.svc.Wallet(r.Context(), userID)
	if err != nil {
		h.logger.Error("load wallet failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load wallet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":        wallet.Balance(),
		"defaultBalance": wallet.Default(),
	})
}

// History handles GET /charging/history?limit=.
func (h *ChargingHandlers) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("fetch history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// Receipt handles GET /charging/history/{id}/receipt.
func (h *ChargingHandlers) Receipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Record(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err, nil)
		return
	}
	pdf, err := receipt.RenderPDF(rec)
	if err != nil {
		h.logger.Error("render receipt failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"receipt-"+rec.ID+".pdf\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *ChargingHandlers) logFailure(msg string, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		return
	}
	h.logger.Info(msg, zap.Error(err))
}
