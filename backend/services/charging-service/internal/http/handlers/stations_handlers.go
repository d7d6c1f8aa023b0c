package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// StationsHandlers serves the station directory.
type StationsHandlers struct {
	directory directory.Directory
	logger    *zap.Logger
}

// NewStationsHandlers returns handler.
func NewStationsHandlers(dir directory.Directory, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{directory: dir, logger: logger}
}

// List handles GET /stations?q=&mode=&minPower=&availability=.
func (h *StationsHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := directory.Filter{
		Query:        q.Get("q"),
		ChargeMode:   models.ChargeMode(strings.ToUpper(q.Get("mode"))),
		Availability: models.ConnectorStatus(strings.ToLower(q.Get("availability"))),
	}
	if filter.ChargeMode != "" && filter.ChargeMode != models.ChargeModeAC && filter.ChargeMode != models.ChargeModeDC {
		writeError(w, http.StatusBadRequest, "mode must be AC or DC")
		return
	}
	if filter.Availability != "" && !filter.Availability.Valid() {
		writeError(w, http.StatusBadRequest, "invalid availability")
		return
	}
	if raw := q.Get("minPower"); raw != "" {
		power, err := strconv.ParseFloat(raw, 64)
		if err != nil || power < 0 {
			writeError(w, http.StatusBadRequest, "invalid minPower")
			return
		}
		filter.MinPowerKW = power
	}

	stations, err := h.directory.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch stations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stations": stations,
	})
}

// SetConnectorStatus handles PUT /stations/{siteId}/connectors/{gunId}/status.
func (h *StationsHandlers) SetConnectorStatus(w http.ResponseWriter, r *http.Request) {
	writer, ok := h.directory.(directory.StatusWriter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "station catalog is read-only")
		return
	}

	var req struct {
		Status models.ConnectorStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Status = models.ConnectorStatus(strings.ToLower(string(req.Status)))
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	siteID, gunID := r.PathValue("siteId"), r.PathValue("gunId")
	if err := writer.SetConnectorStatus(r.Context(), siteID, gunID, req.Status); err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			writeError(w, http.StatusNotFound, "connector not found")
		case errors.Is(err, directory.ErrReadOnly):
			writeError(w, http.StatusNotImplemented, "station catalog is read-only")
		default:
			h.logger.Error("set connector status failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to update connector")
		}
		return
	}

	h.logger.Info("connector status updated",
		zap.String("site_id", siteID),
		zap.String("gun_id", gunID),
		zap.String("status", string(req.Status)),
	)
	connector, err := h.directory.Connector(r.Context(), siteID, gunID)
	if err != nil {
		writeError(w, statusFor(err), "failed to fetch connector")
		return
	}
	writeJSON(w, http.StatusOK, connector)
}

// Get handles GET /stations/{siteId}.
func (h *StationsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	station, err := h.directory.Station(r.Context(), r.PathValue("siteId"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("get station failed", zap.Error(err))
			writeError(w, status, "failed to fetch station")
			return
		}
		writeError(w, status, "station not found")
		return
	}
	writeJSON(w, http.StatusOK, station)
}
