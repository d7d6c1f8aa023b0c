package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/http/middleware"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/notice"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/service"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionInProgress),
		errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	}
	if _, ok := session.KindOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeSessionError reports a failed session operation together with the
// session state it left behind.
func writeSessionError(w http.ResponseWriter, err error, snap *session.Snapshot) {
	status := statusFor(err)
	body := map[string]interface{}{"error": err.Error()}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	if _, ok := session.KindOf(err); ok {
		body["notice"] = notice.Describe(err)
	}
	if snap != nil && snap.ID != "" {
		body["session"] = snap
	}
	writeJSON(w, status, body)
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return userID, true
}
