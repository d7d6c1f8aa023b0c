package handlers

import (
	"errors"
	"net/http"

	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/service"
)

// NewSigninHandler handles POST /auth/signin.
func NewSigninHandler(authService *service.AuthService) http.HandlerFunc {
	type request struct {
		PhoneNumber string `json:"phoneNumber"`
		Password    string `json:"password"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.PhoneNumber == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "phoneNumber and password are required")
			return
		}

		sess, err := authService.Signin(r.Context(), req.PhoneNumber, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to sign in")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// NewRefreshHandler handles POST /auth/refresh.
func NewRefreshHandler(authService *service.AuthService) http.HandlerFunc {
	type request struct {
		RefreshToken string `json:"refreshToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decode(w, r, &req); err != nil || req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refreshToken is required")
			return
		}

		sess, err := authService.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "invalid refresh token")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to refresh token")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}
