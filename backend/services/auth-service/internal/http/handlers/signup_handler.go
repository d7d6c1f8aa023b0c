package handlers

import (
	"errors"
	"net/http"

	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/password"
	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/service"
)

// NewSignupHandler handles POST /auth/signup.
func NewSignupHandler(authService *service.AuthService) http.HandlerFunc {
	type request struct {
		PhoneNumber string `json:"phoneNumber"`
		FullName    string `json:"fullName"`
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

		user, err := authService.Signup(r.Context(), req.PhoneNumber, req.FullName, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrPhoneInUse):
				writeError(w, http.StatusConflict, "phone number already registered")
			case errors.Is(err, service.ErrInvalidPhone):
				writeError(w, http.StatusBadRequest, "invalid phone number")
			case errors.Is(err, service.ErrWeakPassword):
				writeError(w, http.StatusBadRequest, password.ErrTooShort.Error())
			default:
				writeError(w, http.StatusInternalServerError, "failed to create user")
			}
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}
