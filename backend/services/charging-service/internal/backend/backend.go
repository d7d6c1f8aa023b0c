package backend

import (
	"context"
	"errors"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

var (
	// ErrUnknownToken is returned when stopping a session the backend never started.
	ErrUnknownToken = errors.New("backend: unknown session token")
	// ErrRejected is returned when the backend refuses a start or stop.
	ErrRejected = errors.New("backend: request rejected")
	// ErrUnauthorized is returned when credentials are missing or could not be refreshed.
	ErrUnauthorized = errors.New("backend: unauthorized")
)

// Token identifies a session confirmed by the backend.
type Token string

// SessionBackend confirms session start and stop with the charging network.
type SessionBackend interface {
	ConfirmStart(ctx context.Context, siteID, gunID string) (Token, error)
	ConfirmStop(ctx context.Context, token Token) (models.Receipt, error)
}
