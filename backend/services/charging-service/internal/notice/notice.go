// Package notice maps charging and scanning failures to the message shown to
// the user and the single recovery action offered with it.
package notice

import (
	"context"
	"errors"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/handshake"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/scanner"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
)

// Action is the recovery offered to the user.
type Action string

const (
	// ActionRetry re-activates the failed step in place.
	ActionRetry Action = "retry"
	// ActionReturn leaves the flow for the station list.
	ActionReturn Action = "return"
)

// Notice is a user-facing failure description.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  Action `json:"action"`
}

// Describe classifies err. Unknown errors get a generic retryable notice.
func Describe(err error) Notice {
	if kind, ok := scanner.KindOf(err); ok {
		switch kind {
		case scanner.KindPermissionDenied:
			return Notice{Code: string(kind), Message: "Camera access denied", Action: ActionReturn}
		case scanner.KindNoDevice:
			return Notice{Code: string(kind), Message: "No camera found", Action: ActionReturn}
		default:
			if errors.Is(err, scanner.ErrStreamNotReady) {
				return Notice{Code: string(kind), Message: "Camera stream not ready", Action: ActionRetry}
			}
			return Notice{Code: string(kind), Message: "Failed to access camera", Action: ActionRetry}
		}
	}

	if kind, ok := session.KindOf(err); ok {
		switch kind {
		case session.KindConnectorUnavailable:
			return Notice{Code: string(kind), Message: "This connector is not available right now.", Action: ActionReturn}
		case session.KindStartFailed:
			return Notice{Code: string(kind), Message: "Charging could not be started. Please try again.", Action: ActionRetry}
		case session.KindStopFailed:
			return Notice{Code: string(kind), Message: "Charging could not be stopped cleanly. Please contact the station.", Action: ActionReturn}
		case session.KindInsufficientBalance:
			return Notice{Code: string(kind), Message: "Insufficient balance. Charging has been stopped.", Action: ActionReturn}
		}
	}

	switch {
	case errors.Is(err, handshake.ErrCorrelationMismatch):
		return Notice{Code: "CorrelationMismatch", Message: "Invalid station or connector. Please scan the correct QR.", Action: ActionRetry}
	case errors.Is(err, scanner.ErrInvalidPayload):
		return Notice{Code: "InvalidCode", Message: "Scanning error", Action: ActionRetry}
	case errors.Is(err, directory.ErrConnectorNotFound):
		return Notice{Code: "ConnectorNotFound", Message: "Connector not found.", Action: ActionReturn}
	case errors.Is(err, directory.ErrStationNotFound):
		return Notice{Code: "StationNotFound", Message: "Station not found.", Action: ActionReturn}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Notice{Code: "Cancelled", Message: "Scan cancelled", Action: ActionReturn}
	}
	return Notice{Code: "Unknown", Message: "Scanning error", Action: ActionRetry}
}
