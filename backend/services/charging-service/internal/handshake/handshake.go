// Package handshake turns a scanned QR code into a resolved station and
// connector, checking it against the connector the user navigated from.
package handshake

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/scanner"
)

// ErrCorrelationMismatch means the scanned code names a different connector
// than the one the user selected.
var ErrCorrelationMismatch = errors.New("handshake: scanned code does not match the selected connector")

// Expectation carries the identifiers the user navigated with. Empty fields are
// not checked.
type Expectation struct {
	SiteID string
	GunID  string
}

// Resolution is a successful handshake.
type Resolution struct {
	Station   models.Station
	Connector models.Connector
	Payload   string
}

// Scanner is the part of scanner.Scanner the handshake drives.
type Scanner interface {
	Start(ctx context.Context) (<-chan scanner.Outcome, error)
	Cancel()
}

// Observer is told about every discarded scan before the scanner is re-armed.
type Observer func(attempt int, err error)

// Handshake wires a scanner to a station directory.
type Handshake struct {
	scanner   Scanner
	directory directory.Directory
	logger    *zap.Logger
	observer  Observer
}

// New builds a handshake. observer may be nil.
func New(s Scanner, dir directory.Directory, observer Observer, logger *zap.Logger) *Handshake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handshake{scanner: s, directory: dir, observer: observer, logger: logger}
}

// Run scans until a code matching expect resolves in the directory. Mismatched
// and unparseable codes re-activate the scanner. Scanner failures, cancellation
// and directory misses end the run.
func (h *Handshake) Run(ctx context.Context, expect Expectation) (Resolution, error) {
	defer h.scanner.Cancel()

	for attempt := 1; ; attempt++ {
		outcomes, err := h.scanner.Start(ctx)
		if err != nil {
			return Resolution{}, err
		}

		var out scanner.Outcome
		select {
		case out = <-outcomes:
		case <-ctx.Done():
			h.scanner.Cancel()
			return Resolution{}, ctx.Err()
		}
		if out.Err != nil {
			return Resolution{}, out.Err
		}

		target, err := scanner.ParsePayload(out.Payload)
		if err == nil {
			err = Correlate(expect, target)
		}
		if err != nil {
			h.logger.Info("scan discarded", zap.Int("attempt", attempt), zap.Error(err))
			if h.observer != nil {
				h.observer(attempt, err)
			}
			continue
		}

		station, err := h.directory.Station(ctx, target.SiteID)
		if err != nil {
			return Resolution{}, err
		}
		connector, ok := station.Connector(target.GunID)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %s at %s", directory.ErrConnectorNotFound, target.GunID, target.SiteID)
		}

		h.logger.Info("scan resolved",
			zap.String("site_id", station.ID),
			zap.String("gun_id", connector.ID),
			zap.String("status", string(connector.Status)),
		)
		return Resolution{Station: station, Connector: connector, Payload: out.Payload}, nil
	}
}

// Correlate compares each supplied expectation independently with the scanned target.
func Correlate(expect Expectation, target scanner.Target) error {
	if expect.SiteID != "" && expect.SiteID != target.SiteID {
		return fmt.Errorf("%w: site %s, scanned %s", ErrCorrelationMismatch, expect.SiteID, target.SiteID)
	}
	if expect.GunID != "" && expect.GunID != target.GunID {
		return fmt.Errorf("%w: connector %s, scanned %s", ErrCorrelationMismatch, expect.GunID, target.GunID)
	}
	return nil
}
