// Package kiosk runs the scan-to-charge flow on a charging device: scan the
// connector QR code, confirm it, meter the session and reset for the next user.
package kiosk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/handshake"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/notice"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
)

const finishTimeout = 10 * time.Second

// Kiosk drives one scan and charging run.
type Kiosk struct {
	Handshake *handshake.Handshake
	Directory directory.Directory
	Backend   backend.SessionBackend
	Wallet    session.Wallet
	Session   session.Config
	Expect    handshake.Expectation
	// ChargeFor stops charging after the duration; zero charges until the
	// context is cancelled or the balance runs out.
	ChargeFor time.Duration
	// Clock defaults to the system clock.
	Clock  session.Clock
	Logger *zap.Logger
}

// Result summarises a finished run.
type Result struct {
	Snapshot session.Snapshot
	Notice   *notice.Notice
}

// Run scans, charges and resets. Cancelling ctx while charging stops the meter
// synchronously and releases the backend session before Run returns.
func (k *Kiosk) Run(ctx context.Context) (Result, error) {
	logger := k.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := k.Handshake.Run(ctx, k.Expect)
	if err != nil {
		return k.fail(logger, session.Snapshot{}, err), err
	}

	ctrl := session.New(session.Params{
		ID:        uuid.NewString(),
		Station:   res.Station,
		Connector: res.Connector,
		Backend:   k.Backend,
		Wallet:    k.Wallet,
		Directory: k.Directory,
		Clock:     k.Clock,
	}, k.Session, logger)
	defer ctrl.Close()

	failed := make(chan session.Snapshot, 1)
	ctrl.Subscribe(func(s session.Snapshot) {
		logger.Info("session update",
			zap.String("state", string(s.State)),
			zap.Float64("energy_kwh", s.Session.EnergyKWh),
			zap.Float64("cost", s.Session.Cost),
			zap.Float64("balance", s.Balance),
		)
		if s.State == session.StateError {
			select {
			case failed <- s:
			default:
			}
		}
	})

	if snap := ctrl.Snapshot(); snap.State == session.StateError {
		return k.finish(logger, ctrl, snap.Err), snap.Err
	}
	if err := ctrl.Start(ctx); err != nil {
		return k.finish(logger, ctrl, err), err
	}

	var deadline <-chan time.Time
	if k.ChargeFor > 0 {
		timer := time.NewTimer(k.ChargeFor)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
		ctrl.Close()
		return Result{Snapshot: ctrl.Snapshot()}, ctx.Err()
	case snap := <-failed:
		return k.finish(logger, ctrl, snap.Err), snap.Err
	case <-deadline:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := ctrl.Stop(stopCtx); err != nil {
		return k.finish(logger, ctrl, err), err
	}
	return k.finish(logger, ctrl, nil), nil
}

// finish reports the outcome and resets the wallet for the next run.
func (k *Kiosk) finish(logger *zap.Logger, ctrl *session.Controller, cause error) Result {
	snap := ctrl.Snapshot()
	result := k.fail(logger, snap, cause)
	if snap.Receipt != nil {
		logger.Info("charging receipt",
			zap.String("receipt_id", snap.Receipt.ID),
			zap.Float64("energy_kwh", snap.Session.EnergyKWh),
			zap.Float64("cost", snap.Session.Cost),
			zap.String("currency", snap.Currency),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	if err := ctrl.Reset(ctx); err != nil {
		logger.Warn("reset failed", zap.Error(err))
	}
	return result
}

func (k *Kiosk) fail(logger *zap.Logger, snap session.Snapshot, cause error) Result {
	result := Result{Snapshot: snap}
	if cause == nil {
		return result
	}
	n := notice.Describe(cause)
	result.Notice = &n
	logger.Warn("charging notice",
		zap.String("code", n.Code),
		zap.String("message", n.Message),
		zap.String("action", string(n.Action)),
		zap.Error(cause),
	)
	return result
}
