package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/repository"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/wallet"
)

var (
	// ErrSessionNotFound is returned for unknown ids and sessions of other users.
	ErrSessionNotFound = errors.New("service: session not found")
	// ErrSessionInProgress is returned when the user already has a live session.
	ErrSessionInProgress = errors.New("service: session already in progress")
)

const recordTimeout = 5 * time.Second

// Options configures ChargingService.
type Options struct {
	Session        session.Config
	DefaultBalance float64
	// Clock defaults to the system clock.
	Clock session.Clock
}

type entry struct {
	userID   int64
	ctrl     *session.Controller
	recorded bool
}

// ChargingService hosts one session controller per user and records finished
// sessions in the charging history.
type ChargingService struct {
	directory directory.Directory
	backend   backend.SessionBackend
	history   repository.HistoryRepository
	store     kvstore.Store
	opts      Options
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*entry
	byUser   map[int64]string
	wallets  map[int64]*wallet.Wallet
	closed   bool
}

// NewChargingService builds service.
func NewChargingService(
	dir directory.Directory,
	sessionBackend backend.SessionBackend,
	history repository.HistoryRepository,
	store kvstore.Store,
	opts Options,
	logger *zap.Logger,
) *ChargingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChargingService{
		directory: dir,
		backend:   sessionBackend,
		history:   history,
		store:     store,
		opts:      opts,
		logger:    logger,
		sessions:  make(map[string]*entry),
		byUser:    make(map[int64]string),
		wallets:   make(map[int64]*wallet.Wallet),
	}
}

// WalletKey is the store key of a user's wallet.
func WalletKey(userID int64) string {
	return fmt.Sprintf("%s:%d", kvstore.KeyWallet, userID)
}

// Wallet returns the user's wallet, loading it on first use.
func (s *ChargingService) Wallet(ctx context.Context, userID int64) (*wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[userID]; ok {
		return w, nil
	}
	w, err := wallet.Open(ctx, s.store, WalletKey(userID), s.opts.DefaultBalance, s.logger.With(zap.Int64("user_id", userID)))
	if err != nil {
		return nil, err
	}
	s.wallets[userID] = w
	return w, nil
}

// CreateSession resolves the connector and builds a pre-charging controller.
// An unavailable connector yields a controller already in the error state.
func (s *ChargingService) CreateSession(ctx context.Context, userID int64, siteID, gunID string) (session.Snapshot, error) {
	station, err := s.directory.Station(ctx, siteID)
	if err != nil {
		return session.Snapshot{}, err
	}
	connector, ok := station.Connector(gunID)
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s at %s", directory.ErrConnectorNotFound, gunID, siteID)
	}

	w, err := s.Wallet(ctx, userID)
	if err != nil {
		return session.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.Snapshot{}, session.ErrClosed
	}
	if id, ok := s.byUser[userID]; ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrSessionInProgress, id)
	}

	id := uuid.NewString()
	ctrl := session.New(session.Params{
		ID:        id,
		Station:   station,
		Connector: connector,
		Backend:   s.backend,
		Wallet:    w,
		Directory: s.directory,
		Clock:     s.opts.Clock,
	}, s.opts.Session, s.logger.With(zap.Int64("user_id", userID)))

	e := &entry{userID: userID, ctrl: ctrl}
	s.sessions[id] = e
	s.byUser[userID] = id
	ctrl.Subscribe(func(snap session.Snapshot) { s.record(e, snap) })
	go s.reap(id, e)

	s.logger.Info("session created",
		zap.String("session_id", id),
		zap.Int64("user_id", userID),
		zap.String("site_id", siteID),
		zap.String("gun_id", gunID),
	)
	return ctrl.Snapshot(), nil
}

// Controller returns a session owned by userID.
func (s *ChargingService) Controller(userID int64, id string) (*session.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.userID != userID {
		return nil, ErrSessionNotFound
	}
	return e.ctrl, nil
}

// Get returns the current snapshot of a session.
func (s *ChargingService) Get(userID int64, id string) (session.Snapshot, error) {
	ctrl, err := s.Controller(userID, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Start begins charging.
func (s *ChargingService) Start(ctx context.Context, userID int64, id string) (session.Snapshot, error) {
	return s.apply(userID, id, func(c *session.Controller) error { return c.Start(ctx) })
}

// Stop ends charging.
func (s *ChargingService) Stop(ctx context.Context, userID int64, id string) (session.Snapshot, error) {
	return s.apply(userID, id, func(c *session.Controller) error { return c.Stop(ctx) })
}

// Reset restores the wallet and releases the session.
func (s *ChargingService) Reset(ctx context.Context, userID int64, id string) (session.Snapshot, error) {
	return s.apply(userID, id, func(c *session.Controller) error { return c.Reset(ctx) })
}

// Cancel aborts a session from any state.
func (s *ChargingService) Cancel(userID int64, id string) (session.Snapshot, error) {
	return s.apply(userID, id, func(c *session.Controller) error {
		c.Close()
		return nil
	})
}

func (s *ChargingService) apply(userID int64, id string, op func(*session.Controller) error) (session.Snapshot, error) {
	ctrl, err := s.Controller(userID, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	err = op(ctrl)
	return ctrl.Snapshot(), err
}

// History returns finished sessions of a user, newest first.
func (s *ChargingService) History(ctx context.Context, userID int64, limit int) ([]models.SessionRecord, error) {
	return s.history.ListByUser(ctx, userID, limit)
}

// Record returns one history entry.
func (s *ChargingService) Record(ctx context.Context, userID int64, id string) (models.SessionRecord, error) {
	return s.history.Get(ctx, userID, id)
}

// Close cancels every live session.
func (s *ChargingService) Close() {
	s.mu.Lock()
	s.closed = true
	ctrls := make([]*session.Controller, 0, len(s.sessions))
	for _, e := range s.sessions {
		ctrls = append(ctrls, e.ctrl)
	}
	s.mu.Unlock()

	for _, c := range ctrls {
		c.Close()
	}
}

// reap forgets a session once its controller is done.
func (s *ChargingService) reap(id string, e *entry) {
	<-e.ctrl.Done()
	s.mu.Lock()
	delete(s.sessions, id)
	if s.byUser[e.userID] == id {
		delete(s.byUser, e.userID)
	}
	s.mu.Unlock()
}

// record appends a history entry the first time a started session ends.
func (s *ChargingService) record(e *entry, snap session.Snapshot) {
	if snap.Session.StartedAt.IsZero() {
		return
	}
	outcome, ok := outcomeOf(snap)
	if !ok {
		return
	}

	s.mu.Lock()
	if e.recorded {
		s.mu.Unlock()
		return
	}
	e.recorded = true
	s.mu.Unlock()

	rec := models.SessionRecord{
		ID:           snap.ID,
		UserID:       e.userID,
		StationID:    snap.StationID,
		StationName:  snap.StationName,
		ConnectorID:  snap.Connector.ID,
		EnergyKWh:    snap.Session.EnergyKWh,
		Cost:         snap.Session.Cost,
		PricePerKWh:  snap.PricePerKWh,
		Currency:     snap.Currency,
		BalanceAfter: snap.Balance,
		Outcome:      outcome,
		StartedAt:    snap.Session.StartedAt,
		EndedAt:      snap.EndedAt,
	}
	if snap.Receipt != nil {
		rec.ReceiptID = snap.Receipt.ID
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.history.Append(ctx, rec); err != nil {
		s.logger.Warn("failed to record session", zap.String("session_id", rec.ID), zap.Error(err))
		return
	}
	s.logger.Info("session recorded", zap.String("session_id", rec.ID), zap.String("outcome", outcome))
}

func outcomeOf(snap session.Snapshot) (string, bool) {
	switch {
	case snap.State == session.StatePostCharging && snap.Session.Status == models.SessionCompleted:
		return models.OutcomeCompleted, true
	case snap.State == session.StatePostCharging && snap.Session.Status == models.SessionHalted:
		return models.OutcomeCancelled, true
	case snap.State == session.StateError && snap.Failure == session.KindInsufficientBalance:
		return models.OutcomeInsufficientBalance, true
	case snap.State == session.StateError && snap.Failure == session.KindStopFailed:
		return models.OutcomeStopFailed, true
	}
	return "", false
}
