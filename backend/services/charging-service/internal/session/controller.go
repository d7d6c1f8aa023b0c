package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/metrics"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// State is the lifecycle position of a Controller.
type State string

const (
	StatePreCharging  State = "pre-charging"
	StateCharging     State = "charging"
	StatePostCharging State = "post-charging"
	StateError        State = "error"
)

const (
	persistTimeout = 2 * time.Second
	releaseTimeout = 5 * time.Second
)

// Config holds the meter parameters.
type Config struct {
	AccrualRateKWhPerSecond float64
	TickInterval            time.Duration
	FallbackPricePerKWh     float64
}

// Wallet is the balance a session debits.
type Wallet interface {
	Balance() float64
	Commit(ctx context.Context, balance float64) error
	Reset(ctx context.Context) error
}

// ConnectorSource re-reads connector status before a session starts.
type ConnectorSource interface {
	Connector(ctx context.Context, siteID, gunID string) (models.Connector, error)
}

// Params are the collaborators of one controller.
type Params struct {
	ID        string
	Station   models.Station
	Connector models.Connector
	Backend   backend.SessionBackend
	Wallet    Wallet
	// Directory is optional; when set Start re-checks connector availability.
	Directory ConnectorSource
	// Clock defaults to the system clock.
	Clock Clock
}

// Snapshot is a consistent copy of controller state.
type Snapshot struct {
	ID          string                 `json:"id"`
	State       State                  `json:"state"`
	StationID   string                 `json:"stationId"`
	StationName string                 `json:"stationName"`
	Connector   models.Connector       `json:"connector"`
	PricePerKWh float64                `json:"pricePerKwh"`
	Currency    string                 `json:"currency"`
	Session     models.ChargingSession `json:"session"`
	Balance     float64                `json:"balance"`
	Failure     Kind                   `json:"failure,omitempty"`
	Err         error                  `json:"-"`
	Receipt     *models.Receipt        `json:"receipt,omitempty"`
	EndedAt     time.Time              `json:"endedAt,omitempty"`
	Closed      bool                   `json:"closed"`
}

// Observer receives snapshots after state changes and accepted ticks.
// Observers run on controller goroutines and must not call back into the controller.
type Observer func(Snapshot)

type ticking struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (t *ticking) halt() {
	t.once.Do(func() { close(t.stop) })
	<-t.done
}

// Controller runs one charging session for a resolved station and connector.
type Controller struct {
	id        string
	station   models.Station
	backend   backend.SessionBackend
	wallet    Wallet
	directory ConnectorSource
	clock     Clock
	cfg       Config
	price     float64
	logger    *zap.Logger

	// opMu serializes Start, Stop and Reset.
	opMu sync.Mutex

	mu           sync.Mutex
	state        State
	connector    models.Connector
	session      models.ChargingSession
	startBalance float64
	token        backend.Token
	receipt      *models.Receipt
	failure      *Error
	endedAt      time.Time
	ticker       *ticking
	opCancel     context.CancelFunc
	observers    map[int]Observer
	nextObserver int
	closed       bool

	done     chan struct{}
	doneOnce sync.Once
}

// New builds a controller. A connector that is not available puts the
// controller straight into the error state.
func New(p Params, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Clock == nil {
		p.Clock = SystemClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	price := p.Station.Pricing.EnergyPerKWh
	if price <= 0 {
		price = cfg.FallbackPricePerKWh
	}

	c := &Controller{
		id:        p.ID,
		station:   p.Station,
		connector: p.Connector,
		backend:   p.Backend,
		wallet:    p.Wallet,
		directory: p.Directory,
		clock:     p.Clock,
		cfg:       cfg,
		price:     price,
		logger:    logger.With(zap.String("session_id", p.ID), zap.String("site_id", p.Station.ID), zap.String("gun_id", p.Connector.ID)),
		state:     StatePreCharging,
		observers: make(map[int]Observer),
		done:      make(chan struct{}),
	}

	if !p.Connector.Available() {
		c.failLocked(failure(KindConnectorUnavailable, fmt.Errorf("connector status %s", p.Connector.Status)))
	} else {
		metrics.IncSessionState(string(StatePreCharging))
	}
	return c
}

// ID returns the controller id.
func (c *Controller) ID() string { return c.id }

// Done is closed after Reset or Close.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Subscribe registers an observer for subsequent snapshots. The returned
// function removes it.
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = o
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Start confirms the session with the backend and begins metering.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StatePreCharging {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, state)
	}
	opCtx, cancel := context.WithCancel(ctx)
	c.opCancel = cancel
	connector := c.connector
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.opCancel = nil
		c.mu.Unlock()
	}()

	if c.directory != nil {
		fresh, err := c.directory.Connector(opCtx, c.station.ID, connector.ID)
		switch {
		case err == nil:
			connector = fresh
		case errors.Is(err, directory.ErrNotFound):
			return c.fail(failure(KindConnectorUnavailable, err))
		default:
			if c.isClosed() {
				return ErrClosed
			}
			return c.fail(failure(KindStartFailed, err))
		}
	}
	if !connector.Available() {
		c.mu.Lock()
		c.connector = connector
		c.mu.Unlock()
		return c.fail(failure(KindConnectorUnavailable, fmt.Errorf("connector status %s", connector.Status)))
	}

	started := time.Now()
	token, err := c.backend.ConfirmStart(opCtx, c.station.ID, connector.ID)
	metrics.ObserveBackendCall("start", err, time.Since(started))
	if err != nil {
		if c.isClosed() {
			return ErrClosed
		}
		c.logger.Warn("session start not confirmed", zap.Error(err))
		return c.fail(failure(KindStartFailed, err))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.release(token)
		return ErrClosed
	}
	c.connector = connector
	c.token = token
	c.session = models.ChargingSession{
		StartedAt: c.clock.Now(),
		Status:    models.SessionActive,
	}
	c.startBalance = c.wallet.Balance()
	c.setStateLocked(StateCharging)
	c.startTickerLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("charging started", zap.Float64("balance", snap.Balance), zap.Float64("price_per_kwh", c.price))
	c.notify(snap)
	return nil
}

// Stop halts metering, freezes the session and confirms the stop with the backend.
// Ticks stay halted even when the backend refuses.
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateCharging {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, state)
	}
	ticker := c.ticker
	c.mu.Unlock()

	ticker.halt()

	c.mu.Lock()
	if c.state != StateCharging {
		// a tick rejected the session while the ticker was halting
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, state)
	}
	c.session.Status = models.SessionCompleted
	c.endedAt = c.clock.Now()
	token := c.token
	c.mu.Unlock()

	started := time.Now()
	receipt, err := c.backend.ConfirmStop(ctx, token)
	metrics.ObserveBackendCall("stop", err, time.Since(started))
	if err != nil {
		c.logger.Warn("session stop not confirmed", zap.Error(err))
		c.mu.Lock()
		c.session.Status = models.SessionHalted
		c.mu.Unlock()
		return c.fail(failure(KindStopFailed, err))
	}

	c.mu.Lock()
	c.receipt = &receipt
	if c.state != StateCharging {
		// Close finished the session while the stop was in flight
		c.mu.Unlock()
		return ErrClosed
	}
	c.setStateLocked(StatePostCharging)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.ObserveSessionEnergy(snap.Session.EnergyKWh)
	c.logger.Info("charging stopped",
		zap.Float64("energy_kwh", snap.Session.EnergyKWh),
		zap.Float64("cost", snap.Session.Cost),
		zap.String("receipt_id", receipt.ID),
	)
	c.notify(snap)
	return nil
}

// Reset restores the wallet to its default balance and signals Done. It is
// valid from post-charging and error and always succeeds.
func (c *Controller) Reset(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StatePostCharging && c.state != StateError {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: reset from %s", ErrInvalidTransition, state)
	}
	c.mu.Unlock()

	if err := c.wallet.Reset(ctx); err != nil {
		c.logger.Warn("wallet reset not persisted", zap.Error(err))
	}

	c.mu.Lock()
	c.closed = true
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("session reset", zap.Float64("balance", snap.Balance))
	c.notify(snap)
	c.doneOnce.Do(func() { close(c.done) })
	return nil
}

// Close cancels the controller from any state. Pending ticks are halted before
// Close returns. An active backend session is released on a best-effort basis.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	if c.opCancel != nil {
		c.opCancel()
	}
	ticker := c.ticker
	wasCharging := c.state == StateCharging
	token := c.token
	c.mu.Unlock()

	if ticker != nil {
		ticker.halt()
	}

	c.mu.Lock()
	stillCharging := wasCharging && c.state == StateCharging
	if stillCharging {
		c.session.Status = models.SessionHalted
		c.endedAt = c.clock.Now()
		c.setStateLocked(StatePostCharging)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if stillCharging {
		if receipt, ok := c.release(token); ok {
			c.mu.Lock()
			c.receipt = &receipt
			snap = c.snapshotLocked()
			c.mu.Unlock()
		}
		c.logger.Info("charging cancelled", zap.Float64("energy_kwh", snap.Session.EnergyKWh))
	}
	c.notify(snap)
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) startTickerLocked() {
	t := &ticking{stop: make(chan struct{}), done: make(chan struct{})}
	c.ticker = t
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	go c.tickLoop(ticker, t)
}

func (c *Controller) tickLoop(ticker Ticker, t *ticking) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C():
			select {
			case <-t.stop:
				return
			default:
			}
			if !c.tick(now) {
				return
			}
		}
	}
}

// tick applies one meter reading. It returns false once metering must end.
func (c *Controller) tick(now time.Time) bool {
	c.mu.Lock()
	if c.state != StateCharging {
		c.mu.Unlock()
		return false
	}

	elapsed := now.Sub(c.session.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	energy := models.Round2(elapsed.Seconds() * c.cfg.AccrualRateKWhPerSecond)
	cost := models.Round2(energy * c.price)
	candidate := models.Round2(c.startBalance - cost)

	if candidate < 0 {
		c.session.Status = models.SessionHalted
		c.endedAt = now
		c.failLocked(failure(KindInsufficientBalance, fmt.Errorf("cost %.2f exceeds balance %.2f", cost, c.startBalance)))
		token := c.token
		snap := c.snapshotLocked()
		c.mu.Unlock()

		metrics.IncTick(metrics.TickRejected)
		c.logger.Warn("tick rejected, balance exhausted",
			zap.Float64("candidate_balance", candidate),
			zap.Float64("energy_kwh", snap.Session.EnergyKWh),
		)
		if receipt, ok := c.release(token); ok {
			c.mu.Lock()
			c.receipt = &receipt
			snap = c.snapshotLocked()
			c.mu.Unlock()
		}
		c.notify(snap)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err := c.wallet.Commit(ctx, candidate)
	cancel()
	if err != nil {
		c.mu.Unlock()
		metrics.IncTick(metrics.TickSkipped)
		c.logger.Warn("tick skipped, wallet not persisted", zap.Error(err))
		return true
	}

	c.session.EnergyKWh = energy
	c.session.Cost = cost
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.IncTick(metrics.TickAccepted)
	c.notify(snap)
	return true
}

// release confirms the stop of an interrupted session so the connector frees up.
func (c *Controller) release(token backend.Token) (models.Receipt, bool) {
	if token == "" {
		return models.Receipt{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	started := time.Now()
	receipt, err := c.backend.ConfirmStop(ctx, token)
	metrics.ObserveBackendCall("stop", err, time.Since(started))
	if err != nil {
		c.logger.Warn("backend release failed", zap.Error(err))
		return models.Receipt{}, false
	}
	return receipt, true
}

func (c *Controller) fail(err *Error) error {
	c.mu.Lock()
	c.failLocked(err)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
	return err
}

func (c *Controller) failLocked(err *Error) {
	c.failure = err
	c.setStateLocked(StateError)
}

func (c *Controller) setStateLocked(state State) {
	if c.state == StateCharging && state != StateCharging {
		metrics.AddActiveSessions(-1)
	}
	if state == StateCharging {
		metrics.AddActiveSessions(1)
	}
	c.state = state
	metrics.IncSessionState(string(state))
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:          c.id,
		State:       c.state,
		StationID:   c.station.ID,
		StationName: c.station.Name,
		Connector:   c.connector,
		PricePerKWh: c.price,
		Currency:    c.station.Pricing.Currency,
		Session:     c.session,
		Balance:     c.wallet.Balance(),
		EndedAt:     c.endedAt,
		Closed:      c.closed,
	}
	if c.failure != nil {
		snap.Failure = c.failure.Kind
		snap.Err = c.failure
	}
	if c.receipt != nil {
		r := *c.receipt
		snap.Receipt = &r
	}
	return snap
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, c.observers[id])
	}
	c.mu.Unlock()
	for _, o := range observers {
		o(snap)
	}
}
