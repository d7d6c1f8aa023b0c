package kiosk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/backend"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/directory"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/handshake"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/notice"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/scanner"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/wallet"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type oneShotScanner struct{ payload string }

func (s oneShotScanner) Start(context.Context) (<-chan scanner.Outcome, error) {
	ch := make(chan scanner.Outcome, 1)
	ch <- scanner.Outcome{Payload: s.payload}
	close(ch)
	return ch, nil
}

func (oneShotScanner) Cancel() {}

type tickClock struct {
	mu sync.Mutex
	ch chan time.Time
}

func (c *tickClock) Now() time.Time { return epoch }

func (c *tickClock) NewTicker(time.Duration) session.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = make(chan time.Time)
	return tickTicker{ch: c.ch}
}

func (c *tickClock) ticker() chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

type tickTicker struct{ ch chan time.Time }

func (t tickTicker) C() <-chan time.Time { return t.ch }
func (t tickTicker) Stop()               {}

func newKiosk(t *testing.T, balance float64, sim *backend.Simulated, clock session.Clock) (*Kiosk, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.Open(context.Background(), kvstore.NewMemory(), kvstore.KeyWallet, balance, zap.NewNop())
	require.NoError(t, err)

	dir := directory.NewMemory(directory.DemoStations()...)
	return &Kiosk{
		Handshake: handshake.New(oneShotScanner{payload: "siteId=1,gunId=DC-001"}, dir, nil, zap.NewNop()),
		Directory: dir,
		Backend:   sim,
		Wallet:    w,
		Session:   session.Config{AccrualRateKWhPerSecond: 0.01, TickInterval: time.Second, FallbackPricePerKWh: 15},
		Expect:    handshake.Expectation{SiteID: "1", GunID: "DC-001"},
		Clock:     clock,
		Logger:    zap.NewNop(),
	}, w
}

func TestKioskChargesForConfiguredDuration(t *testing.T) {
	sim := backend.NewSimulated(0, zap.NewNop())
	k, w := newKiosk(t, 1000, sim, &tickClock{})
	k.ChargeFor = 20 * time.Millisecond

	res, err := k.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Notice)
	assert.Equal(t, session.StatePostCharging, res.Snapshot.State)
	require.NotNil(t, res.Snapshot.Receipt)
	assert.Equal(t, 1000.0, w.Balance())

	// the connector was released, so it can be started again
	token, err := sim.ConfirmStart(context.Background(), "1", "DC-001")
	require.NoError(t, err)
	sim.Release(token)
}

func TestKioskStopsOnInsufficientBalance(t *testing.T) {
	clock := &tickClock{}
	k, w := newKiosk(t, 10, backend.NewSimulated(0, zap.NewNop()), clock)
	assert.Equal(t, 10.0, w.Balance())

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := k.Run(context.Background())
		done <- outcome{res, err}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for clock.ticker() == nil && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NotNil(t, clock.ticker())
	clock.ticker() <- epoch.Add(67 * time.Second)

	select {
	case out := <-done:
		assert.ErrorIs(t, out.err, session.ErrInsufficientBalance)
		require.NotNil(t, out.res.Notice)
		assert.Equal(t, notice.ActionReturn, out.res.Notice.Action)
		assert.Equal(t, 10.0, out.res.Snapshot.Balance)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
	assert.Equal(t, 10.0, w.Balance(), "reset restores the configured default")
}

func TestKioskCancelReleasesSession(t *testing.T) {
	sim := backend.NewSimulated(0, zap.NewNop())
	clock := &tickClock{}
	k, _ := newKiosk(t, 1000, sim, clock)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for clock.ticker() == nil && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		cancel()
	}()

	res, err := k.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Snapshot.Closed)

	token, err := sim.ConfirmStart(context.Background(), "1", "DC-001")
	require.NoError(t, err)
	sim.Release(token)
}

func TestKioskReportsUnavailableConnector(t *testing.T) {
	k, _ := newKiosk(t, 1000, backend.NewSimulated(0, zap.NewNop()), &tickClock{})
	k.Handshake = handshake.New(oneShotScanner{payload: "siteId=3,gunId=DC-003"}, k.Directory, nil, nil)
	k.Expect = handshake.Expectation{}

	res, err := k.Run(context.Background())
	assert.ErrorIs(t, err, session.ErrConnectorUnavailable)
	require.NotNil(t, res.Notice)
	assert.Equal(t, "ConnectorUnavailable", res.Notice.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.UsesRemote())

	cfg.Camera.Facing = "sideways"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Remote.APIURL = "http://localhost:8085"
	assert.Error(t, cfg.Validate())
	cfg.Remote.AuthURL = "http://localhost:8081"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.UsesRemote())
}
