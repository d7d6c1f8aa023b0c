package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/kvstore"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

// ErrNegativeBalance is returned by Commit for balances below zero.
var ErrNegativeBalance = errors.New("wallet: negative balance")

// Wallet is the simulated prepaid balance of one user. Only the meter tick and
// Reset write it.
type Wallet struct {
	store          kvstore.Store
	key            string
	defaultBalance float64
	logger         *zap.Logger

	mu      sync.RWMutex
	balance float64
}

// Open loads the wallet stored under key. Missing, malformed or negative values
// are replaced by defaultBalance and written back.
func Open(ctx context.Context, store kvstore.Store, key string, defaultBalance float64, logger *zap.Logger) (*Wallet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = kvstore.KeyWallet
	}
	w := &Wallet{
		store:          store,
		key:            key,
		defaultBalance: models.Round2(defaultBalance),
		logger:         logger,
	}
	if err := w.load(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Wallet) load(ctx context.Context) error {
	raw, ok, err := w.store.Get(ctx, w.key)
	if err != nil {
		return fmt.Errorf("wallet: load: %w", err)
	}

	if ok {
		if balance, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64); perr == nil && balance >= 0 {
			w.balance = models.Round2(balance)
			return nil
		}
		w.logger.Warn("stored wallet invalid, restoring default", zap.String("key", w.key), zap.String("value", raw))
	}

	w.balance = w.defaultBalance
	if err := w.store.Set(ctx, w.key, format(w.balance)); err != nil {
		return fmt.Errorf("wallet: write default: %w", err)
	}
	return nil
}

// Balance returns the last committed balance.
func (w *Wallet) Balance() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// Default returns the configured reset balance.
func (w *Wallet) Default() float64 {
	return w.defaultBalance
}

// Commit persists balance, then makes it visible. A failed write leaves the
// wallet unchanged.
func (w *Wallet) Commit(ctx context.Context, balance float64) error {
	balance = models.Round2(balance)
	if balance < 0 {
		return ErrNegativeBalance
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.Set(ctx, w.key, format(balance)); err != nil {
		return fmt.Errorf("wallet: persist: %w", err)
	}
	w.balance = balance
	return nil
}

// Reset restores the default balance. The in-memory balance is always reset;
// the returned error only reports a failed write.
func (w *Wallet) Reset(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance = w.defaultBalance
	if err := w.store.Set(ctx, w.key, format(w.balance)); err != nil {
		return fmt.Errorf("wallet: persist reset: %w", err)
	}
	return nil
}

func format(balance float64) string {
	return strconv.FormatFloat(balance, 'f', 2, 64)
}
