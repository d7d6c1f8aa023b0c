package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

type activeSession struct {
	siteID    string
	gunID     string
	startedAt time.Time
}

// Simulated confirms sessions locally. It stands in for the charging network
// until real hardware is integrated.
type Simulated struct {
	latency time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	active map[Token]activeSession
	busy   map[string]Token
}

// NewSimulated returns a backend that answers after latency.
func NewSimulated(latency time.Duration, logger *zap.Logger) *Simulated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulated{
		latency: latency,
		logger:  logger,
		active:  make(map[Token]activeSession),
		busy:    make(map[string]Token),
	}
}

func connectorKey(siteID, gunID string) string {
	return siteID + "/" + gunID
}

// ConfirmStart implements SessionBackend. A connector holds one session at a time.
func (s *Simulated) ConfirmStart(ctx context.Context, siteID, gunID string) (Token, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := connectorKey(siteID, gunID)
	if _, ok := s.busy[key]; ok {
		return "", fmt.Errorf("%w: connector %s already charging", ErrRejected, key)
	}

	token := Token(uuid.NewString())
	s.active[token] = activeSession{siteID: siteID, gunID: gunID, startedAt: time.Now().UTC()}
	s.busy[key] = token
	s.logger.Info("session start confirmed", zap.String("site_id", siteID), zap.String("gun_id", gunID), zap.String("token", string(token)))
	return token, nil
}

// ConfirmStop implements SessionBackend.
func (s *Simulated) ConfirmStop(ctx context.Context, token Token) (models.Receipt, error) {
	if err := s.wait(ctx); err != nil {
		return models.Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.active[token]
	if !ok {
		return models.Receipt{}, ErrUnknownToken
	}
	delete(s.active, token)
	delete(s.busy, connectorKey(session.siteID, session.gunID))

	receipt := models.Receipt{
		ID:        uuid.NewString(),
		Token:     string(token),
		StoppedAt: time.Now().UTC(),
	}
	s.logger.Info("session stop confirmed", zap.String("token", string(token)), zap.String("receipt_id", receipt.ID))
	return receipt, nil
}

// Release drops a token without issuing a receipt, freeing its connector.
func (s *Simulated) Release(token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.active[token]; ok {
		delete(s.active, token)
		delete(s.busy, connectorKey(session.siteID, session.gunID))
	}
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
