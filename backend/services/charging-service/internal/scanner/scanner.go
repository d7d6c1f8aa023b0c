package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/metrics"
)

// State is the lifecycle position of a Scanner.
type State string

const (
	StateIdle      State = "idle"
	StateAcquiring State = "acquiring"
	StateStreaming State = "streaming"
	StateDecoded   State = "decoded"
	StateFailed    State = "failed"
)

// Outcome resolves one activation: either a payload or a terminal error.
// Err is context.Canceled when the activation was cancelled.
type Outcome struct {
	Payload string
	Err     error
}

// Config tunes a Scanner.
type Config struct {
	Facing Facing
}

// Scanner owns a camera capture and decodes frames until a QR payload is found.
type Scanner struct {
	device  Device
	decoder Decoder
	facing  Facing
	logger  *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an idle scanner.
func New(device Device, decoder Decoder, cfg Config, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	facing := cfg.Facing
	if facing == "" {
		facing = FacingEnvironment
	}
	return &Scanner{
		device:  device,
		decoder: decoder,
		facing:  facing,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start activates the scanner. The returned channel yields exactly one Outcome.
// Start is valid from idle, decoded and failed; the previous capture is fully
// released before a new one is acquired.
func (s *Scanner) Start(ctx context.Context) (<-chan Outcome, error) {
	s.mu.Lock()
	if s.state == StateAcquiring || s.state == StateStreaming {
		s.mu.Unlock()
		return nil, ErrScannerBusy
	}

	prev := s.done
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state = StateAcquiring
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	out := make(chan Outcome, 1)
	go s.run(runCtx, prev, done, out)
	return out, nil
}

// Cancel halts decoding and releases the capture. It blocks until the
// activation goroutine has exited and is safe to call any number of times.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.state = StateIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scanner) run(ctx context.Context, prev, done chan struct{}, out chan<- Outcome) {
	var outcome Outcome
	defer func() {
		close(done)
		out <- outcome
		close(out)
		metrics.IncScanOutcome(outcomeLabel(outcome))
	}()

	if prev != nil {
		<-prev
	}

	started := time.Now()
	capture, err := s.device.Acquire(ctx, s.facing)
	if err != nil {
		metrics.ObserveAcquire(metrics.ResultError, time.Since(started))
		if ctx.Err() != nil {
			outcome = s.abort(ctx, done)
			return
		}
		scanErr := classifyAcquire(err)
		s.logger.Warn("camera acquisition failed", zap.String("kind", string(scanErr.Kind)), zap.Error(err))
		outcome = s.fail(done, scanErr)
		return
	}
	metrics.ObserveAcquire(metrics.ResultSuccess, time.Since(started))
	defer s.release(capture)

	streaming := false
	for {
		if ctx.Err() != nil {
			outcome = s.abort(ctx, done)
			return
		}

		frame, err := capture.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				outcome = s.abort(ctx, done)
				return
			}
			outcome = s.fail(done, deviceError(err))
			return
		}

		if !streaming {
			if frame.Width <= 0 || frame.Height <= 0 {
				outcome = s.fail(done, deviceError(ErrStreamNotReady))
				return
			}
			streaming = true
			s.transition(done, StateStreaming)
			s.logger.Debug("camera streaming", zap.Int("width", frame.Width), zap.Int("height", frame.Height))
		}

		payload, err := s.decoder.Decode(frame)
		switch {
		case err == nil:
			s.transition(done, StateDecoded)
			s.logger.Info("qr code decoded", zap.Int("payload_len", len(payload)))
			outcome = Outcome{Payload: payload}
			return
		case errors.Is(err, ErrNoCode):
			metrics.IncScanRetry("no_code")
		case errors.Is(err, ErrMalformedCode):
			metrics.IncScanRetry("malformed")
			s.logger.Debug("malformed qr code, retrying", zap.Error(err))
		default:
			s.logger.Error("decode failed", zap.Error(err))
			outcome = s.fail(done, deviceError(err))
			return
		}
	}
}

func (s *Scanner) release(capture Capture) {
	if err := s.device.Release(capture); err != nil {
		s.logger.Warn("camera release failed", zap.Error(err))
	}
}

func (s *Scanner) fail(done chan struct{}, err *ScanError) Outcome {
	s.transition(done, StateFailed)
	return Outcome{Err: err}
}

func (s *Scanner) abort(ctx context.Context, done chan struct{}) Outcome {
	s.transition(done, StateIdle)
	return Outcome{Err: ctx.Err()}
}

// transition only applies while done still belongs to the current activation.
func (s *Scanner) transition(done chan struct{}, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	if s.state == StateIdle && state != StateIdle {
		// cancelled concurrently
		return
	}
	s.state = state
	if state != StateAcquiring && state != StateStreaming && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func outcomeLabel(o Outcome) string {
	if o.Err == nil {
		return "decoded"
	}
	if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
		return "cancelled"
	}
	if kind, ok := KindOf(o.Err); ok {
		return string(kind)
	}
	return "error"
}
