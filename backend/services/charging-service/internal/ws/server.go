package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/notice"
	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
)

// Source is a session that can be watched.
type Source interface {
	ID() string
	Snapshot() session.Snapshot
	Subscribe(session.Observer) func()
	Done() <-chan struct{}
}

// Message is one stream frame.
type Message struct {
	Type     string           `json:"type"`
	Snapshot session.Snapshot `json:"snapshot"`
	Notice   *notice.Notice   `json:"notice,omitempty"`
}

// Server upgrades HTTP requests to session snapshot streams.
type Server struct {
	manager      *Manager
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server. An empty allowedOrigins accepts any origin.
func NewServer(manager *Manager, writeTimeout time.Duration, allowedOrigins []string, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		manager:      manager,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// Stream upgrades the request and pushes every snapshot of source until the
// session is done or the client disconnects.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request, source Source) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var unsubscribe func()
	connection := NewConnection(uuid.NewString(), source.ID(), conn, s.writeTimeout, s.logger, func(id string) {
		if unsubscribe != nil {
			unsubscribe()
		}
		s.manager.Remove(id)
		cancel()
	})
	s.manager.Add(connection)

	unsubscribe = source.Subscribe(func(snap session.Snapshot) {
		if msg, err := encode(snap); err == nil {
			connection.Send(msg)
		}
	})
	if msg, err := encode(source.Snapshot()); err == nil {
		connection.Send(msg)
	}

	go func() {
		select {
		case <-source.Done():
			connection.Finish()
		case <-ctx.Done():
		}
	}()

	go connection.Start(ctx)
	s.logger.Info("session stream opened", zap.String("session_id", source.ID()))
}

func encode(snap session.Snapshot) ([]byte, error) {
	msg := Message{Type: "snapshot", Snapshot: snap}
	if snap.Err != nil {
		n := notice.Describe(snap.Err)
		msg.Notice = &n
	}
	return json.Marshal(msg)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
