package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/session"
)

type fakeSource struct {
	mu       sync.Mutex
	snap     session.Snapshot
	observer session.Observer
	done     chan struct{}
}

func (f *fakeSource) ID() string { return "sess-1" }

func (f *fakeSource) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Subscribe(o session.Observer) func() {
	f.mu.Lock()
	f.observer = o
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.observer = nil
		f.mu.Unlock()
	}
}

func (f *fakeSource) Done() <-chan struct{} { return f.done }

func (f *fakeSource) publish(snap session.Snapshot) {
	f.mu.Lock()
	f.snap = snap
	o := f.observer
	f.mu.Unlock()
	if o != nil {
		o(snap)
	}
}

func (f *fakeSource) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.observer != nil
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestStreamPushesSnapshotsUntilDone(t *testing.T) {
	source := &fakeSource{
		snap: session.Snapshot{ID: "sess-1", State: session.StatePreCharging, Balance: 1000},
		done: make(chan struct{}),
	}
	manager := NewManager()
	server := NewServer(manager, time.Second, nil, zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.Stream(w, r, source)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, session.StatePreCharging, first.Snapshot.State)
	assert.Nil(t, first.Notice)

	source.publish(session.Snapshot{
		ID:      "sess-1",
		State:   session.StateError,
		Failure: session.KindInsufficientBalance,
		Err:     &session.Error{Kind: session.KindInsufficientBalance},
	})
	failed := readMessage(t, conn)
	assert.Equal(t, session.StateError, failed.Snapshot.State)
	require.NotNil(t, failed.Notice)
	assert.Equal(t, "InsufficientBalance", failed.Notice.Code)
	assert.Equal(t, 1, manager.Count())

	close(source.done)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (manager.Count() != 0 || source.subscribed()) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, manager.Count())
	assert.False(t, source.subscribed())
}

func TestCheckOrigin(t *testing.T) {
	open := checkOrigin(nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anything.example")
	assert.True(t, open(req))

	limited := checkOrigin([]string{"https://app.example/"})
	assert.True(t, limited(httptest.NewRequest(http.MethodGet, "/", nil)), "no origin header")
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, limited(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, limited(req))
}
