package ws

import "sync"

// Manager tracks open session streams.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewManager builds connection manager.
func NewManager() *Manager {
	return &Manager{connections: make(map[string]*Connection)}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn.ID()] = conn
}

// Remove removes connection.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.connections, id)
}

// Count returns the number of open streams.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// CloseAll finishes every stream, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.RUnlock()
	for _, c := range conns {
		c.Finish()
	}
}
