// Package webchat serves the browser chat over WebSocket.
package webchat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the single active chat socket of each user.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]*websocket.Conn),
	}
}

// GetActive returns the active connection for a user.
func (m *ConnManager) GetActive(userID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID]
}

// Register makes conn the user's active socket, closing any previous one.
func (m *ConnManager) Register(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	existing := m.active[userID]
	m.active[userID] = conn
	m.mu.Unlock()

	if existing != nil && existing != conn {
		go func() {
			_ = existing.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
		}()
	}
	slog.Info("Web chat connection registered", "user_id", userID)
}

// Unregister removes conn if it is still the user's active socket.
func (m *ConnManager) Unregister(userID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[userID]; ok && current == conn {
		delete(m.active, userID)
		slog.Info("Web chat connection unregistered", "user_id", userID)
	}
}

// Len returns the number of connected users.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// CloseAll closes every active socket.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := m.active
	m.active = make(map[string]*websocket.Conn)
	m.mu.Unlock()

	for userID, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		slog.Info("Web chat connection closed", "user_id", userID)
	}
}
