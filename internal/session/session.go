// Package session manages the single pooled HTTP session owned by a client.
package session

import (
	"sync"

	"github.com/lexfrei/go-arr/internal/httpclient"
)

// Factory builds a new session handle. It is called with the manager's lock
// held, so it must not call back into the Manager.
type Factory func() *httpclient.Client

// Manager lazily creates one session handle and hands the same handle to
// every caller until Close. It is safe for concurrent use; the lock is held
// only while deciding whether to create a handle, never during a request.
type Manager struct {
	mu      sync.Mutex
	factory Factory
	current *httpclient.Client
	created int
}

// New returns a Manager that creates handles with factory.
func New(factory Factory) *Manager {
	if factory == nil {
		factory = func() *httpclient.Client { return httpclient.New() }
	}

	return &Manager{factory: factory}
}

// Acquire returns the open handle, creating one if none exists.
func (m *Manager) Acquire() *httpclient.Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.current = m.factory()
		m.created++
	}

	return m.current
}

// Close releases pooled connections of the open handle and forgets it.
// Calling Close with no open handle is a no-op. Requests still running on
// the released handle finish on their own connections.
func (m *Manager) Close() {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if current != nil {
		current.CloseIdleConnections()
	}
}

// Open reports whether a handle currently exists.
func (m *Manager) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current != nil
}

// Created returns how many handles the manager has built so far.
func (m *Manager) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.created
}
