// Package storage owns the lazily-created, shared connection to the
// vector index and the nearest-neighbor search path.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Conn is an open session to the vector index. Implementations must be
// safe for concurrent use once LoadCollection has succeeded.
type Conn interface {
	// LoadCollection obtains the handle for the named collection.
	LoadCollection(ctx context.Context, name string) error
	// Search runs a nearest-neighbor query and returns hits in index order.
	Search(ctx context.Context, vector []float32, limit uint64) ([]Hit, error)
	Close() error
}

// DialFunc opens a network session to the index.
type DialFunc func(ctx context.Context) (Conn, error)

// state is the monotonic connection lifecycle: uninitialized ->
// connected -> ready. No transition ever goes backwards.
type state int

const (
	stateUninitialized state = iota
	stateConnected
	stateReady
)

// Manager owns the shared index connection. Connecting and loading a
// collection is heavyweight (network plus server-side index
// structures), so the Manager does it at most once per process and
// reuses the result across requests. A failed transition surfaces an
// error but leaves the state at the step before the failure, so a
// later request retries that step only; the Manager itself never
// retries. Steady-state callers take the read lock only.
type Manager struct {
	dial       DialFunc
	collection string
	dim        int

	mu    sync.RWMutex
	state state
	conn  Conn
}

// NewManager creates an uninitialized manager. dim is the expected
// query vector length; 0 disables the dimension check.
func NewManager(dial DialFunc, collection string, dim int) *Manager {
	return &Manager{
		dial:       dial,
		collection: collection,
		dim:        dim,
	}
}

// ready returns the shared connection, performing whichever lifecycle
// transitions are still pending. Under concurrent cold-start callers
// exactly one connect and one load execute; everyone else waits on the
// lock and observes the completed result.
func (m *Manager) ready(ctx context.Context) (Conn, error) {
	m.mu.RLock()
	if m.state == stateReady {
		conn := m.conn
		m.mu.RUnlock()
		return conn, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state < stateConnected {
		conn, err := m.dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: connect: %v", ErrIndexUnavailable, err)
		}
		m.conn = conn
		m.state = stateConnected
	}

	if m.state < stateReady {
		if err := m.conn.LoadCollection(ctx, m.collection); err != nil {
			// Stay connected; only the load is retried next time.
			return nil, fmt.Errorf("%w: load collection %q: %v", ErrIndexUnavailable, m.collection, err)
		}
		m.state = stateReady
	}

	return m.conn, nil
}

// Search embeds the ready-collection handshake: it connects and loads
// on first use, then issues the nearest-neighbor query.
func (m *Manager) Search(ctx context.Context, vector []float32, limit uint64) ([]Hit, error) {
	if m.dim > 0 && len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), m.dim)
	}

	conn, err := m.ready(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Search(ctx, vector, limit)
}

// Warm forces the connect/load sequence without searching. Used by the
// check subcommand; request handling never calls it.
func (m *Manager) Warm(ctx context.Context) error {
	_, err := m.ready(ctx)
	return err
}

// Close releases the shared connection if one was established.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
