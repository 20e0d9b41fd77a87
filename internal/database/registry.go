package database

import (
	"database/sql"
	"errors"
	"sync"
)

var errNoOpenConnections = errors.New("no open connections")

// connRegistry tracks open native connections by database name so a
// re-initialization never runs against a stale handle.
type connRegistry struct {
	mu    sync.Mutex
	conns map[string]*sql.DB
}

func newConnRegistry() *connRegistry {
	return &connRegistry{conns: make(map[string]*sql.DB)}
}

var nativeConns = newConnRegistry()

// closeStale closes and forgets the connection registered under name.
// It returns errNoOpenConnections when there is nothing to close.
func (r *connRegistry) closeStale(name string) error {
	r.mu.Lock()
	db, ok := r.conns[name]
	delete(r.conns, name)
	r.mu.Unlock()

	if !ok {
		return errNoOpenConnections
	}
	return db.Close()
}

func (r *connRegistry) register(name string, db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[name] = db
}

// release forgets name only if it still maps to db.
func (r *connRegistry) release(name string, db *sql.DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[name] == db {
		delete(r.conns, name)
	}
}

func (r *connRegistry) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[name]
	return ok
}

func (r *connRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
