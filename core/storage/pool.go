package storage

import (
	"fmt"
	"sync"

	"github.com/okenlabs/docweave/core/schema"
)

// OpenFunc opens a store connection for a database descriptor.
type OpenFunc func(db schema.DB) (Store, error)

// Pool hands out store connections keyed by (host, port), so schemas that
// declare the same location share a connection. The pool is an owned object
// passed explicitly to whoever needs a connection; there is no ambient
// global cache.
type Pool struct {
	mu     sync.Mutex
	open   OpenFunc
	stores map[string]Store
}

// NewPool returns a pool that opens missing connections with open.
func NewPool(open OpenFunc) *Pool {
	return &Pool{open: open, stores: make(map[string]Store)}
}

// Get returns the shared store for the descriptor's (host, port), opening
// it on first use.
func (p *Pool) Get(db schema.DB) (Store, error) {
	key := fmt.Sprintf("%s:%d", db.Host, db.Port)

	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.stores[key]; ok {
		return st, nil
	}
	st, err := p.open(db)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", key, err)
	}
	p.stores[key] = st
	return st, nil
}

// Close closes every pooled connection, keeping the first error.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for key, st := range p.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.stores, key)
	}
	return firstErr
}
