// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"fmt"
	"sort"
	"sync"
)

// Manager is the registry of chain contexts keyed by chain id.
type Manager struct {
	mtx    sync.RWMutex
	chains map[uint16]*Chain
	cfg    *Config
}

// NewManager returns an empty manager.  Chains created through it share cfg.
func NewManager(cfg *Config) *Manager {
	return &Manager{
		chains: make(map[uint16]*Chain),
		cfg:    cfg,
	}
}

// Create registers a new chain context.  It is an error to create the same
// chain twice.
func (m *Manager) Create(id uint16) (*Chain, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if _, ok := m.chains[id]; ok {
		return nil, fmt.Errorf("chain %d already exists", id)
	}
	c := New(id, m.cfg)
	m.chains[id] = c
	log.Infof("Created context for chain %d", id)
	return c, nil
}

// Get returns the context of chain id.
func (m *Manager) Get(id uint16) (*Chain, bool) {
	m.mtx.RLock()
	c, ok := m.chains[id]
	m.mtx.RUnlock()
	return c, ok
}

// IDs returns the ids of every registered chain in ascending order.
func (m *Manager) IDs() []uint16 {
	m.mtx.RLock()
	ids := make([]uint16, 0, len(m.chains))
	for id := range m.chains {
		ids = append(ids, id)
	}
	m.mtx.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
