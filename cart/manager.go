package cart

import (
	"context"
	"sync"
	"time"
)

// Manager hands out one Engine per device session and retires engines that
// have gone quiet. It is created once in main and passed to the cart routes;
// nothing else in the process holds cart state.
type Manager struct {
	mu      sync.Mutex
	engines map[string]*managedEngine

	remote RemoteStore
	local  LocalStore
	opts   Options

	idleTTL time.Duration
	stop    chan struct{}
}

type managedEngine struct {
	engine   *Engine
	lastSeen time.Time
}

func NewManager(remote RemoteStore, local LocalStore, opts Options) *Manager {
	m := &Manager{
		engines: make(map[string]*managedEngine),
		remote:  remote,
		local:   local,
		opts:    opts,
		idleTTL: 30 * time.Minute,
		stop:    make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Engine returns the engine bound to a device id, creating it on first use.
func (m *Manager) Engine(deviceID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if me, ok := m.engines[deviceID]; ok {
		me.lastSeen = time.Now()
		return me.engine
	}
	eng := NewEngine(deviceID, m.remote, m.local, m.opts)
	m.engines[deviceID] = &managedEngine{engine: eng, lastSeen: time.Now()}
	return eng
}

func (m *Manager) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var idle []*Engine
	for id, me := range m.engines {
		if me.lastSeen.Before(cutoff) {
			idle = append(idle, me.engine)
			delete(m.engines, id)
		}
	}
	m.mu.Unlock()

	// Close flushes, so an evicted cart is persisted before it is forgotten.
	for _, eng := range idle {
		eng.Close(context.Background())
	}
}

// Shutdown flushes and closes every live engine.
func (m *Manager) Shutdown(ctx context.Context) {
	close(m.stop)

	m.mu.Lock()
	var all []*Engine
	for _, me := range m.engines {
		all = append(all, me.engine)
	}
	m.engines = make(map[string]*managedEngine)
	m.mu.Unlock()

	for _, eng := range all {
		eng.Close(ctx)
	}
}
