package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultConnectionTTL  = 5 * time.Minute
	DefaultCleanupInterval = 1 * time.Minute
)

// ConnectionManager pools one Adapter per client and driver, reused across
// pipeline phases and engine requests, and evicted after an idle TTL.
// Adapted from the reference multi-tenant connection manager, simplified to
// a "clientID:driver" key since this engine has no per-user/per-project
// dimension.
type ConnectionManager struct {
	mu       sync.Mutex
	conns    map[string]*managedConn
	ttl      time.Duration
	stopChan chan struct{}
	logger   *zap.Logger
}

type managedConn struct {
	adapter  Adapter
	lastUsed time.Time
}

func NewConnectionManager(ttl time.Duration, logger *zap.Logger) *ConnectionManager {
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	m := &ConnectionManager{
		conns:    make(map[string]*managedConn),
		ttl:      ttl,
		stopChan: make(chan struct{}),
		logger:   logger,
	}
	go m.reapExpired()
	return m
}

// GetOrCreate returns the pooled adapter for clientID, driver, building one
// via factory on first use.
func (m *ConnectionManager) GetOrCreate(ctx context.Context, clientID, driver string, params ConnParams) (Adapter, error) {
	key := clientID + ":" + driver

	m.mu.Lock()
	if c, ok := m.conns[key]; ok {
		c.lastUsed = time.Now()
		m.mu.Unlock()
		return c.adapter, nil
	}
	m.mu.Unlock()

	factory := GetFactory(driver)
	if factory == nil {
		return nil, fmt.Errorf("datasource driver %q is not compiled in", driver)
	}
	adapter, err := factory(ctx, params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conns[key]; ok {
		// Lost a race with a concurrent caller; keep the existing adapter.
		_ = adapter.Close()
		c.lastUsed = time.Now()
		return c.adapter, nil
	}
	m.conns[key] = &managedConn{adapter: adapter, lastUsed: time.Now()}
	return adapter, nil
}

func (m *ConnectionManager) reapExpired() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, c := range m.conns {
				if now.Sub(c.lastUsed) > m.ttl {
					if err := c.adapter.Close(); err != nil && m.logger != nil {
						m.logger.Warn("closing expired datasource connection", zap.String("key", key), zap.Error(err))
					}
					delete(m.conns, key)
				}
			}
			m.mu.Unlock()
		case <-m.stopChan:
			return
		}
	}
}

// Close stops the reaper and closes every pooled adapter.
func (m *ConnectionManager) Close() {
	close(m.stopChan)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conns {
		_ = c.adapter.Close()
	}
	m.conns = make(map[string]*managedConn)
}
