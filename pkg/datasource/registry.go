package datasource

import "sync"

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

type registration struct {
	info    AdapterInfo
	factory AdapterFactory
}

// Register is called by each adapter's init() function, gated by its own
// build tag (e.g. "postgres" or "all_adapters").
func Register(info AdapterInfo, factory AdapterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[info.Driver] = registration{info: info, factory: factory}
}

// GetFactory returns the factory for a driver name, or nil if not compiled
// in.
func GetFactory(driver string) AdapterFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := registry[driver]; ok {
		return reg.factory
	}
	return nil
}

// RegisteredDrivers returns info for all registered drivers.
func RegisteredDrivers() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	infos := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		infos = append(infos, reg.info)
	}
	return infos
}
