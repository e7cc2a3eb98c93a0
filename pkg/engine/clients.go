package engine

import (
	"fmt"
	"sync"

	"github.com/ekaya-inc/schema-intel/pkg/apperrors"
	"github.com/ekaya-inc/schema-intel/pkg/config"
	"github.com/ekaya-inc/schema-intel/pkg/datasource"
)

// ClientRegistry is the default ClientDatabases: an in-memory map of
// already-loaded per-client YAML configs, with credentials resolved from
// environment variables lazily, at first use, per §4's config_missing
// policy.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*config.ClientConfig
}

// NewClientRegistry builds an empty registry; call Add for each loaded
// client config.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*config.ClientConfig)}
}

// Add registers one client's configuration, keyed by its client_id.
func (r *ClientRegistry) Add(cfg *config.ClientConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[cfg.ClientID] = cfg
}

// Resolve implements ClientDatabases.
func (r *ClientRegistry) Resolve(clientID string) (string, datasource.ConnParams, error) {
	r.mu.RLock()
	cfg, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return "", datasource.ConnParams{}, apperrors.New(apperrors.KindConfigMissing, fmt.Sprintf("client %q is not configured", clientID))
	}

	user, err := cfg.Database.User()
	if err != nil {
		return "", datasource.ConnParams{}, err
	}
	password, err := cfg.Database.Password()
	if err != nil {
		return "", datasource.ConnParams{}, err
	}

	return cfg.Database.Driver, datasource.ConnParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     user,
		Password: password,
		Database: cfg.Database.Name,
	}, nil
}

// ClientIDs returns every registered client id, for the config-discovery
// operation.
func (r *ClientRegistry) ClientIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}
