package publisher

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps target site IDs to their delivery clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]TargetClient
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		clients: make(map[string]TargetClient),
		logger:  logger,
	}
}

func (r *Registry) Register(siteID string, client TargetClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[siteID]; exists {
		return fmt.Errorf("client for site %s already registered", siteID)
	}

	r.clients[siteID] = client
	r.logger.Info("Target site registered", zap.String("site_id", siteID))
	return nil
}

func (r *Registry) Get(siteID string) (TargetClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, exists := r.clients[siteID]
	if !exists {
		return nil, fmt.Errorf("client for site %s not found", siteID)
	}
	return client, nil
}

func (r *Registry) SiteIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
