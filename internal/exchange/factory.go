package exchange

import (
	"log/slog"
	"sync"

	"github.com/bitstash-treasury-engine/internal/config"
)

// Provider identifiers stored on treasury rules.
const (
	ProviderBTCMarkets = "btcmarkets"
	ProviderMock       = "mock"
)

// Factory resolves a tenant rule's exchange_provider identifier to a
// Client. Clients are stateless and shared between tenants; credentials are
// process-level configuration.
type Factory struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewFactory builds a factory with the providers enabled in configuration.
// The mock provider is always registered; it backs development environments
// and tenant sandboxes.
func NewFactory(cfg *config.ExchangeConfig, logger *slog.Logger) *Factory {
	f := &Factory{clients: make(map[string]Client)}

	f.Register(NewMockClient(MockConfig{}))

	if cfg.BTCMarkets.APIKey != "" {
		f.Register(NewBTCMarketsClient(&cfg.BTCMarkets, logger))
		logger.Info("Registered exchange provider", "provider", ProviderBTCMarkets)
	}

	return f
}

// Register adds or replaces a provider client.
func (f *Factory) Register(client Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[client.Provider()] = client
}

// ClientFor returns the client for the given provider identifier, or
// ErrUnknownProvider when no such provider is registered.
func (f *Factory) ClientFor(provider string) (Client, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	client, ok := f.clients[provider]
	if !ok {
		return nil, ErrUnknownProvider{Provider: provider}
	}
	return client, nil
}
