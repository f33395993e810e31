package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// GatewayFactory builds a gateway for a venue on first use.
type GatewayFactory func(ctx context.Context) (Gateway, error)

// Registry is a static, thread-safe registry of venue gateways. Factories
// are bound at configuration time; connections are created lazily on first
// Get, reused across saga executions, and evicted with Invalidate when a
// caller detects staleness.
type Registry struct {
	mu        sync.Mutex
	factories map[string]GatewayFactory
	gateways  map[string]Gateway
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]GatewayFactory),
		gateways:  make(map[string]Gateway),
	}
}

// Bind registers a factory for a venue. Venue names are case-insensitive.
func (r *Registry) Bind(venue string, factory GatewayFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(venue)] = factory
}

// Get returns the gateway for a venue, building it on first use.
func (r *Registry) Get(ctx context.Context, venue string) (Gateway, error) {
	key := normalize(venue)

	r.mu.Lock()
	if gw, ok := r.gateways[key]; ok {
		r.mu.Unlock()
		return gw, nil
	}
	factory, ok := r.factories[key]
	r.mu.Unlock()

	if !ok {
		return nil, apperror.New(apperror.CodeExchangeNotConfigured,
			apperror.WithVenue(venue))
	}

	// Build outside the lock; venue connections can be slow to establish.
	gw, err := factory(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeExchangeNotConfigured, venue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have won the race; keep the first instance.
	if existing, ok := r.gateways[key]; ok {
		closeGateway(existing)
		return existing, nil
	}
	r.gateways[key] = gw
	return gw, nil
}

// Invalidate evicts a venue's gateway so the next Get rebuilds it.
func (r *Registry) Invalidate(venue string) {
	key := normalize(venue)

	r.mu.Lock()
	gw, ok := r.gateways[key]
	delete(r.gateways, key)
	r.mu.Unlock()

	if ok {
		closeGateway(gw)
	}
}

// Venues returns the sorted list of configured venue names.
func (r *Registry) Venues() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	venues := make([]string, 0, len(r.factories))
	for v := range r.factories {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}

// Active returns the number of live gateway connections.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gateways)
}

// Close closes all live gateways. The registry is unusable afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	gateways := r.gateways
	r.gateways = make(map[string]Gateway)
	r.mu.Unlock()

	for _, gw := range gateways {
		closeGateway(gw)
	}
}

func closeGateway(gw Gateway) {
	if closer, ok := gw.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func normalize(venue string) string {
	return strings.ToLower(strings.TrimSpace(venue))
}
