// Package exchange implements the exchange bounded context: venue gateways
// and their lifecycle.
package exchange

import (
	"context"

	"github.com/fd1az/arbitrage-executor/business/exchange/app"
	exchangeDI "github.com/fd1az/arbitrage-executor/business/exchange/di"
	"github.com/fd1az/arbitrage-executor/business/exchange/infra/ccxtrest"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the exchange bounded context.
type Module struct{}

// RegisterServices registers the gateway registry with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, exchangeDI.GatewayRegistry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		registry := app.NewRegistry()
		for _, venue := range cfg.Exchanges.Venues {
			venueCfg := ccxtrest.Config{
				Venue:             venue.Name,
				BaseURL:           venue.BaseURL,
				APIKey:            venue.APIKey,
				APISecret:         venue.APISecret,
				RequestsPerMinute: venue.RequestsPerMinute,
			}
			registry.Bind(venue.Name, func(ctx context.Context) (app.Gateway, error) {
				return ccxtrest.New(venueCfg, log)
			})
		}
		return registry
	})

	return nil
}

// Startup logs the configured venues. Gateways connect lazily on first use.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	registry := exchangeDI.GetGatewayRegistry(mono.Services())
	mono.Logger().Info(ctx, "exchange module started", "venues", registry.Venues())
	return nil
}
