// Package di contains dependency injection tokens for the exchange context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/exchange/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	GatewayRegistry = di.NewToken[*app.Registry]("exchange.GatewayRegistry")
)

// Helper functions for type-safe access
func GetGatewayRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, GatewayRegistry)
}
