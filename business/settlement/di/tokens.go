// Package di contains dependency injection tokens for the settlement context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/settlement/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SettlementService = di.NewToken[*app.SettlementService]("settlement.SettlementService")
)

// Private dependency tokens - internal to settlement module
var (
	ChainGateway = di.NewToken[app.ChainGateway]("settlement:chainGateway")
)

// Helper functions for type-safe access
func GetSettlementService(c di.ServiceRegistry) *app.SettlementService {
	return di.GetToken(c, SettlementService)
}

func GetChainGateway(c di.ServiceRegistry) app.ChainGateway {
	return di.GetToken(c, ChainGateway)
}
