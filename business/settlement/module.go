// Package settlement implements the settlement bounded context: on-chain
// transfers and confirmation tracking on BNB Smart Chain.
package settlement

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-executor/business/settlement/app"
	settlementDI "github.com/fd1az/arbitrage-executor/business/settlement/di"
	"github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/business/settlement/infra/bsc"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the settlement bounded context.
type Module struct{}

// RegisterServices registers settlement services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, settlementDI.ChainGateway, func(sr di.ServiceRegistry) app.ChainGateway {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient, _ := sr.Get("ethClient").(*ethclient.Client)

		maxGasPrice := new(big.Int)
		if _, ok := maxGasPrice.SetString(cfg.Chain.MaxGasPrice, 10); !ok {
			maxGasPrice = nil
		}

		gateway, err := bsc.New(ethClient, bsc.Config{
			ChainID:       cfg.Chain.ChainID,
			TransferGas:   cfg.Chain.TransferGas,
			MaxGasPrice:   maxGasPrice,
			WalletAddress: cfg.Wallet.Address,
			PrivateKey:    cfg.Wallet.PrivateKey,
		}, log)
		if err != nil {
			panic("failed to create bsc gateway: " + err.Error())
		}
		return gateway
	})

	di.RegisterToken(c, settlementDI.SettlementService, func(sr di.ServiceRegistry) *app.SettlementService {
		cfg := sr.Get("config").(*config.Config)
		quote := domain.Token{
			Address:  cfg.Chain.QuoteTokenAddress(),
			Symbol:   cfg.Execution.QuoteCurrency,
			Decimals: cfg.Chain.TokenDecimals,
		}
		return app.NewSettlementService(settlementDI.GetChainGateway(sr), quote)
	})

	return nil
}

// Startup verifies chain connectivity when an RPC client is configured.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	if mono.EthClient() == nil {
		log.Warn(ctx, "settlement module started without chain RPC; transfers disabled")
		return nil
	}

	svc := settlementDI.GetSettlementService(mono.Services())
	price, err := svc.GasPrice(ctx)
	if err != nil {
		log.Warn(ctx, "chain gas price probe failed", "error", err)
	} else {
		log.Info(ctx, "settlement module started", "gas_price_gwei", price.Gwei())
	}
	return nil
}
