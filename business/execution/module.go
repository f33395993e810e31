// Package execution implements the execution bounded context: the
// arbitrage saga orchestrator and its collaborators.
package execution

import (
	"context"

	exchangeDI "github.com/fd1az/arbitrage-executor/business/exchange/di"
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	executionDI "github.com/fd1az/arbitrage-executor/business/execution/di"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/journal"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/telegram"
	settlementApp "github.com/fd1az/arbitrage-executor/business/settlement/app"
	settlementDI "github.com/fd1az/arbitrage-executor/business/settlement/di"
	"github.com/fd1az/arbitrage-executor/internal/clock"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.Journal, func(sr di.ServiceRegistry) app.Journal {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Journal.Driver == "postgres" {
			pg, err := journal.NewPostgres(context.Background(), cfg.Journal.PostgresDSN, log)
			if err != nil {
				panic("failed to create postgres journal: " + err.Error())
			}
			return pg
		}
		return journal.NewMemory()
	})

	di.RegisterToken(c, executionDI.Notifier, func(sr di.ServiceRegistry) app.Notifier {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if !cfg.Telegram.Enabled {
			return app.NopNotifier{}
		}
		notifier, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		if err != nil {
			panic("failed to create telegram notifier: " + err.Error())
		}
		return notifier
	})

	di.RegisterToken(c, executionDI.Analyzer, func(sr di.ServiceRegistry) *app.Analyzer {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewAnalyzer(app.AnalyzerConfig{
			DefaultTradingFeeRate: cfg.Execution.DefaultTradingFeeRateDecimal(),
			DefaultWithdrawalFee:  cfg.Execution.DefaultWithdrawalFeeDecimal(),
			GasFeeEstimate:        cfg.Execution.GasFeeEstimateDecimal(),
			HeuristicMinSpread:    cfg.Execution.HeuristicMinSpreadDecimal(),
		}, log)
	})

	di.RegisterToken(c, executionDI.Waiters, func(sr di.ServiceRegistry) *app.Waiters {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)

		return app.NewWaiters(app.WaiterConfig{
			MinConfirmations:     cfg.Execution.MinConfirmations,
			ConfirmationInterval: cfg.Execution.ConfirmationInterval,
			ConfirmationTimeout:  cfg.Execution.ConfirmationTimeout,
			WithdrawalInterval:   cfg.Execution.WithdrawalInterval,
			WithdrawalTimeout:    cfg.Execution.WithdrawalTimeout,
			DepositInterval:      cfg.Execution.DepositInterval,
			DepositTimeout:       cfg.Execution.DepositTimeout,
			RetryMaxAttempts:     cfg.Execution.RetryMaxAttempts,
			RetryInitialDelay:    cfg.Execution.RetryInitialDelay,
		}, clk, executionDI.GetJournal(sr), log)
	})

	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)

		// Settlement is optional; dry-run and pre-positioned deployments
		// run without a chain RPC.
		var settle *settlementApp.SettlementService
		if cfg.Chain.RPCURL != "" {
			settle = settlementDI.GetSettlementService(sr)
		}

		executor, err := app.NewExecutor(
			app.ExecutorConfig{
				LiveMode:          cfg.Execution.LiveMode,
				DryRun:            cfg.Execution.DryRun,
				QuoteCurrency:     cfg.Execution.QuoteCurrency,
				Network:           cfg.Chain.Network,
				SlippageTolerance: cfg.Execution.SlippageToleranceDecimal(),
				MaxTradeAmount:    cfg.Execution.MaxTradeAmountDecimal(),
				RetryMaxAttempts:  cfg.Execution.RetryMaxAttempts,
				RetryInitialDelay: cfg.Execution.RetryInitialDelay,
				Wallet: domain.Wallet{
					Address:    cfg.Wallet.Address,
					PrivateKey: cfg.Wallet.PrivateKey,
				},
			},
			exchangeDI.GetGatewayRegistry(sr),
			settle,
			executionDI.GetAnalyzer(sr),
			executionDI.GetWaiters(sr),
			executionDI.GetJournal(sr),
			executionDI.GetNotifier(sr),
			clk,
			log,
		)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	return nil
}

// Startup logs the execution mode.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()

	// Force construction so misconfiguration surfaces at startup, not on
	// the first execution.
	executionDI.GetExecutor(mono.Services())

	mono.Logger().Info(ctx, "execution module started",
		"live_mode", cfg.Execution.LiveMode,
		"dry_run", cfg.Execution.DryRun,
		"wallet_configured", cfg.Wallet.Configured(),
		"journal_driver", cfg.Journal.Driver)
	return nil
}
