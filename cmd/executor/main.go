// Package main is the entry point for the arbitrage executor: a one-shot
// command that runs a detected opportunity through the execution saga.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/business/exchange"
	exchangeDI "github.com/fd1az/arbitrage-executor/business/exchange/di"
	"github.com/fd1az/arbitrage-executor/business/execution"
	executionDI "github.com/fd1az/arbitrage-executor/business/execution/di"
	executionDomain "github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/business/settlement"
	"github.com/fd1az/arbitrage-executor/internal/apm"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/health"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/metrics"
	"github.com/fd1az/arbitrage-executor/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type opportunityFlags struct {
	token         string
	tokenAddress  string
	tokenDecimals uint
	symbol        string
	buyVenue      string
	sellVenue     string
	buyPrice      string
	sellPrice     string
	amount        string
	confirm       bool
	dryRun        bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")

	var opp opportunityFlags
	flag.StringVar(&opp.token, "token", "", "Base token symbol, e.g. TOK")
	flag.StringVar(&opp.tokenAddress, "token-address", "", "Token contract address on the settlement chain")
	flag.UintVar(&opp.tokenDecimals, "token-decimals", 18, "Token decimals on the settlement chain")
	flag.StringVar(&opp.symbol, "symbol", "", "Trading pair, e.g. TOK/USDT")
	flag.StringVar(&opp.buyVenue, "buy-venue", "", "Venue to buy on")
	flag.StringVar(&opp.sellVenue, "sell-venue", "", "Venue to sell on")
	flag.StringVar(&opp.buyPrice, "buy-price", "", "Detected buy price")
	flag.StringVar(&opp.sellPrice, "sell-price", "", "Detected sell price")
	flag.StringVar(&opp.amount, "amount", "", "Notional to deploy, in quote currency")
	flag.BoolVar(&opp.confirm, "confirm", false, "Confirm execution with real funds (required in live mode)")
	flag.BoolVar(&opp.dryRun, "dry-run", false, "Simulate the execution without any external call")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-executor %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, opp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, oppFlags opportunityFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if oppFlags.dryRun {
		cfg.Execution.DryRun = true
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting arbitrage executor",
		"version", version,
		"environment", cfg.App.Environment,
		"live_mode", cfg.Execution.LiveMode,
		"dry_run", cfg.Execution.DryRun,
	)

	// Observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Modules in dependency order: execution pulls services from both.
	modules := []monolith.Module{
		&exchange.Module{},
		&settlement.Module{},
		&execution.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	registry := exchangeDI.GetGatewayRegistry(mono.Services())
	defer registry.Close()

	// Health endpoints report execution mode and venue registry size.
	healthServer := health.NewServer(8081, version)
	healthServer.RegisterCheck("mode", func(ctx context.Context) (bool, string) {
		if cfg.Execution.LiveMode {
			return true, "live"
		}
		return true, "test"
	})
	healthServer.RegisterCheck("venues", func(ctx context.Context) (bool, string) {
		venues := registry.Venues()
		return len(venues) > 0, fmt.Sprintf("%d configured", len(venues))
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	opp, req, err := buildRequest(cfg, oppFlags)
	if err != nil {
		return err
	}

	executor := executionDI.GetExecutor(mono.Services())
	result, err := executor.Execute(ctx, opp, req)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	mode := "live"
	if result.Simulated {
		mode = "simulated"
	}
	fmt.Printf("execution completed (%s)\n", mode)
	fmt.Printf("  tokens bought:  %s %s\n", result.TokensBought, opp.Token)
	fmt.Printf("  proceeds:       %s %s\n", result.Proceeds, cfg.Execution.QuoteCurrency)
	fmt.Printf("  profit:         %s %s (%s%%)\n", result.Profit, cfg.Execution.QuoteCurrency, result.ProfitPercent.StringFixed(2))
	fmt.Printf("  elapsed:        %s\n", result.Elapsed)
	for _, h := range result.TxHashes {
		fmt.Printf("  tx:             %s\n", h)
	}
	return nil
}

func buildRequest(cfg *config.Config, f opportunityFlags) (*executionDomain.Opportunity, executionDomain.Request, error) {
	var req executionDomain.Request

	buyPrice, err := decimal.NewFromString(f.buyPrice)
	if err != nil {
		return nil, req, fmt.Errorf("invalid -buy-price %q: %w", f.buyPrice, err)
	}
	sellPrice, err := decimal.NewFromString(f.sellPrice)
	if err != nil {
		return nil, req, fmt.Errorf("invalid -sell-price %q: %w", f.sellPrice, err)
	}

	symbol := f.symbol
	if symbol == "" && f.token != "" {
		symbol = f.token + "/" + cfg.Execution.QuoteCurrency
	}

	opp := executionDomain.NewOpportunity(f.token, symbol, f.buyVenue, f.sellVenue, buyPrice, sellPrice)
	opp.TokenAddress = f.tokenAddress
	opp.TokenDecimals = uint8(f.tokenDecimals)

	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return nil, req, fmt.Errorf("invalid -amount %q: %w", f.amount, err)
	}

	req = executionDomain.Request{Amount: amount, Confirmed: f.confirm}
	return opp, req, nil
}
