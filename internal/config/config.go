// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Exchanges ExchangesConfig `mapstructure:"exchanges"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ExecutionConfig holds saga execution settings.
type ExecutionConfig struct {
	LiveMode          bool    `mapstructure:"live_mode"`
	DryRun            bool    `mapstructure:"dry_run"`
	QuoteCurrency     string  `mapstructure:"quote_currency"`
	SlippageTolerance float64 `mapstructure:"slippage_tolerance"` // percent
	MaxTradeAmount    float64 `mapstructure:"max_trade_amount"`   // quote units

	// Blockchain confirmation wait
	MinConfirmations     uint64        `mapstructure:"min_confirmations"`
	ConfirmationInterval time.Duration `mapstructure:"confirmation_interval"`
	ConfirmationTimeout  time.Duration `mapstructure:"confirmation_timeout"`

	// Exchange withdrawal wait
	WithdrawalInterval time.Duration `mapstructure:"withdrawal_interval"`
	WithdrawalTimeout  time.Duration `mapstructure:"withdrawal_timeout"`

	// Exchange deposit-credit wait
	DepositInterval time.Duration `mapstructure:"deposit_interval"`
	DepositTimeout  time.Duration `mapstructure:"deposit_timeout"`

	// Retry combinator
	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`

	// Fallback fee constants for the profitability analyzer. Used when the
	// venue cannot report its own rates; conservative by intent.
	DefaultTradingFeeRate float64 `mapstructure:"default_trading_fee_rate"` // fraction, e.g. 0.001
	DefaultWithdrawalFee  float64 `mapstructure:"default_withdrawal_fee"`   // quote units
	GasFeeEstimate        float64 `mapstructure:"gas_fee_estimate"`         // quote units per transfer
	HeuristicMinSpread    float64 `mapstructure:"heuristic_min_spread"`     // percent
}

// ExchangesConfig holds per-venue exchange API configuration.
type ExchangesConfig struct {
	Venues []VenueConfig `mapstructure:"venues"`
}

// VenueConfig holds one exchange venue's API settings.
type VenueConfig struct {
	Name              string `mapstructure:"name"`
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	APISecret         string `mapstructure:"api_secret"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// ChainConfig holds settlement chain configuration.
type ChainConfig struct {
	RPCURL        string `mapstructure:"rpc_url"`
	ChainID       uint64 `mapstructure:"chain_id"`
	QuoteToken    string `mapstructure:"quote_token"`    // quote token contract address
	TokenDecimals uint8  `mapstructure:"token_decimals"` // quote token decimals on this chain
	Network       string `mapstructure:"network"`        // venue-side network identifier, e.g. "BSC"
	TransferGas   uint64 `mapstructure:"transfer_gas"`   // gas limit for a token transfer
	MaxGasPrice   string `mapstructure:"max_gas_price"`  // wei, safety ceiling
}

// QuoteTokenAddress returns the quote token contract as common.Address.
func (c *ChainConfig) QuoteTokenAddress() common.Address {
	return common.HexToAddress(c.QuoteToken)
}

// WalletConfig holds the settlement wallet. The private key arrives decrypted
// from the secret store; when empty the executor falls back to the
// pre-positioned-balance variant.
type WalletConfig struct {
	Address    string `mapstructure:"address"`
	PrivateKey string `mapstructure:"private_key"`
}

// Configured reports whether a settlement wallet is available.
func (c *WalletConfig) Configured() bool {
	return c.Address != "" && c.PrivateKey != ""
}

// JournalConfig selects the step journal backend.
type JournalConfig struct {
	Driver      string `mapstructure:"driver"` // "memory" or "postgres"
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// TelegramConfig holds notifier settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// SlippageToleranceDecimal returns the slippage tolerance as decimal percent.
func (c *ExecutionConfig) SlippageToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageTolerance)
}

// MaxTradeAmountDecimal returns the max trade amount as decimal.
func (c *ExecutionConfig) MaxTradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeAmount)
}

// DefaultTradingFeeRateDecimal returns the fallback fee rate as decimal.
func (c *ExecutionConfig) DefaultTradingFeeRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultTradingFeeRate)
}

// DefaultWithdrawalFeeDecimal returns the fallback withdrawal fee as decimal.
func (c *ExecutionConfig) DefaultWithdrawalFeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultWithdrawalFee)
}

// GasFeeEstimateDecimal returns the per-transfer gas estimate as decimal.
func (c *ExecutionConfig) GasFeeEstimateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.GasFeeEstimate)
}

// HeuristicMinSpreadDecimal returns the degraded-mode spread gate as decimal percent.
func (c *ExecutionConfig) HeuristicMinSpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.HeuristicMinSpread)
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Execution
	v.BindEnv("execution.live_mode", "ARB_LIVE_MODE")
	v.BindEnv("execution.dry_run", "ARB_DRY_RUN")
	v.BindEnv("execution.slippage_tolerance", "ARB_SLIPPAGE_TOLERANCE")
	v.BindEnv("execution.max_trade_amount", "ARB_MAX_TRADE_AMOUNT")
	v.BindEnv("execution.min_confirmations", "ARB_MIN_CONFIRMATIONS")

	// Chain
	v.BindEnv("chain.rpc_url", "ARB_CHAIN_RPC_URL", "CHAIN_RPC_URL")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("chain.quote_token", "ARB_QUOTE_TOKEN")

	// Wallet
	v.BindEnv("wallet.address", "ARB_WALLET_ADDRESS", "WALLET_ADDRESS")
	v.BindEnv("wallet.private_key", "ARB_WALLET_PRIVATE_KEY", "WALLET_PRIVATE_KEY")

	// Journal
	v.BindEnv("journal.driver", "ARB_JOURNAL_DRIVER")
	v.BindEnv("journal.postgres_dsn", "ARB_JOURNAL_POSTGRES_DSN", "DATABASE_URL")

	// Telegram
	v.BindEnv("telegram.enabled", "ARB_TELEGRAM_ENABLED")
	v.BindEnv("telegram.bot_token", "ARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbitrage-executor")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Execution defaults
	v.SetDefault("execution.live_mode", false)
	v.SetDefault("execution.dry_run", false)
	v.SetDefault("execution.quote_currency", "USDT")
	v.SetDefault("execution.slippage_tolerance", 0.5)
	v.SetDefault("execution.max_trade_amount", 1000.0)
	v.SetDefault("execution.min_confirmations", 1) // fast-finality chain; tune per deployment
	v.SetDefault("execution.confirmation_interval", "3s")
	v.SetDefault("execution.confirmation_timeout", "600s")
	v.SetDefault("execution.withdrawal_interval", "10s")
	v.SetDefault("execution.withdrawal_timeout", "1800s")
	v.SetDefault("execution.deposit_interval", "30s")
	v.SetDefault("execution.deposit_timeout", "1800s")
	v.SetDefault("execution.retry_max_attempts", 3)
	v.SetDefault("execution.retry_initial_delay", "2s")
	v.SetDefault("execution.default_trading_fee_rate", 0.001)
	v.SetDefault("execution.default_withdrawal_fee", 5.0)
	v.SetDefault("execution.gas_fee_estimate", 0.5)
	v.SetDefault("execution.heuristic_min_spread", 1.0)

	// Chain defaults (BSC mainnet, BEP-20 USDT)
	v.SetDefault("chain.rpc_url", "https://bsc-dataseed1.binance.org/")
	v.SetDefault("chain.chain_id", 56)
	v.SetDefault("chain.quote_token", "0x55d398326f99059fF775485246999027B3197955")
	v.SetDefault("chain.token_decimals", 18)
	v.SetDefault("chain.network", "BSC")
	v.SetDefault("chain.transfer_gas", 65000)
	v.SetDefault("chain.max_gas_price", "20000000000") // 20 gwei

	// Journal defaults
	v.SetDefault("journal.driver", "memory")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbitrage-executor")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Execution.SlippageTolerance < 0 {
		return fmt.Errorf("execution.slippage_tolerance must be >= 0")
	}
	if c.Execution.MinConfirmations == 0 {
		return fmt.Errorf("execution.min_confirmations must be >= 1")
	}
	if c.Execution.LiveMode && c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required in live mode")
	}
	if !common.IsHexAddress(c.Chain.QuoteToken) {
		return fmt.Errorf("invalid chain.quote_token: %s", c.Chain.QuoteToken)
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("invalid wallet.address: %s", c.Wallet.Address)
	}
	for _, venue := range c.Exchanges.Venues {
		if venue.Name == "" {
			return fmt.Errorf("exchange venue with empty name")
		}
		if venue.BaseURL == "" {
			return fmt.Errorf("exchange venue %s: base_url is required", venue.Name)
		}
	}
	if c.Journal.Driver == "postgres" && c.Journal.PostgresDSN == "" {
		return fmt.Errorf("journal.postgres_dsn is required for the postgres driver")
	}
	return nil
}
