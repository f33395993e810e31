// Package app contains application services and port definitions for the exchange context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/business/exchange/domain"
)

// Gateway abstracts one trading venue. Implementations must be safe for
// concurrent use; any call may fail with a RATE_LIMIT_EXCEEDED error, which
// callers are expected to retry with backoff.
type Gateway interface {
	// Venue returns the venue identifier this gateway serves.
	Venue() string

	// FetchTicker retrieves the current bid/ask for a symbol.
	FetchTicker(ctx context.Context, symbol string) (*domain.Ticker, error)

	// FetchTradingFees retrieves the venue's maker/taker fee rates.
	FetchTradingFees(ctx context.Context) (*domain.TradingFees, error)

	// FetchCurrencyInfo retrieves withdrawal metadata for a token.
	FetchCurrencyInfo(ctx context.Context, token string) (*domain.CurrencyInfo, error)

	// FetchBalance retrieves the free balance of an asset.
	FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// CreateMarketOrder places a market order for the given base amount.
	CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, amount decimal.Decimal) (*domain.Order, error)

	// FetchDepositAddress retrieves the venue's deposit address for a token.
	FetchDepositAddress(ctx context.Context, token, network string) (*domain.DepositAddress, error)

	// Withdraw submits a withdrawal to an external address.
	Withdraw(ctx context.Context, token string, amount decimal.Decimal, address, network string) (*domain.Withdrawal, error)

	// FetchWithdrawal retrieves the current status of a withdrawal.
	// A WITHDRAWAL_NOT_FOUND error can be transient on venues whose
	// ledgers lag behind the submit call.
	FetchWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error)
}
