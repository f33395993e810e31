// Package app contains application services and port definitions for the settlement context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/business/settlement/domain"
)

// ChainGateway defines the interface to the settlement chain.
type ChainGateway interface {
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)

	// TransactionReceipt returns the receipt for a transaction, or
	// (nil, nil) while the transaction is still unmined.
	TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error)

	// TokenBalance returns an address's balance of a token, in token units.
	TokenBalance(ctx context.Context, token domain.Token, address string) (decimal.Decimal, error)

	// NativeBalance returns an address's native coin balance for gas.
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)

	// Transfer signs and broadcasts a token transfer from the configured
	// wallet and returns the transaction hash.
	Transfer(ctx context.Context, token domain.Token, to string, amount decimal.Decimal) (string, error)

	// GasPrice returns the current gas price quote.
	GasPrice(ctx context.Context) (*domain.GasPrice, error)
}
