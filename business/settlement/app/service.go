// Package app contains application services and port definitions for the settlement context.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// SettlementService coordinates on-chain transfers and confirmation queries.
type SettlementService struct {
	chain ChainGateway
	quote domain.Token
}

// NewSettlementService creates a new SettlementService. The quote token is
// the chain-side representation of the trading quote currency.
func NewSettlementService(chain ChainGateway, quote domain.Token) *SettlementService {
	return &SettlementService{chain: chain, quote: quote}
}

// QuoteToken returns the settlement chain's quote token.
func (s *SettlementService) QuoteToken() domain.Token {
	return s.quote
}

// Transfer moves tokens from the wallet to an address on-chain.
func (s *SettlementService) Transfer(ctx context.Context, token domain.Token, to string, amount decimal.Decimal) (string, error) {
	return s.chain.Transfer(ctx, token, to, amount)
}

// Confirmations returns how many confirmations a transaction has. A zero
// count with mined=false means the transaction is still in the mempool.
func (s *SettlementService) Confirmations(ctx context.Context, txHash string) (uint64, bool, error) {
	receipt, err := s.chain.TransactionReceipt(ctx, txHash)
	if err != nil {
		return 0, false, err
	}
	if receipt == nil {
		return 0, false, nil
	}
	if receipt.Reverted {
		return 0, false, apperror.New(apperror.CodeExternalOperationFailed,
			apperror.WithContext("transaction reverted: "+txHash))
	}

	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return 0, false, err
	}
	return receipt.Confirmations(head), true, nil
}

// WalletBalances returns the wallet's quote-token and native balances.
func (s *SettlementService) WalletBalances(ctx context.Context, address string) (token, native decimal.Decimal, err error) {
	token, err = s.chain.TokenBalance(ctx, s.quote, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	native, err = s.chain.NativeBalance(ctx, address)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return token, native, nil
}

// GasPrice returns the current gas price quote.
func (s *SettlementService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.chain.GasPrice(ctx)
}
