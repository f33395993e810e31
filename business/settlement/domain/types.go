// Package domain contains the core domain types for the settlement context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token identifies an ERC-20 token on the settlement chain.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Receipt is the mined state of an on-chain transfer.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Reverted    bool
}

// Confirmations returns how many blocks deep the receipt is at the given
// chain head. The mined block itself counts as one confirmation.
func (r *Receipt) Confirmations(head uint64) uint64 {
	if head < r.BlockNumber {
		return 0
	}
	return head - r.BlockNumber + 1
}

// GasPrice represents a gas price quote.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       new(big.Int).Set(wei),
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei for display.
func (g *GasPrice) Gwei() float64 {
	f := new(big.Float).SetInt(g.Wei)
	f.Quo(f, big.NewFloat(1e9))
	gwei, _ := f.Float64()
	return gwei
}
