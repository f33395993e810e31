// Package domain contains the core domain types for the exchange context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of a market order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Ticker is a venue's current quote for a symbol.
type Ticker struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Timestamp time.Time
}

// TradingFees holds a venue's fee rates as fractions (0.001 = 0.1%).
type TradingFees struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// CurrencyInfo holds per-token withdrawal metadata for a venue.
type CurrencyInfo struct {
	Token         string
	WithdrawalFee decimal.Decimal // in units of the token
	Network       string
}

// Order is the venue's view of a placed order.
type Order struct {
	ID     string
	Symbol string
	Side   OrderSide
	Amount decimal.Decimal // requested base quantity
	Filled decimal.Decimal // filled base quantity; zero if the venue omits it
	Cost   decimal.Decimal // total quote spent/received; zero if omitted
}

// DepositAddress is a venue deposit address for a token on a network.
type DepositAddress struct {
	Token   string
	Network string
	Address string
	Tag     string
}

// Withdrawal is the venue's view of a submitted withdrawal.
type Withdrawal struct {
	ID     string
	Token  string
	Amount decimal.Decimal
	Status string
	TxHash string
}

// Withdrawal status strings vary per venue; these sets define the terminal
// states the waiters recognize. Anything else keeps polling.
var (
	withdrawalSuccessStates = map[string]struct{}{
		"ok": {}, "complete": {}, "completed": {}, "success": {},
	}
	withdrawalFailureStates = map[string]struct{}{
		"failed": {}, "canceled": {}, "cancelled": {},
	}
)

// Succeeded reports whether the withdrawal reached a terminal success state.
func (w *Withdrawal) Succeeded() bool {
	_, ok := withdrawalSuccessStates[w.Status]
	return ok
}

// Failed reports whether the withdrawal reached a terminal failure state.
func (w *Withdrawal) Failed() bool {
	_, ok := withdrawalFailureStates[w.Status]
	return ok
}
