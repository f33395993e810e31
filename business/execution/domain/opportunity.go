// Package domain contains the core domain types for the execution context.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

// OpportunityStatus is the lifecycle state of a detected opportunity.
type OpportunityStatus string

const (
	StatusDetected  OpportunityStatus = "detected"
	StatusExecuting OpportunityStatus = "executing"
	StatusCompleted OpportunityStatus = "completed"
	StatusFailed    OpportunityStatus = "failed"
)

// Opportunity is a detected cross-venue price discrepancy. Immutable once
// execution starts except for Status, which the executor owns exclusively.
type Opportunity struct {
	ID    string
	Token string // base token symbol, e.g. "TOK"
	// TokenAddress and TokenDecimals describe the token's contract on the
	// settlement chain; supplied by the detector's token catalog and only
	// required for the wallet-transfer variant.
	TokenAddress  string
	TokenDecimals uint8
	Symbol        string // trading pair, e.g. "TOK/USDT"
	BuyVenue      string
	SellVenue     string
	BuyPrice      decimal.Decimal
	SellPrice     decimal.Decimal
	SpreadPercent decimal.Decimal
	// Confidence and RecommendedAmount are advisory detector outputs; the
	// executor carries them but never gates on them.
	Confidence        decimal.Decimal
	RecommendedAmount decimal.Decimal
	Status            OpportunityStatus
	DetectedAt        time.Time
}

// NewOpportunity creates a detected opportunity with a fresh id.
func NewOpportunity(token, symbol, buyVenue, sellVenue string, buyPrice, sellPrice decimal.Decimal) *Opportunity {
	spread := decimal.Zero
	if buyPrice.IsPositive() {
		spread = sellPrice.Sub(buyPrice).Div(buyPrice).Mul(decimal.NewFromInt(100))
	}
	return &Opportunity{
		ID:            uuid.NewString(),
		Token:         token,
		Symbol:        symbol,
		BuyVenue:      buyVenue,
		SellVenue:     sellVenue,
		BuyPrice:      buyPrice,
		SellPrice:     sellPrice,
		SpreadPercent: spread,
		Status:        StatusDetected,
		DetectedAt:    time.Now(),
	}
}

// Validate checks the opportunity is executable.
func (o *Opportunity) Validate() error {
	if o == nil {
		return apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("nil opportunity"))
	}
	if !o.BuyPrice.IsPositive() {
		return apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("buy price must be positive"))
	}
	if !o.SellPrice.IsPositive() {
		return apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("sell price must be positive"))
	}
	if o.BuyVenue == "" || o.SellVenue == "" {
		return apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("both venues are required"))
	}
	return nil
}

// Request is the caller's instruction to execute an opportunity.
type Request struct {
	// Amount is the notional to deploy, in quote currency.
	Amount decimal.Decimal
	// Confirmed is the human-in-the-loop gate required in live mode.
	Confirmed bool
}

// Wallet is the settlement wallet, received decrypted for the duration of
// one execution. It must not be persisted outside that scope.
type Wallet struct {
	Address    string
	PrivateKey string
}

// Configured reports whether the wallet can sign transfers.
func (w *Wallet) Configured() bool {
	return w != nil && w.Address != "" && w.PrivateKey != ""
}
