package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Step names the saga's states in execution order.
type Step string

const (
	StepProfitabilityCheck           Step = "profitability_check"
	StepFundBuyExchange              Step = "fund_buy_exchange"
	StepAwaitSettlementConfirmation  Step = "await_settlement_confirmation"
	StepAwaitBuyExchangeCredit       Step = "await_buy_exchange_credit"
	StepBuyOrder                     Step = "buy_order"
	StepWithdrawFromBuyExchange      Step = "withdraw_from_buy_exchange"
	StepAwaitBuyWithdrawalCompletion Step = "await_buy_withdrawal_completion"
	StepAwaitWithdrawalConfirmation  Step = "await_withdrawal_confirmation"
	StepFundSellExchange             Step = "fund_sell_exchange"
	StepAwaitTransferConfirmation    Step = "await_transfer_confirmation"
	StepAwaitSellExchangeCredit      Step = "await_sell_exchange_credit"
	StepSellOrder                    Step = "sell_order"
	StepWithdrawProfit               Step = "withdraw_profit"
	StepAwaitProfitWithdrawal        Step = "await_profit_withdrawal_completion"
	StepAwaitProfitConfirmation      Step = "await_profit_confirmation"
	StepCompleted                    Step = "completed"
)

// StepSlippageCheck replaces the transfer steps in the pre-positioned
// balance variant.
const StepSlippageCheck Step = "slippage_check"

// StepVenueResolution tags failures that happen before any saga step runs,
// while the executor looks up venue gateways.
const StepVenueResolution Step = "venue_resolution"

// SagaSteps lists the full-transfer saga's steps in order.
var SagaSteps = []Step{
	StepProfitabilityCheck,
	StepFundBuyExchange,
	StepAwaitSettlementConfirmation,
	StepAwaitBuyExchangeCredit,
	StepBuyOrder,
	StepWithdrawFromBuyExchange,
	StepAwaitBuyWithdrawalCompletion,
	StepAwaitWithdrawalConfirmation,
	StepFundSellExchange,
	StepAwaitTransferConfirmation,
	StepAwaitSellExchangeCredit,
	StepSellOrder,
	StepWithdrawProfit,
	StepAwaitProfitWithdrawal,
	StepAwaitProfitConfirmation,
	StepCompleted,
}

// StepStatus is the journal status of one step poll or transition.
type StepStatus string

const (
	StepStarted    StepStatus = "started"
	StepSubmitted  StepStatus = "submitted"
	StepConfirming StepStatus = "confirming"
	StepChecking   StepStatus = "checking"
	StepDone       StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// StepRecord is one append-only journal entry. Records are ordered by
// creation time and form the saga's audit trail.
type StepRecord struct {
	OpportunityID string
	Step          Step
	Status        StepStatus
	Details       string
	// Live marks steps that touched real funds.
	Live      bool
	Timestamp time.Time
}

// Assessment is the profitability analyzer's output. Computed fresh per
// execution attempt and never persisted.
type Assessment struct {
	TokenAmount      decimal.Decimal
	GrossRevenue     decimal.Decimal
	BuyFee           decimal.Decimal
	SellFee          decimal.Decimal
	WithdrawalFee    decimal.Decimal
	GasFee           decimal.Decimal
	NetProfit        decimal.Decimal
	BreakEvenSpread  decimal.Decimal // percent spread that would have broken even
	Profitable       bool
	HeuristicApplied bool // fee fetch failed; fell back to min-spread heuristic
}

// Settlement is the final result of a completed execution.
type Settlement struct {
	OpportunityID string
	Simulated     bool
	TokensBought  decimal.Decimal
	Proceeds      decimal.Decimal
	Profit        decimal.Decimal
	ProfitPercent decimal.Decimal
	TxHashes      []string
	Elapsed       time.Duration
}
