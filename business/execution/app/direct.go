package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/retry"
)

// runDirect executes the pre-positioned-balance variant: no wallet
// transfers, just a slippage check against current quotes followed by a
// market buy and a market sell. Used when no settlement wallet is
// configured.
func (e *Executor) runDirect(ctx context.Context, opp *domain.Opportunity, req domain.Request, buy, sell exchangeApp.Gateway) (*domain.Settlement, error) {
	live := e.liveFunds()

	// Profitability gate, shared with the full saga.
	assessment := e.analyzer.Assess(ctx, opp, req.Amount, buy, sell)
	if !assessment.Profitable {
		return nil, apperror.New(apperror.CodeNotProfitable,
			apperror.WithStep(string(domain.StepProfitabilityCheck)),
			apperror.WithContext(fmt.Sprintf("net_profit=%s heuristic=%t",
				assessment.NetProfit, assessment.HeuristicApplied)))
	}
	e.journalStep(ctx, opp.ID, domain.StepProfitabilityCheck, domain.StepDone,
		fmt.Sprintf("net_profit=%s heuristic=%t", assessment.NetProfit, assessment.HeuristicApplied), live)

	// Slippage check: reject if either side moved beyond tolerance since
	// detection.
	step := domain.StepSlippageCheck
	buyTicker, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Ticker, error) {
		return buy.FetchTicker(ctx, opp.Symbol)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	sellTicker, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Ticker, error) {
		return sell.FetchTicker(ctx, opp.Symbol)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}

	buyMove := movementPercent(opp.BuyPrice, buyTicker.Ask)
	sellMove := movementPercent(opp.SellPrice, sellTicker.Bid)
	if buyMove.GreaterThan(e.config.SlippageTolerance) || sellMove.GreaterThan(e.config.SlippageTolerance) {
		return nil, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithStep(string(step)),
			apperror.WithContext(fmt.Sprintf(
				"buy moved %s%% (detected %s, now %s), sell moved %s%% (detected %s, now %s), tolerance %s%%",
				buyMove, opp.BuyPrice, buyTicker.Ask,
				sellMove, opp.SellPrice, sellTicker.Bid,
				e.config.SlippageTolerance)))
	}
	e.journalStep(ctx, opp.ID, step, domain.StepDone,
		fmt.Sprintf("buy_move=%s%% sell_move=%s%% tolerance=%s%%",
			buyMove, sellMove, e.config.SlippageTolerance), live)

	// Market buy and sell; balances are assumed pre-positioned.
	tokenAmount := assessment.TokenAmount

	step = domain.StepBuyOrder
	buyOrder, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Order, error) {
		return buy.CreateMarketOrder(ctx, opp.Symbol, exchangeDomain.SideBuy, tokenAmount)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	filled := buyOrder.Filled
	if !filled.IsPositive() {
		filled = tokenAmount
	}
	e.journalStep(ctx, opp.ID, step, domain.StepDone,
		fmt.Sprintf("order=%s filled=%s", buyOrder.ID, filled), live)

	step = domain.StepSellOrder
	sellOrder, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Order, error) {
		return sell.CreateMarketOrder(ctx, opp.Symbol, exchangeDomain.SideSell, filled)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	proceeds := sellOrder.Cost
	if !proceeds.IsPositive() {
		proceeds = filled.Mul(opp.SellPrice)
	}
	e.journalStep(ctx, opp.ID, step, domain.StepDone,
		fmt.Sprintf("order=%s proceeds=%s", sellOrder.ID, proceeds), live)

	profit := proceeds.Sub(req.Amount)
	profitPercent := decimal.Zero
	if req.Amount.IsPositive() {
		profitPercent = profit.Div(req.Amount).Mul(oneHundred)
	}
	e.journalStep(ctx, opp.ID, domain.StepCompleted, domain.StepDone,
		fmt.Sprintf("profit=%s profit_percent=%s", profit, profitPercent), live)

	return &domain.Settlement{
		OpportunityID: opp.ID,
		TokensBought:  filled,
		Proceeds:      proceeds,
		Profit:        profit,
		ProfitPercent: profitPercent,
	}, nil
}

// movementPercent returns the absolute percentage move from a detection
// price to the current quote.
func movementPercent(detected, current decimal.Decimal) decimal.Decimal {
	if !detected.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(detected).Div(detected).Mul(oneHundred).Abs()
}
