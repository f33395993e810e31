package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	settlementDomain "github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/retry"
)

// runFullSaga drives the wallet-transfer saga: fund the buy venue, buy,
// withdraw to the wallet, fund the sell venue, sell, withdraw proceeds.
// Steps run strictly in order; any failure short-circuits the rest and no
// compensating transaction is attempted. Funds may be stranded mid-sequence
// and require manual reconciliation.
func (e *Executor) runFullSaga(ctx context.Context, opp *domain.Opportunity, req domain.Request, buy, sell exchangeApp.Gateway) (*domain.Settlement, error) {
	live := e.liveFunds()
	wallet := e.config.Wallet
	quote := e.settle.QuoteToken()
	var txHashes []string

	// 1. Profitability gate.
	assessment := e.analyzer.Assess(ctx, opp, req.Amount, buy, sell)
	if !assessment.Profitable {
		return nil, apperror.New(apperror.CodeNotProfitable,
			apperror.WithStep(string(domain.StepProfitabilityCheck)),
			apperror.WithContext(fmt.Sprintf("net_profit=%s heuristic=%t",
				assessment.NetProfit, assessment.HeuristicApplied)))
	}
	e.journalStep(ctx, opp.ID, domain.StepProfitabilityCheck, domain.StepDone,
		fmt.Sprintf("net_profit=%s break_even_spread=%s heuristic=%t",
			assessment.NetProfit, assessment.BreakEvenSpread, assessment.HeuristicApplied), live)

	// 2. Fund the buy venue. The balance snapshot for the later credit wait
	// must precede the transfer.
	step := domain.StepFundBuyExchange

	initialBuyBalance, err := retry.Do(ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return buy.FetchBalance(ctx, e.config.QuoteCurrency)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}

	buyDeposit, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.DepositAddress, error) {
		return buy.FetchDepositAddress(ctx, e.config.QuoteCurrency, e.config.Network)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}

	fundTx, err := e.settle.Transfer(ctx, quote, buyDeposit.Address, req.Amount)
	if err != nil {
		return nil, stepError(err, step)
	}
	txHashes = append(txHashes, fundTx)
	e.journalStep(ctx, opp.ID, step, domain.StepSubmitted,
		fmt.Sprintf("tx=%s to=%s amount=%s", fundTx, buyDeposit.Address, req.Amount), live)

	// 3. Wait for the funding transfer to confirm.
	step = domain.StepAwaitSettlementConfirmation
	if err := e.waiters.AwaitConfirmation(ctx, e.settle, opp.ID, step, fundTx, live); err != nil {
		return nil, stepError(err, step)
	}

	// 4. Wait for the buy venue to credit the deposit.
	step = domain.StepAwaitBuyExchangeCredit
	if err := e.waiters.AwaitDeposit(ctx, buy, opp.ID, step, e.config.QuoteCurrency, initialBuyBalance, req.Amount, live); err != nil {
		return nil, stepError(err, step)
	}

	// 5. Market buy.
	step = domain.StepBuyOrder
	buyOrder, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Order, error) {
		return buy.CreateMarketOrder(ctx, opp.Symbol, exchangeDomain.SideBuy, assessment.TokenAmount)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	filled := buyOrder.Filled
	if !filled.IsPositive() {
		// Venue omitted the fill; assume the full requested quantity.
		filled = assessment.TokenAmount
	}
	e.journalStep(ctx, opp.ID, step, domain.StepDone,
		fmt.Sprintf("order=%s filled=%s", buyOrder.ID, filled), live)

	// 6. Withdraw the bought tokens to the wallet.
	step = domain.StepWithdrawFromBuyExchange
	buyWithdrawal, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Withdrawal, error) {
		return buy.Withdraw(ctx, opp.Token, filled, wallet.Address, e.config.Network)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	e.journalStep(ctx, opp.ID, step, domain.StepSubmitted,
		fmt.Sprintf("withdrawal=%s amount=%s", buyWithdrawal.ID, filled), live)

	// 7. Wait for the withdrawal to complete, yielding its tx hash.
	step = domain.StepAwaitBuyWithdrawalCompletion
	withdrawTx, err := e.waiters.AwaitWithdrawal(ctx, buy, opp.ID, step, buyWithdrawal.ID, live)
	if err != nil {
		return nil, stepError(err, step)
	}

	// 8. Confirm the withdrawal on-chain when the venue reported a hash.
	step = domain.StepAwaitWithdrawalConfirmation
	if withdrawTx != "" {
		txHashes = append(txHashes, withdrawTx)
		if err := e.waiters.AwaitConfirmation(ctx, e.settle, opp.ID, step, withdrawTx, live); err != nil {
			return nil, stepError(err, step)
		}
	} else {
		e.journalStep(ctx, opp.ID, step, domain.StepDone, "venue reported no tx hash; skipping chain wait", live)
	}

	// 9. Fund the sell venue with the tokens.
	step = domain.StepFundSellExchange

	tradedToken := settlementDomain.Token{
		Address:  common.HexToAddress(opp.TokenAddress),
		Symbol:   opp.Token,
		Decimals: opp.TokenDecimals,
	}

	initialSellBalance, err := retry.Do(ctx, func(ctx context.Context) (decimal.Decimal, error) {
		return sell.FetchBalance(ctx, opp.Token)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}

	sellDeposit, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.DepositAddress, error) {
		return sell.FetchDepositAddress(ctx, opp.Token, e.config.Network)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}

	sellFundTx, err := e.settle.Transfer(ctx, tradedToken, sellDeposit.Address, filled)
	if err != nil {
		return nil, stepError(err, step)
	}
	txHashes = append(txHashes, sellFundTx)
	e.journalStep(ctx, opp.ID, step, domain.StepSubmitted,
		fmt.Sprintf("tx=%s to=%s amount=%s", sellFundTx, sellDeposit.Address, filled), live)

	// 10. Wait for the token transfer to confirm.
	step = domain.StepAwaitTransferConfirmation
	if err := e.waiters.AwaitConfirmation(ctx, e.settle, opp.ID, step, sellFundTx, live); err != nil {
		return nil, stepError(err, step)
	}

	// 11. Wait for the sell venue to credit the tokens.
	step = domain.StepAwaitSellExchangeCredit
	if err := e.waiters.AwaitDeposit(ctx, sell, opp.ID, step, opp.Token, initialSellBalance, filled, live); err != nil {
		return nil, stepError(err, step)
	}

	// 12. Market sell.
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

	// 13. Withdraw the proceeds to the wallet.
	step = domain.StepWithdrawProfit
	profitWithdrawal, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Withdrawal, error) {
		return sell.Withdraw(ctx, e.config.QuoteCurrency, proceeds, wallet.Address, e.config.Network)
	}, e.retryOpts()...)
	if err != nil {
		return nil, stepError(err, step)
	}
	e.journalStep(ctx, opp.ID, step, domain.StepSubmitted,
		fmt.Sprintf("withdrawal=%s amount=%s", profitWithdrawal.ID, proceeds), live)

	// 14. Wait for the proceeds withdrawal and its confirmation.
	step = domain.StepAwaitProfitWithdrawal
	profitTx, err := e.waiters.AwaitWithdrawal(ctx, sell, opp.ID, step, profitWithdrawal.ID, live)
	if err != nil {
		return nil, stepError(err, step)
	}
	step = domain.StepAwaitProfitConfirmation
	if profitTx != "" {
		txHashes = append(txHashes, profitTx)
		if err := e.waiters.AwaitConfirmation(ctx, e.settle, opp.ID, step, profitTx, live); err != nil {
			return nil, stepError(err, step)
		}
	} else {
		e.journalStep(ctx, opp.ID, step, domain.StepDone, "venue reported no tx hash; skipping chain wait", live)
	}

	// 15. Done. Realized profit is proceeds received minus notional deployed.
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
		TxHashes:      txHashes,
	}, nil
}
