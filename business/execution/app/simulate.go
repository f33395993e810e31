package app

import (
	"context"
	"fmt"

	"github.com/fd1az/arbitrage-executor/business/execution/domain"
)

// simulatedSteps is the fixed pseudo-step sequence journaled by a dry run.
var simulatedSteps = []domain.Step{
	"validate_balance",
	"deposit_to_buy_exchange",
	"place_buy_order",
	"withdraw_to_wallet",
	"deposit_to_sell_exchange",
	"place_sell_order",
	"withdraw_profits",
}

// runSimulated executes the dry-run variant: no network I/O, a fixed
// sequence of journaled pseudo-steps, and profit computed directly from
// the opportunity's detection-time prices.
func (e *Executor) runSimulated(ctx context.Context, opp *domain.Opportunity, req domain.Request) (*domain.Settlement, error) {
	tokens := req.Amount.Div(opp.BuyPrice)
	sellValue := tokens.Mul(opp.SellPrice)
	profit := sellValue.Sub(req.Amount)
	profitPercent := profit.Div(req.Amount).Mul(oneHundred)

	for _, step := range simulatedSteps {
		e.journalStep(ctx, opp.ID, step, domain.StepDone, "simulated", false)
	}
	e.journalStep(ctx, opp.ID, domain.StepCompleted, domain.StepDone,
		fmt.Sprintf("simulated profit=%s profit_percent=%s", profit, profitPercent), false)

	e.logger.Info(ctx, "dry run completed",
		"opportunity_id", opp.ID,
		"tokens", tokens.String(),
		"sell_value", sellValue.String(),
		"profit", profit.String())

	return &domain.Settlement{
		OpportunityID: opp.ID,
		Simulated:     true,
		TokensBought:  tokens,
		Proceeds:      sellValue,
		Profit:        profit,
		ProfitPercent: profitPercent,
	}, nil
}
