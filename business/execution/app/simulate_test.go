package app

import (
	"context"
	"testing"

	"github.com/fd1az/arbitrage-executor/business/execution/domain"
)

func TestSimulatedExecutionIsDeterministic(t *testing.T) {
	// Dry runs touch no venue or chain at all; the harness gets gateways
	// only to prove they stay idle.
	buy := newFakeGateway("binance")
	sell := newFakeGateway("kucoin")
	h := newHarness(t, ExecutorConfig{DryRun: true}, nil, buy, sell)

	opp := testOpportunity("1.00", "1.05")
	result, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("100")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Simulated {
		t.Error("expected a simulated settlement")
	}
	if !result.TokensBought.Equal(d("100")) {
		t.Errorf("tokens = %s, want 100", result.TokensBought)
	}
	if !result.Proceeds.Equal(d("105")) {
		t.Errorf("proceeds = %s, want 105", result.Proceeds)
	}
	if !result.Profit.Equal(d("5")) {
		t.Errorf("profit = %s, want 5", result.Profit)
	}
	if !result.ProfitPercent.Equal(d("5")) {
		t.Errorf("profit percent = %s, want 5", result.ProfitPercent)
	}
	if buy.Calls() != 0 || sell.Calls() != 0 {
		t.Errorf("dry run touched venues: buy=%d sell=%d", buy.Calls(), sell.Calls())
	}
}

func TestSimulatedExecutionJournalsPseudoSteps(t *testing.T) {
	h := newHarness(t, ExecutorConfig{DryRun: true}, nil)

	opp := testOpportunity("1.00", "1.05")
	if _, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("100")}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantSteps := []domain.Step{
		"validate_balance",
		"deposit_to_buy_exchange",
		"place_buy_order",
		"withdraw_to_wallet",
		"deposit_to_sell_exchange",
		"place_sell_order",
		"withdraw_profits",
		domain.StepCompleted,
	}

	records := h.journal.Records(opp.ID)
	if len(records) != len(wantSteps) {
		t.Fatalf("journal has %d records, want %d", len(records), len(wantSteps))
	}
	for i, want := range wantSteps {
		if records[i].Step != want {
			t.Errorf("journal[%d].Step = %q, want %q", i, records[i].Step, want)
		}
		if records[i].Status != domain.StepDone {
			t.Errorf("journal[%d].Status = %q, want %q", i, records[i].Status, domain.StepDone)
		}
		if records[i].Live {
			t.Errorf("journal[%d] marked live in a dry run", i)
		}
	}
}

func TestSimulatedSkipsConfirmationGate(t *testing.T) {
	// Live mode with dry-run still set: the confirmation gate only guards
	// real-fund paths.
	h := newHarness(t, ExecutorConfig{LiveMode: true, DryRun: true}, nil)

	opp := testOpportunity("1.00", "1.05")
	if _, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("100")}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
