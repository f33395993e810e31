package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	settlementDomain "github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

func TestExecuteRejectsInvalidOpportunity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Opportunity)
	}{
		{"zero buy price", func(o *domain.Opportunity) { o.BuyPrice = decimal.Zero }},
		{"negative sell price", func(o *domain.Opportunity) { o.SellPrice = d("-1") }},
		{"missing buy venue", func(o *domain.Opportunity) { o.BuyVenue = "" }},
		{"missing sell venue", func(o *domain.Opportunity) { o.SellVenue = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy := newFakeGateway("binance")
			sell := newFakeGateway("kucoin")
			h := newHarness(t, ExecutorConfig{}, nil, buy, sell)

			opp := testOpportunity("1.00", "1.10")
			tt.mutate(opp)

			_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})
			if !apperror.IsCode(err, apperror.CodeInvalidOpportunity) {
				t.Fatalf("expected INVALID_OPPORTUNITY, got %v", err)
			}
			if buy.Calls() != 0 || sell.Calls() != 0 {
				t.Errorf("expected no venue calls, got buy=%d sell=%d", buy.Calls(), sell.Calls())
			}
		})
	}
}

func TestExecuteRejectsBadAmounts(t *testing.T) {
	buy := newFakeGateway("binance")
	sell := newFakeGateway("kucoin")
	h := newHarness(t, ExecutorConfig{MaxTradeAmount: d("500")}, nil, buy, sell)
	opp := testOpportunity("1.00", "1.10")

	_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: decimal.Zero})
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Fatalf("zero amount: expected INVALID_INPUT, got %v", err)
	}

	_, err = h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("501")})
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Fatalf("over cap: expected INVALID_INPUT, got %v", err)
	}

	if buy.Calls() != 0 || sell.Calls() != 0 {
		t.Errorf("expected no venue calls, got buy=%d sell=%d", buy.Calls(), sell.Calls())
	}
}

func TestExecuteRequiresConfirmationInLiveMode(t *testing.T) {
	buy := newFakeGateway("binance")
	sell := newFakeGateway("kucoin")
	h := newHarness(t, ExecutorConfig{LiveMode: true}, nil, buy, sell)
	opp := testOpportunity("1.00", "1.10")

	_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})
	if !apperror.IsCode(err, apperror.CodeConfirmationRequired) {
		t.Fatalf("expected CONFIRMATION_REQUIRED, got %v", err)
	}
	if buy.Calls() != 0 || sell.Calls() != 0 {
		t.Errorf("expected no venue calls, got buy=%d sell=%d", buy.Calls(), sell.Calls())
	}

	// The confirmed request proceeds past the gate.
	_, err = h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000"), Confirmed: true})
	if apperror.IsCode(err, apperror.CodeConfirmationRequired) {
		t.Fatalf("confirmed request still gated: %v", err)
	}
}

func TestExecuteNotProfitableBeforeAnyTransfer(t *testing.T) {
	buy := newFakeGateway("binance")
	sell := newFakeGateway("kucoin")
	chain := newChainStub()
	h := newHarness(t, ExecutorConfig{
		Wallet: domain.Wallet{Address: "0xwallet", PrivateKey: "key"},
	}, chain, buy, sell)

	// 0.1% spread cannot cover fees.
	opp := testOpportunity("1.000", "1.001")

	_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})
	if !apperror.IsCode(err, apperror.CodeNotProfitable) {
		t.Fatalf("expected NOT_PROFITABLE, got %v", err)
	}
	if got := chain.Transfers(); got != 0 {
		t.Errorf("expected no on-chain transfers, got %d", got)
	}
	if opp.Status != domain.StatusFailed {
		t.Errorf("status = %q, want %q", opp.Status, domain.StatusFailed)
	}
}

func TestFullSagaEndToEnd(t *testing.T) {
	buy := newFakeGateway("binance")
	buy.deposits["USDT"] = "0xbuydeposit"
	buy.withdrawFn = func(token string, amount decimal.Decimal, address, network string) (*exchangeDomain.Withdrawal, error) {
		return &exchangeDomain.Withdrawal{ID: "buy-wd", Token: token, Amount: amount, Status: "pending"}, nil
	}
	buy.fetchWithdrawalFn = func(id string) (*exchangeDomain.Withdrawal, error) {
		return &exchangeDomain.Withdrawal{ID: id, Status: "completed", TxHash: "0xbuywd"}, nil
	}

	sell := newFakeGateway("kucoin")
	sell.deposits["TOK"] = "0xselldeposit"
	sell.orderFn = func(symbol string, side exchangeDomain.OrderSide, amount decimal.Decimal) (*exchangeDomain.Order, error) {
		return &exchangeDomain.Order{ID: "sell-1", Symbol: symbol, Side: side, Amount: amount, Filled: amount, Cost: amount.Mul(d("1.10"))}, nil
	}
	sell.withdrawFn = func(token string, amount decimal.Decimal, address, network string) (*exchangeDomain.Withdrawal, error) {
		return &exchangeDomain.Withdrawal{ID: "sell-wd", Token: token, Amount: amount, Status: "pending"}, nil
	}
	sell.fetchWithdrawalFn = func(id string) (*exchangeDomain.Withdrawal, error) {
		return &exchangeDomain.Withdrawal{ID: id, Status: "completed", TxHash: "0xsellwd"}, nil
	}

	chain := newChainStub()
	chain.mine("0xbuywd", 95)
	chain.mine("0xsellwd", 95)
	chain.transferFn = func(token settlementDomain.Token, to string, amount decimal.Decimal) (string, error) {
		switch to {
		case "0xbuydeposit":
			buy.credit("USDT", amount)
			chain.mine("0xfund1", 95)
			return "0xfund1", nil
		case "0xselldeposit":
			sell.credit(token.Symbol, amount)
			chain.mine("0xfund2", 95)
			return "0xfund2", nil
		}
		return "", &scriptError{"transfer to unexpected address " + to}
	}

	h := newHarness(t, ExecutorConfig{
		Wallet: domain.Wallet{Address: "0xwallet", PrivateKey: "key"},
	}, chain, buy, sell)

	opp := testOpportunity("1.00", "1.10")
	opp.TokenAddress = "0x00000000000000000000000000000000000000aa"
	opp.TokenDecimals = 18

	result, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Simulated {
		t.Error("expected a real settlement")
	}
	if !result.TokensBought.Equal(d("1000")) {
		t.Errorf("tokens bought = %s, want 1000", result.TokensBought)
	}
	if !result.Proceeds.Equal(d("1100")) {
		t.Errorf("proceeds = %s, want 1100", result.Proceeds)
	}
	if !result.Profit.Equal(d("100")) {
		t.Errorf("profit = %s, want 100", result.Profit)
	}
	if !result.ProfitPercent.Equal(d("10")) {
		t.Errorf("profit percent = %s, want 10", result.ProfitPercent)
	}
	if opp.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want %q", opp.Status, domain.StatusCompleted)
	}

	wantHashes := []string{"0xfund1", "0xbuywd", "0xfund2", "0xsellwd"}
	if len(result.TxHashes) != len(wantHashes) {
		t.Fatalf("tx hashes = %v, want %v", result.TxHashes, wantHashes)
	}
	for i, want := range wantHashes {
		if result.TxHashes[i] != want {
			t.Errorf("tx hash[%d] = %q, want %q", i, result.TxHashes[i], want)
		}
	}

	// Every step appears exactly once, in saga order: the waits all resolve
	// on their first poll here.
	records := h.journal.Records(opp.ID)
	if len(records) != len(domain.SagaSteps) {
		for _, r := range records {
			t.Logf("journal: %s %s %s", r.Step, r.Status, r.Details)
		}
		t.Fatalf("journal has %d records, want %d", len(records), len(domain.SagaSteps))
	}
	for i, want := range domain.SagaSteps {
		if records[i].Step != want {
			t.Errorf("journal[%d].Step = %q, want %q", i, records[i].Step, want)
		}
		if records[i].Status == domain.StepFailed {
			t.Errorf("journal[%d] unexpectedly failed: %s", i, records[i].Details)
		}
	}

	if got := chain.Transfers(); got != 2 {
		t.Errorf("on-chain transfers = %d, want 2", got)
	}
}

func TestFullSagaFailureTagsStepAndStopsStepwise(t *testing.T) {
	buy := newFakeGateway("binance")
	buy.deposits["USDT"] = "0xbuydeposit"
	buy.orderFn = func(string, exchangeDomain.OrderSide, decimal.Decimal) (*exchangeDomain.Order, error) {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithContext("insufficient balance"))
	}

	sell := newFakeGateway("kucoin")

	chain := newChainStub()
	chain.transferFn = func(token settlementDomain.Token, to string, amount decimal.Decimal) (string, error) {
		buy.credit("USDT", amount)
		chain.mine("0xfund1", 95)
		return "0xfund1", nil
	}

	h := newHarness(t, ExecutorConfig{
		Wallet: domain.Wallet{Address: "0xwallet", PrivateKey: "key"},
	}, chain, buy, sell)

	opp := testOpportunity("1.00", "1.10")
	_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})

	if !apperror.IsCode(err, apperror.CodeOrderRejected) {
		t.Fatalf("expected ORDER_REJECTED to surface, got %v", err)
	}
	if got := apperror.StepOf(err); got != string(domain.StepBuyOrder) {
		t.Errorf("failed step = %q, want %q", got, domain.StepBuyOrder)
	}
	if opp.Status != domain.StatusFailed {
		t.Errorf("status = %q, want %q", opp.Status, domain.StatusFailed)
	}

	// The funding transfer happened; nothing tries to unwind it.
	if got := chain.Transfers(); got != 1 {
		t.Errorf("on-chain transfers = %d, want 1 (no compensation)", got)
	}

	records := h.journal.Records(opp.ID)
	if len(records) == 0 {
		t.Fatal("expected journal records")
	}
	last := records[len(records)-1]
	if last.Step != domain.StepBuyOrder || last.Status != domain.StepFailed {
		t.Errorf("last record = %s/%s, want %s/%s",
			last.Step, last.Status, domain.StepBuyOrder, domain.StepFailed)
	}
}

func TestExecuteUnknownVenueTagsResolutionStep(t *testing.T) {
	buy := newFakeGateway("binance")
	// "kucoin" is never bound in the registry.
	h := newHarness(t, ExecutorConfig{}, nil, buy)

	opp := testOpportunity("1.00", "1.10")
	_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})

	if !apperror.IsCode(err, apperror.CodeExchangeNotConfigured) {
		t.Fatalf("expected EXCHANGE_NOT_CONFIGURED, got %v", err)
	}
	if got := apperror.StepOf(err); got != string(domain.StepVenueResolution) {
		t.Errorf("failed step = %q, want %q", got, domain.StepVenueResolution)
	}
	if opp.Status != domain.StatusFailed {
		t.Errorf("status = %q, want %q", opp.Status, domain.StatusFailed)
	}
	if buy.Calls() != 0 {
		t.Errorf("expected no venue calls before resolution completes, got %d", buy.Calls())
	}

	records := h.journal.Records(opp.ID)
	if len(records) == 0 {
		t.Fatal("expected journal records")
	}
	last := records[len(records)-1]
	if last.Step != domain.StepVenueResolution || last.Status != domain.StepFailed {
		t.Errorf("last record = %s/%s, want %s/%s",
			last.Step, last.Status, domain.StepVenueResolution, domain.StepFailed)
	}
}

func TestCanceledMidSagaFailsWithoutCompensation(t *testing.T) {
	buy := newFakeGateway("binance")
	buy.deposits["USDT"] = "0xbuydeposit"
	sell := newFakeGateway("kucoin")

	// The funding transfer submits but never confirms.
	chain := newChainStub()
	chain.transferFn = func(token settlementDomain.Token, to string, amount decimal.Decimal) (string, error) {
		return "0xfund1", nil
	}

	h := newHarness(t, ExecutorConfig{
		Wallet: domain.Wallet{Address: "0xwallet", PrivateKey: "key"},
	}, chain, buy, sell)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.clock.OnSleep = func(time.Duration) { cancel() }

	opp := testOpportunity("1.00", "1.10")
	_, err := h.executor.Execute(ctx, opp, domain.Request{Amount: d("1000")})

	// Cancellation ends the saga as a failure at the step it interrupted;
	// nothing already submitted is unwound.
	if err == nil {
		t.Fatal("expected error from canceled execution")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if got := apperror.StepOf(err); got != string(domain.StepAwaitSettlementConfirmation) {
		t.Errorf("failed step = %q, want %q", got, domain.StepAwaitSettlementConfirmation)
	}
	if opp.Status != domain.StatusFailed {
		t.Errorf("status = %q, want %q", opp.Status, domain.StatusFailed)
	}
	if got := chain.Transfers(); got != 1 {
		t.Errorf("on-chain transfers = %d, want 1 (no compensation)", got)
	}
}
