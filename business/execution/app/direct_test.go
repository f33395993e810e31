package app

import (
	"context"
	"testing"
	"time"

	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

func setTicker(gw *fakeGateway, symbol, bid, ask string) {
	gw.tickers[symbol] = &exchangeDomain.Ticker{
		Symbol:    symbol,
		Bid:       d(bid),
		Ask:       d(ask),
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDirectHappyPath(t *testing.T) {
	buy := newFakeGateway("binance")
	setTicker(buy, "TOK/USDT", "0.999", "1.001")

	sell := newFakeGateway("kucoin")
	setTicker(sell, "TOK/USDT", "1.099", "1.101")

	// No wallet configured: balances are pre-positioned on both venues.
	h := newHarness(t, ExecutorConfig{}, nil, buy, sell)

	opp := testOpportunity("1.00", "1.10")
	result, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.TokensBought.Equal(d("1000")) {
		t.Errorf("tokens bought = %s, want 1000", result.TokensBought)
	}
	// Default order fill reports no cost, so proceeds fall back to the
	// detection-time sell price.
	if !result.Proceeds.Equal(d("1100")) {
		t.Errorf("proceeds = %s, want 1100", result.Proceeds)
	}
	if !result.Profit.Equal(d("100")) {
		t.Errorf("profit = %s, want 100", result.Profit)
	}
	if len(result.TxHashes) != 0 {
		t.Errorf("expected no tx hashes, got %v", result.TxHashes)
	}

	wantSteps := []domain.Step{
		domain.StepProfitabilityCheck,
		domain.StepSlippageCheck,
		domain.StepBuyOrder,
		domain.StepSellOrder,
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
	}
}

func TestDirectSlippageExceeded(t *testing.T) {
	tests := []struct {
		name    string
		buyAsk  string
		sellBid string
	}{
		// Tolerance is 0.5%; these move 2% and -1.8% respectively.
		{"buy side moved up", "1.02", "1.10"},
		{"sell side moved down", "1.00", "1.08"},
		{"both sides moved", "1.02", "1.08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buy := newFakeGateway("binance")
			setTicker(buy, "TOK/USDT", "0.99", tt.buyAsk)

			sell := newFakeGateway("kucoin")
			setTicker(sell, "TOK/USDT", tt.sellBid, "1.11")

			h := newHarness(t, ExecutorConfig{}, nil, buy, sell)

			opp := testOpportunity("1.00", "1.10")
			_, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")})

			if !apperror.IsCode(err, apperror.CodeSlippageExceeded) {
				t.Fatalf("expected SLIPPAGE_EXCEEDED, got %v", err)
			}
			if got := apperror.StepOf(err); got != string(domain.StepSlippageCheck) {
				t.Errorf("failed step = %q, want %q", got, domain.StepSlippageCheck)
			}

			records := h.journal.Records(opp.ID)
			last := records[len(records)-1]
			if last.Step != domain.StepSlippageCheck || last.Status != domain.StepFailed {
				t.Errorf("last record = %s/%s, want %s/failed", last.Step, last.Status, domain.StepSlippageCheck)
			}
		})
	}
}

func TestDirectSlippageWithinTolerance(t *testing.T) {
	buy := newFakeGateway("binance")
	setTicker(buy, "TOK/USDT", "0.999", "1.004") // +0.4%

	sell := newFakeGateway("kucoin")
	setTicker(sell, "TOK/USDT", "1.0956", "1.10") // -0.4%

	h := newHarness(t, ExecutorConfig{}, nil, buy, sell)

	opp := testOpportunity("1.00", "1.10")
	if _, err := h.executor.Execute(context.Background(), opp, domain.Request{Amount: d("1000")}); err != nil {
		t.Fatalf("moves within tolerance should pass: %v", err)
	}
}
