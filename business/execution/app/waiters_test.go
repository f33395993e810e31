package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/journal"
	settlementApp "github.com/fd1az/arbitrage-executor/business/settlement/app"
	settlementDomain "github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/clock"
)

func newTestWaiters(t *testing.T) (*Waiters, *journal.Memory, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mem := journal.NewMemory()
	return NewWaiters(DefaultWaiterConfig(), clk, mem, testLogger()), mem, clk
}

func newTestSettle(chain *chainStub) *settlementApp.SettlementService {
	return settlementApp.NewSettlementService(chain, settlementDomain.Token{Symbol: "USDT", Decimals: 18})
}

func TestAwaitConfirmation(t *testing.T) {
	w, _, clk := newTestWaiters(t)
	chain := newChainStub()
	settle := newTestSettle(chain)

	// Unmined for the first two polls, then mined five blocks deep.
	clk.OnSleep = func(time.Duration) {
		if len(clk.Sleeps()) == 2 {
			chain.mine("0xabc", 96)
		}
	}

	err := w.AwaitConfirmation(context.Background(), settle, "opp-1", domain.StepAwaitSettlementConfirmation, "0xabc", false)
	if err != nil {
		t.Fatalf("AwaitConfirmation: %v", err)
	}
	if got := len(clk.Sleeps()); got != 2 {
		t.Errorf("expected 2 polling sleeps, got %d", got)
	}
}

func TestAwaitConfirmationTimeout(t *testing.T) {
	w, _, _ := newTestWaiters(t)
	chain := newChainStub() // transaction never mined
	settle := newTestSettle(chain)

	err := w.AwaitConfirmation(context.Background(), settle, "opp-1", domain.StepAwaitSettlementConfirmation, "0xabc", false)
	if !apperror.IsCode(err, apperror.CodeWaitTimeout) {
		t.Fatalf("expected WAIT_TIMEOUT, got %v", err)
	}
	if got := apperror.StepOf(err); got != string(domain.StepAwaitSettlementConfirmation) {
		t.Errorf("failed step = %q, want %q", got, domain.StepAwaitSettlementConfirmation)
	}
}

func TestAwaitConfirmationReverted(t *testing.T) {
	w, _, _ := newTestWaiters(t)
	chain := newChainStub()
	chain.receipts["0xbad"] = &settlementDomain.Receipt{BlockNumber: 90, Reverted: true}
	settle := newTestSettle(chain)

	err := w.AwaitConfirmation(context.Background(), settle, "opp-1", domain.StepAwaitSettlementConfirmation, "0xbad", false)
	if !apperror.IsCode(err, apperror.CodeExternalOperationFailed) {
		t.Fatalf("expected EXTERNAL_OPERATION_FAILED for a reverted transaction, got %v", err)
	}
}

func TestAwaitWithdrawalTerminalStates(t *testing.T) {
	tests := []struct {
		status  string
		wantTx  string
		wantErr apperror.Code
	}{
		{status: "ok", wantTx: "0xw"},
		{status: "complete", wantTx: "0xw"},
		{status: "completed", wantTx: "0xw"},
		{status: "success", wantTx: "0xw"},
		{status: "failed", wantErr: apperror.CodeExternalOperationFailed},
		{status: "canceled", wantErr: apperror.CodeExternalOperationFailed},
		{status: "cancelled", wantErr: apperror.CodeExternalOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			w, _, _ := newTestWaiters(t)
			gw := newFakeGateway("binance")
			gw.fetchWithdrawalFn = func(id string) (*exchangeDomain.Withdrawal, error) {
				return &exchangeDomain.Withdrawal{ID: id, Status: tt.status, TxHash: "0xw"}, nil
			}

			tx, err := w.AwaitWithdrawal(context.Background(), gw, "opp-1", domain.StepAwaitBuyWithdrawalCompletion, "wd-1", false)

			if tt.wantErr != "" {
				if !apperror.IsCode(err, tt.wantErr) {
					t.Fatalf("expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AwaitWithdrawal: %v", err)
			}
			if tx != tt.wantTx {
				t.Errorf("tx hash = %q, want %q", tx, tt.wantTx)
			}
		})
	}
}

func TestAwaitWithdrawalPendingThenComplete(t *testing.T) {
	w, mem, _ := newTestWaiters(t)
	gw := newFakeGateway("binance")

	var polls atomic.Int32
	gw.fetchWithdrawalFn = func(id string) (*exchangeDomain.Withdrawal, error) {
		if polls.Add(1) < 3 {
			return &exchangeDomain.Withdrawal{ID: id, Status: "processing"}, nil
		}
		return &exchangeDomain.Withdrawal{ID: id, Status: "completed", TxHash: "0xdeadbeef"}, nil
	}

	tx, err := w.AwaitWithdrawal(context.Background(), gw, "opp-1", domain.StepAwaitBuyWithdrawalCompletion, "wd-1", false)
	if err != nil {
		t.Fatalf("AwaitWithdrawal: %v", err)
	}
	if tx != "0xdeadbeef" {
		t.Errorf("tx hash = %q, want 0xdeadbeef", tx)
	}
	if got := len(mem.Records("opp-1")); got != 3 {
		t.Errorf("expected 3 journaled polls, got %d", got)
	}
}

func TestAwaitWithdrawalNotFoundIsTransient(t *testing.T) {
	w, mem, _ := newTestWaiters(t)
	gw := newFakeGateway("binance")

	// The venue's ledger lags the submit call long enough to exhaust a full
	// retry budget, forcing the poll loop itself to absorb the not-found.
	var polls atomic.Int32
	gw.fetchWithdrawalFn = func(id string) (*exchangeDomain.Withdrawal, error) {
		if polls.Add(1) <= 4 {
			return nil, apperror.New(apperror.CodeWithdrawalNotFound)
		}
		return &exchangeDomain.Withdrawal{ID: id, Status: "ok", TxHash: "0xw"}, nil
	}

	tx, err := w.AwaitWithdrawal(context.Background(), gw, "opp-1", domain.StepAwaitBuyWithdrawalCompletion, "wd-1", false)
	if err != nil {
		t.Fatalf("expected not-found to be treated as transient, got %v", err)
	}
	if tx != "0xw" {
		t.Errorf("tx hash = %q, want 0xw", tx)
	}

	records := mem.Records("opp-1")
	if len(records) < 2 {
		t.Fatalf("expected a not-found poll and a terminal poll journaled, got %d records", len(records))
	}
	if records[0].Status != domain.StepChecking {
		t.Errorf("first record status = %q, want %q", records[0].Status, domain.StepChecking)
	}
}

func TestAwaitWithdrawalTimeout(t *testing.T) {
	w, _, _ := newTestWaiters(t)
	gw := newFakeGateway("binance") // forever "pending"

	_, err := w.AwaitWithdrawal(context.Background(), gw, "opp-1", domain.StepAwaitBuyWithdrawalCompletion, "wd-1", false)
	if !apperror.IsCode(err, apperror.CodeWaitTimeout) {
		t.Fatalf("expected WAIT_TIMEOUT, got %v", err)
	}
}

func TestAwaitDepositTolerance(t *testing.T) {
	tests := []struct {
		name     string
		credited string
		ok       bool
	}{
		{"full amount", "50", true},
		{"exactly 99 percent", "49.5", true},
		{"just under tolerance", "49.4", false},
		{"nothing credited", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, _ := newTestWaiters(t)
			gw := newFakeGateway("binance")
			gw.credit("USDT", d("100")) // pre-existing balance
			gw.credit("USDT", d(tt.credited))

			err := w.AwaitDeposit(context.Background(), gw, "opp-1", domain.StepAwaitBuyExchangeCredit,
				"USDT", d("100"), d("50"), false)

			if tt.ok && err != nil {
				t.Fatalf("AwaitDeposit: %v", err)
			}
			if !tt.ok && !apperror.IsCode(err, apperror.CodeWaitTimeout) {
				t.Fatalf("expected WAIT_TIMEOUT, got %v", err)
			}
		})
	}
}

func TestAwaitDepositCreditedWhileWaiting(t *testing.T) {
	w, _, clk := newTestWaiters(t)
	gw := newFakeGateway("binance")

	clk.OnSleep = func(time.Duration) {
		if len(clk.Sleeps()) == 3 {
			gw.credit("USDT", d("1000"))
		}
	}

	err := w.AwaitDeposit(context.Background(), gw, "opp-1", domain.StepAwaitBuyExchangeCredit,
		"USDT", decimal.Zero, d("1000"), false)
	if err != nil {
		t.Fatalf("AwaitDeposit: %v", err)
	}
	if got := len(clk.Sleeps()); got != 3 {
		t.Errorf("expected 3 polling sleeps, got %d", got)
	}
}

func TestAwaitDepositToleratesFetchErrors(t *testing.T) {
	w, _, clk := newTestWaiters(t)
	gw := newFakeGateway("binance")
	gw.balanceErr = &scriptError{"balance endpoint down"}

	// Balance fetches fail for a while, then the endpoint recovers with the
	// deposit already credited. Each failed fetch burns the retry budget
	// before the poll loop sleeps.
	clk.OnSleep = func(time.Duration) {
		if clk.Now().Sub(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) > 2*time.Minute {
			gw.mu.Lock()
			gw.balanceErr = nil
			gw.mu.Unlock()
			gw.credit("USDT", d("1000"))
		}
	}

	err := w.AwaitDeposit(context.Background(), gw, "opp-1", domain.StepAwaitBuyExchangeCredit,
		"USDT", decimal.Zero, d("1000"), false)
	if err != nil {
		t.Fatalf("expected fetch errors to be tolerated until credit, got %v", err)
	}
}
