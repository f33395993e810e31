package app

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/infra/journal"
	settlementApp "github.com/fd1az/arbitrage-executor/business/settlement/app"
	settlementDomain "github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/clock"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelInfo, "test", nil)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeGateway is a scriptable venue. Zero-value behaviors are benign: empty
// balances, default fees, immediate fills at the requested amount.
type fakeGateway struct {
	venue string

	mu       sync.Mutex
	calls    int
	balances map[string]decimal.Decimal

	fees        *exchangeDomain.TradingFees
	feesErr     error
	currency    *exchangeDomain.CurrencyInfo
	currencyErr error
	balanceErr  error

	tickers  map[string]*exchangeDomain.Ticker
	deposits map[string]string // token -> address

	orderFn           func(symbol string, side exchangeDomain.OrderSide, amount decimal.Decimal) (*exchangeDomain.Order, error)
	withdrawFn        func(token string, amount decimal.Decimal, address, network string) (*exchangeDomain.Withdrawal, error)
	fetchWithdrawalFn func(id string) (*exchangeDomain.Withdrawal, error)
}

func newFakeGateway(venue string) *fakeGateway {
	return &fakeGateway{
		venue:    venue,
		balances: make(map[string]decimal.Decimal),
		deposits: make(map[string]string),
		tickers:  make(map[string]*exchangeDomain.Ticker),
		fees:     &exchangeDomain.TradingFees{Maker: d("0.001"), Taker: d("0.001")},
		currency: &exchangeDomain.CurrencyInfo{WithdrawalFee: d("1")},
	}
}

func (g *fakeGateway) bump() {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
}

// Calls returns how many gateway methods have been invoked.
func (g *fakeGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGateway) credit(asset string, amount decimal.Decimal) {
	g.mu.Lock()
	g.balances[asset] = g.balances[asset].Add(amount)
	g.mu.Unlock()
}

func (g *fakeGateway) Venue() string { return g.venue }

func (g *fakeGateway) FetchTicker(ctx context.Context, symbol string) (*exchangeDomain.Ticker, error) {
	g.bump()
	t, ok := g.tickers[symbol]
	if !ok {
		return nil, errNoTicker
	}
	return t, nil
}

func (g *fakeGateway) FetchTradingFees(ctx context.Context) (*exchangeDomain.TradingFees, error) {
	g.bump()
	if g.feesErr != nil {
		return nil, g.feesErr
	}
	return g.fees, nil
}

func (g *fakeGateway) FetchCurrencyInfo(ctx context.Context, token string) (*exchangeDomain.CurrencyInfo, error) {
	g.bump()
	if g.currencyErr != nil {
		return nil, g.currencyErr
	}
	return g.currency, nil
}

func (g *fakeGateway) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	g.bump()
	if g.balanceErr != nil {
		return decimal.Zero, g.balanceErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[asset], nil
}

func (g *fakeGateway) CreateMarketOrder(ctx context.Context, symbol string, side exchangeDomain.OrderSide, amount decimal.Decimal) (*exchangeDomain.Order, error) {
	g.bump()
	if g.orderFn != nil {
		return g.orderFn(symbol, side, amount)
	}
	return &exchangeDomain.Order{
		ID:     g.venue + "-order",
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Filled: amount,
	}, nil
}

func (g *fakeGateway) FetchDepositAddress(ctx context.Context, token, network string) (*exchangeDomain.DepositAddress, error) {
	g.bump()
	addr, ok := g.deposits[token]
	if !ok {
		return nil, errNoDepositAddress
	}
	return &exchangeDomain.DepositAddress{Token: token, Network: network, Address: addr}, nil
}

func (g *fakeGateway) Withdraw(ctx context.Context, token string, amount decimal.Decimal, address, network string) (*exchangeDomain.Withdrawal, error) {
	g.bump()
	if g.withdrawFn != nil {
		return g.withdrawFn(token, amount, address, network)
	}
	return &exchangeDomain.Withdrawal{ID: g.venue + "-wd", Token: token, Amount: amount, Status: "pending"}, nil
}

func (g *fakeGateway) FetchWithdrawal(ctx context.Context, id string) (*exchangeDomain.Withdrawal, error) {
	g.bump()
	if g.fetchWithdrawalFn != nil {
		return g.fetchWithdrawalFn(id)
	}
	return &exchangeDomain.Withdrawal{ID: id, Status: "pending"}, nil
}

var (
	errNoTicker         = &scriptError{"no ticker scripted"}
	errNoDepositAddress = &scriptError{"no deposit address scripted"}
)

type scriptError struct{ msg string }

func (e *scriptError) Error() string { return e.msg }

// chainStub is a scriptable settlement chain.
type chainStub struct {
	mu        sync.Mutex
	head      uint64
	receipts  map[string]*settlementDomain.Receipt
	transfers int

	transferFn func(token settlementDomain.Token, to string, amount decimal.Decimal) (string, error)
	receiptErr error
}

func newChainStub() *chainStub {
	return &chainStub{head: 100, receipts: make(map[string]*settlementDomain.Receipt)}
}

func (c *chainStub) mine(txHash string, block uint64) {
	c.mu.Lock()
	c.receipts[txHash] = &settlementDomain.Receipt{TxHash: common.HexToHash(txHash), BlockNumber: block}
	c.mu.Unlock()
}

func (c *chainStub) Transfers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transfers
}

func (c *chainStub) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *chainStub) TransactionReceipt(ctx context.Context, txHash string) (*settlementDomain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receiptErr != nil {
		return nil, c.receiptErr
	}
	return c.receipts[txHash], nil
}

func (c *chainStub) TokenBalance(ctx context.Context, token settlementDomain.Token, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (c *chainStub) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (c *chainStub) Transfer(ctx context.Context, token settlementDomain.Token, to string, amount decimal.Decimal) (string, error) {
	c.mu.Lock()
	c.transfers++
	fn := c.transferFn
	c.mu.Unlock()
	if fn != nil {
		return fn(token, to, amount)
	}
	return "0xunscripted", nil
}

func (c *chainStub) GasPrice(ctx context.Context) (*settlementDomain.GasPrice, error) {
	return settlementDomain.NewGasPrice(big.NewInt(1e9)), nil
}

// testHarness bundles an executor with its observable collaborators.
type testHarness struct {
	executor *Executor
	journal  *journal.Memory
	clock    *clock.Fake
	chain    *chainStub
	settle   *settlementApp.SettlementService
}

func newHarness(t *testing.T, cfg ExecutorConfig, chain *chainStub, gateways ...*fakeGateway) *testHarness {
	t.Helper()

	registry := exchangeApp.NewRegistry()
	for _, gw := range gateways {
		gw := gw
		registry.Bind(gw.venue, func(ctx context.Context) (exchangeApp.Gateway, error) {
			return gw, nil
		})
	}

	log := testLogger()
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mem := journal.NewMemory()

	var settle *settlementApp.SettlementService
	if chain != nil {
		settle = settlementApp.NewSettlementService(chain, settlementDomain.Token{Symbol: "USDT", Decimals: 18})
	}

	waiterCfg := DefaultWaiterConfig()
	waiters := NewWaiters(waiterCfg, clk, mem, log)
	analyzer := NewAnalyzer(DefaultAnalyzerConfig(), log)

	if cfg.RetryMaxAttempts == 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryInitialDelay == 0 {
		cfg.RetryInitialDelay = 2 * time.Second
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = "USDT"
	}
	if cfg.Network == "" {
		cfg.Network = "BSC"
	}
	if cfg.SlippageTolerance.IsZero() {
		cfg.SlippageTolerance = d("0.5")
	}

	executor, err := NewExecutor(cfg, registry, settle, analyzer, waiters, mem, nil, clk, log)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	return &testHarness{
		executor: executor,
		journal:  mem,
		clock:    clk,
		chain:    chain,
		settle:   settle,
	}
}
