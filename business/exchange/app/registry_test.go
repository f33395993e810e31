package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
)

type stubGateway struct {
	venue  string
	closed atomic.Bool
}

func (s *stubGateway) Venue() string { return s.venue }
func (s *stubGateway) FetchTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	return nil, nil
}
func (s *stubGateway) FetchTradingFees(ctx context.Context) (*domain.TradingFees, error) {
	return nil, nil
}
func (s *stubGateway) FetchCurrencyInfo(ctx context.Context, token string) (*domain.CurrencyInfo, error) {
	return nil, nil
}
func (s *stubGateway) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubGateway) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, amount decimal.Decimal) (*domain.Order, error) {
	return nil, nil
}
func (s *stubGateway) FetchDepositAddress(ctx context.Context, token, network string) (*domain.DepositAddress, error) {
	return nil, nil
}
func (s *stubGateway) Withdraw(ctx context.Context, token string, amount decimal.Decimal, address, network string) (*domain.Withdrawal, error) {
	return nil, nil
}
func (s *stubGateway) FetchWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	return nil, nil
}
func (s *stubGateway) Close() error {
	s.closed.Store(true)
	return nil
}

func TestRegistryLazyCreation(t *testing.T) {
	var builds atomic.Int32
	r := NewRegistry()
	r.Bind("Binance", func(ctx context.Context) (Gateway, error) {
		builds.Add(1)
		return &stubGateway{venue: "binance"}, nil
	})

	if got := r.Active(); got != 0 {
		t.Fatalf("expected 0 live gateways before first Get, got %d", got)
	}

	gw1, err := r.Get(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	gw2, err := r.Get(context.Background(), "BINANCE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gw1 != gw2 {
		t.Error("expected the same gateway instance on repeated Get")
	}
	if got := builds.Load(); got != 1 {
		t.Errorf("expected factory to run once, ran %d times", got)
	}
}

func TestRegistryUnknownVenue(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(context.Background(), "kraken")
	if !apperror.IsCode(err, apperror.CodeExchangeNotConfigured) {
		t.Fatalf("expected EXCHANGE_NOT_CONFIGURED, got %v", err)
	}
}

func TestRegistryInvalidate(t *testing.T) {
	var builds atomic.Int32
	r := NewRegistry()
	r.Bind("binance", func(ctx context.Context) (Gateway, error) {
		builds.Add(1)
		return &stubGateway{venue: "binance"}, nil
	})

	gw1, err := r.Get(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	r.Invalidate("binance")
	if !gw1.(*stubGateway).closed.Load() {
		t.Error("expected evicted gateway to be closed")
	}

	gw2, err := r.Get(context.Background(), "binance")
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if gw1 == gw2 {
		t.Error("expected a fresh gateway after Invalidate")
	}
	if got := builds.Load(); got != 2 {
		t.Errorf("expected 2 factory runs, got %d", got)
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	var builds atomic.Int32
	r := NewRegistry()
	r.Bind("binance", func(ctx context.Context) (Gateway, error) {
		builds.Add(1)
		return &stubGateway{venue: "binance"}, nil
	})

	const workers = 16
	gateways := make([]Gateway, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gw, err := r.Get(context.Background(), "binance")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			gateways[i] = gw
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if gateways[i] != gateways[0] {
			t.Fatal("concurrent Gets returned different gateway instances")
		}
	}
	if got := r.Active(); got != 1 {
		t.Errorf("expected 1 live gateway, got %d", got)
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	r.Bind("binance", func(ctx context.Context) (Gateway, error) {
		return &stubGateway{venue: "binance"}, nil
	})
	r.Bind("kucoin", func(ctx context.Context) (Gateway, error) {
		return &stubGateway{venue: "kucoin"}, nil
	})

	gw1, _ := r.Get(context.Background(), "binance")
	gw2, _ := r.Get(context.Background(), "kucoin")

	r.Close()

	if !gw1.(*stubGateway).closed.Load() || !gw2.(*stubGateway).closed.Load() {
		t.Error("expected all gateways closed")
	}
	if got := r.Active(); got != 0 {
		t.Errorf("expected 0 live gateways after Close, got %d", got)
	}
}

func TestRegistryVenues(t *testing.T) {
	r := NewRegistry()
	r.Bind("KuCoin", func(ctx context.Context) (Gateway, error) { return nil, nil })
	r.Bind("binance", func(ctx context.Context) (Gateway, error) { return nil, nil })

	venues := r.Venues()
	want := []string{"binance", "kucoin"}
	if len(venues) != len(want) {
		t.Fatalf("expected %v, got %v", want, venues)
	}
	for i := range want {
		if venues[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, venues)
		}
	}
}
