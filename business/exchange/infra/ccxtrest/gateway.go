// Package ccxtrest implements the exchange Gateway against a unified
// REST bridge that exposes ccxt-style endpoints for each venue.
package ccxtrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-executor/business/exchange/app"
	"github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-executor/internal/httpclient"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/ratelimit"
)

const (
	tracerName = "ccxtrest"
	meterName  = "ccxtrest"

	tickerEndpoint         = "/api/v1/ticker"
	tradingFeesEndpoint    = "/api/v1/trading-fees"
	currenciesEndpoint     = "/api/v1/currencies"
	balanceEndpoint        = "/api/v1/balance"
	ordersEndpoint         = "/api/v1/orders"
	depositAddressEndpoint = "/api/v1/deposit-address"
	withdrawalsEndpoint    = "/api/v1/withdrawals"

	httpTimeout = 15 * time.Second

	defaultRequestsPerMinute = 60
)

// Ensure Gateway implements the port.
var _ app.Gateway = (*Gateway)(nil)

// Config holds per-venue gateway configuration.
type Config struct {
	Venue             string
	BaseURL           string
	APIKey            string
	APISecret         string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Gateway talks to one venue through the unified REST bridge.
type Gateway struct {
	config  Config
	client  httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics struct {
		apiCalls  metric.Int64Counter
		apiErrors metric.Int64Counter
	}
}

// New creates a gateway for a single venue.
func New(cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	if cfg.Venue == "" {
		return nil, fmt.Errorf("venue is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for venue %s", cfg.Venue)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = defaultRequestsPerMinute
	}

	tracer := otel.Tracer(tracerName)

	headers := map[string]string{
		"Accept": "application/json",
	}
	if cfg.APIKey != "" {
		headers["X-API-Key"] = cfg.APIKey
		headers["X-API-Secret"] = cfg.APISecret
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(cfg.Venue),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	g := &Gateway{
		config:  cfg,
		client:  client,
		limiter: ratelimit.New(rpm),
		breaker: circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig(cfg.Venue)),
		logger:  log,
		tracer:  tracer,
	}

	if err := g.initMetrics(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName,
		metric.WithInstrumentationAttributes(attribute.String("venue", g.config.Venue)))

	var err error
	g.metrics.apiCalls, err = meter.Int64Counter(
		"exchange_api_calls_total",
		metric.WithDescription("Total venue API calls"),
	)
	if err != nil {
		return err
	}
	g.metrics.apiErrors, err = meter.Int64Counter(
		"exchange_api_errors_total",
		metric.WithDescription("Total venue API call failures"),
	)
	return err
}

// Venue returns the venue identifier this gateway serves.
func (g *Gateway) Venue() string {
	return g.config.Venue
}

// Close releases the gateway. The HTTP client's pooled connections are
// owned by the transport and close with it.
func (g *Gateway) Close() error {
	return nil
}

// call runs one bridge request through the rate limiter and circuit
// breaker. Transport failures become EXCHANGE_API_ERROR and a 429 becomes
// RATE_LIMIT_EXCEEDED; any other bridge error status flows back as the
// response so each operation can map it to its own code.
func (g *Gateway) call(ctx context.Context, op string, do func() (*httpclient.Response, error)) (*httpclient.Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeServiceTimeout, "rate limiter wait")
	}

	attrs := metric.WithAttributes(attribute.String("op", op))
	g.metrics.apiCalls.Add(ctx, 1, attrs)

	resp, err := g.breaker.Execute(do)
	if err != nil {
		g.metrics.apiErrors.Add(ctx, 1, attrs)
		if apperror.IsCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && resp != nil {
			if apiErr.StatusCode == http.StatusTooManyRequests {
				return nil, apperror.New(apperror.CodeRateLimitExceeded,
					apperror.WithVenue(g.config.Venue),
					apperror.WithCause(apiErr),
					apperror.WithContext(op))
			}
			return resp, nil
		}

		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithCause(err),
			apperror.WithContext(op))
	}

	return resp, nil
}

// FetchTicker retrieves the current quote for a symbol.
func (g *Gateway) FetchTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_ticker",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("symbol", symbol),
		))
	defer span.End()

	var result tickerResponse
	resp, err := g.call(ctx, "fetch_ticker", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetQueryParam("symbol", symbol).
			SetResult(&result).
			Get(ctx, tickerEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, g.apiError(resp, "fetch_ticker")
	}

	bid, err := decimal.NewFromString(result.Bid)
	if err != nil {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable bid %q", result.Bid)))
	}
	ask, err := decimal.NewFromString(result.Ask)
	if err != nil {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable ask %q", result.Ask)))
	}
	last, _ := decimal.NewFromString(result.Last)

	return &domain.Ticker{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: time.UnixMilli(result.Timestamp),
	}, nil
}

// FetchTradingFees retrieves the venue's fee rates.
func (g *Gateway) FetchTradingFees(ctx context.Context) (*domain.TradingFees, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_trading_fees",
		trace.WithAttributes(attribute.String("venue", g.config.Venue)))
	defer span.End()

	var result tradingFeesResponse
	resp, err := g.call(ctx, "fetch_trading_fees", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetResult(&result).
			Get(ctx, tradingFeesEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, g.apiError(resp, "fetch_trading_fees")
	}

	maker, err := decimal.NewFromString(result.Maker)
	if err != nil {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable maker fee %q", result.Maker)))
	}
	taker, err := decimal.NewFromString(result.Taker)
	if err != nil {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable taker fee %q", result.Taker)))
	}

	return &domain.TradingFees{Maker: maker, Taker: taker}, nil
}

// FetchCurrencyInfo retrieves withdrawal metadata for a token.
func (g *Gateway) FetchCurrencyInfo(ctx context.Context, token string) (*domain.CurrencyInfo, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_currency_info",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("token", token),
		))
	defer span.End()

	var result currencyResponse
	resp, err := g.call(ctx, "fetch_currency_info", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetResult(&result).
			Get(ctx, currenciesEndpoint+"/"+url.PathEscape(token))
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, g.apiError(resp, "fetch_currency_info")
	}

	fee, err := decimal.NewFromString(result.Fee)
	if err != nil {
		return nil, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable withdrawal fee %q", result.Fee)))
	}

	return &domain.CurrencyInfo{
		Token:         token,
		WithdrawalFee: fee,
		Network:       result.Network,
	}, nil
}

// FetchBalance retrieves the free balance of an asset.
func (g *Gateway) FetchBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_balance",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("asset", asset),
		))
	defer span.End()

	var result balanceResponse
	resp, err := g.call(ctx, "fetch_balance", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetQueryParam("asset", asset).
			SetResult(&result).
			Get(ctx, balanceEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	free, err := decimal.NewFromString(result.Free)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("unparseable balance %q", result.Free)))
	}

	return free, nil
}

// CreateMarketOrder places a market order for the given base amount.
func (g *Gateway) CreateMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, amount decimal.Decimal) (*domain.Order, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.create_market_order",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("symbol", symbol),
			attribute.String("side", string(side)),
			attribute.String("amount", amount.String()),
		))
	defer span.End()

	var result orderResponse
	resp, err := g.call(ctx, "create_market_order", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetBody(orderRequest{
				Symbol: symbol,
				Side:   string(side),
				Type:   "market",
				Amount: amount.String(),
			}).
			SetResult(&result).
			Post(ctx, ordersEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeOrderRejected,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	order := &domain.Order{
		ID:     result.ID,
		Symbol: result.Symbol,
		Side:   domain.OrderSide(result.Side),
		Amount: amount,
	}
	if result.Filled != "" {
		if filled, err := decimal.NewFromString(result.Filled); err == nil {
			order.Filled = filled
		}
	}
	if result.Cost != "" {
		if cost, err := decimal.NewFromString(result.Cost); err == nil {
			order.Cost = cost
		}
	}

	g.logger.Info(ctx, "market order placed",
		"venue", g.config.Venue,
		"symbol", symbol,
		"side", side,
		"amount", amount.String(),
		"order_id", order.ID)

	return order, nil
}

// FetchDepositAddress retrieves the venue's deposit address for a token.
func (g *Gateway) FetchDepositAddress(ctx context.Context, token, network string) (*domain.DepositAddress, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_deposit_address",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("token", token),
			attribute.String("network", network),
		))
	defer span.End()

	var result depositAddressResponse
	resp, err := g.call(ctx, "fetch_deposit_address", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetQueryParam("token", token).
			SetQueryParam("network", network).
			SetResult(&result).
			Get(ctx, depositAddressEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeDepositAddressFailed,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	if result.Address == "" {
		return nil, apperror.New(apperror.CodeDepositAddressFailed,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext("bridge returned empty address"))
	}

	return &domain.DepositAddress{
		Token:   token,
		Network: result.Network,
		Address: result.Address,
		Tag:     result.Tag,
	}, nil
}

// Withdraw submits a withdrawal to an external address.
func (g *Gateway) Withdraw(ctx context.Context, token string, amount decimal.Decimal, address, network string) (*domain.Withdrawal, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.withdraw",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("token", token),
			attribute.String("amount", amount.String()),
			attribute.String("network", network),
		))
	defer span.End()

	var result withdrawalResponse
	resp, err := g.call(ctx, "withdraw", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetBody(withdrawRequest{
				Currency: token,
				Amount:   amount.String(),
				Address:  address,
				Network:  network,
			}).
			SetResult(&result).
			Post(ctx, withdrawalsEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeWithdrawalRejected,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	g.logger.Info(ctx, "withdrawal submitted",
		"venue", g.config.Venue,
		"token", token,
		"amount", amount.String(),
		"withdrawal_id", result.ID)

	return g.toWithdrawal(&result)
}

// FetchWithdrawal retrieves the current status of a withdrawal. A 404 from
// the bridge maps to WITHDRAWAL_NOT_FOUND, which callers treat as transient
// while the venue's ledger catches up.
func (g *Gateway) FetchWithdrawal(ctx context.Context, id string) (*domain.Withdrawal, error) {
	ctx, span := g.tracer.Start(ctx, "exchange.fetch_withdrawal",
		trace.WithAttributes(
			attribute.String("venue", g.config.Venue),
			attribute.String("withdrawal_id", id),
		))
	defer span.End()

	var result withdrawalResponse
	resp, err := g.call(ctx, "fetch_withdrawal", func() (*httpclient.Response, error) {
		return g.newRequest().
			SetResult(&result).
			Get(ctx, withdrawalsEndpoint+"/"+url.PathEscape(id))
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperror.New(apperror.CodeWithdrawalNotFound,
			apperror.WithVenue(g.config.Venue),
			apperror.WithContext(id))
	}
	if resp.IsError() {
		return nil, g.apiError(resp, "fetch_withdrawal")
	}

	return g.toWithdrawal(&result)
}

func (g *Gateway) toWithdrawal(w *withdrawalResponse) (*domain.Withdrawal, error) {
	amount := decimal.Zero
	if w.Amount != "" {
		parsed, err := decimal.NewFromString(w.Amount)
		if err != nil {
			return nil, apperror.New(apperror.CodeExchangeAPIError,
				apperror.WithVenue(g.config.Venue),
				apperror.WithContext(fmt.Sprintf("unparseable withdrawal amount %q", w.Amount)))
		}
		amount = parsed
	}

	return &domain.Withdrawal{
		ID:     w.ID,
		Token:  w.Currency,
		Amount: amount,
		Status: w.Status,
		TxHash: w.TxID,
	}, nil
}

func (g *Gateway) newRequest() httpclient.Request {
	return g.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("venue", g.config.Venue)),
		httpclient.WithResponseErrorHandler(bridgeErrorHandler),
	)
}

func (g *Gateway) apiError(resp *httpclient.Response, op string) error {
	return apperror.New(apperror.CodeExchangeAPIError,
		apperror.WithVenue(g.config.Venue),
		apperror.WithContext(fmt.Sprintf("%s: HTTP %d: %s", op, resp.StatusCode, resp.String())))
}
