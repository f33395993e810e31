package app

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

var oneHundred = decimal.NewFromInt(100)

// AnalyzerConfig holds the analyzer's fallback constants. The defaults are
// conservative: unknown fees are overestimated so marginal trades are
// rejected rather than executed at a loss.
type AnalyzerConfig struct {
	DefaultTradingFeeRate decimal.Decimal // fraction, applied when a venue cannot report fees
	DefaultWithdrawalFee  decimal.Decimal // quote units
	GasFeeEstimate        decimal.Decimal // quote units per settlement transfer
	HeuristicMinSpread    decimal.Decimal // percent; gate when fee data is unavailable
}

// DefaultAnalyzerConfig returns the standard fallback constants.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		DefaultTradingFeeRate: decimal.RequireFromString("0.001"),
		DefaultWithdrawalFee:  decimal.RequireFromString("5"),
		GasFeeEstimate:        decimal.RequireFromString("0.5"),
		HeuristicMinSpread:    decimal.RequireFromString("1.0"),
	}
}

// Analyzer computes expected net profit after trading fees, withdrawal fees
// and gas, and gates execution on the result.
type Analyzer struct {
	config AnalyzerConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewAnalyzer creates a profitability analyzer.
func NewAnalyzer(cfg AnalyzerConfig, log logger.LoggerInterface) *Analyzer {
	return &Analyzer{
		config: cfg,
		logger: log,
		tracer: otel.Tracer("execution"),
	}
}

// Assess computes the profitability of deploying notional quote units into
// an opportunity. Fee lookups are best-effort: when either venue cannot
// report its rates the assessment degrades to a minimum-spread heuristic
// instead of failing closed.
func (a *Analyzer) Assess(ctx context.Context, opp *domain.Opportunity, notional decimal.Decimal, buy, sell exchangeApp.Gateway) *domain.Assessment {
	ctx, span := a.tracer.Start(ctx, "execution.assess",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.ID),
			attribute.String("notional", notional.String()),
		))
	defer span.End()

	tokenAmount := notional.Div(opp.BuyPrice)
	grossRevenue := tokenAmount.Mul(opp.SellPrice)

	assessment := &domain.Assessment{
		TokenAmount:  tokenAmount,
		GrossRevenue: grossRevenue,
		GasFee:       a.config.GasFeeEstimate,
	}

	buyRate, buyOK := a.takerRate(ctx, buy)
	sellRate, sellOK := a.takerRate(ctx, sell)
	withdrawalFee, feeOK := a.withdrawalFee(ctx, buy, opp.Token, opp.BuyPrice)

	if !buyOK || !sellOK || !feeOK {
		// Degrade to the spread heuristic rather than blocking the trade
		// on missing fee data.
		assessment.HeuristicApplied = true
		assessment.Profitable = opp.SpreadPercent.GreaterThan(a.config.HeuristicMinSpread)
		assessment.BreakEvenSpread = a.config.HeuristicMinSpread
		span.SetAttributes(
			attribute.Bool("heuristic", true),
			attribute.Bool("profitable", assessment.Profitable),
		)
		a.logger.Warn(ctx, "fee lookup incomplete, using spread heuristic",
			"opportunity_id", opp.ID,
			"spread_percent", opp.SpreadPercent.String(),
			"min_spread", a.config.HeuristicMinSpread.String())
		return assessment
	}

	assessment.BuyFee = notional.Mul(buyRate)
	assessment.SellFee = grossRevenue.Mul(sellRate)
	assessment.WithdrawalFee = withdrawalFee
	assessment.NetProfit = grossRevenue.
		Sub(assessment.SellFee).
		Sub(notional).
		Sub(assessment.BuyFee).
		Sub(withdrawalFee).
		Sub(assessment.GasFee)
	assessment.Profitable = assessment.NetProfit.IsPositive()

	totalFees := assessment.BuyFee.
		Add(assessment.SellFee).
		Add(withdrawalFee).
		Add(assessment.GasFee)
	if notional.IsPositive() {
		assessment.BreakEvenSpread = totalFees.Div(notional).Mul(oneHundred)
	}

	span.SetAttributes(
		attribute.String("net_profit", assessment.NetProfit.String()),
		attribute.Bool("profitable", assessment.Profitable),
	)
	a.logger.Debug(ctx, "profitability assessed",
		"opportunity_id", opp.ID,
		"net_profit", assessment.NetProfit.String(),
		"break_even_spread", assessment.BreakEvenSpread.String(),
		"profitable", assessment.Profitable)

	return assessment
}

// takerRate returns a venue's taker fee rate, falling back to the default
// when the venue cannot report it.
func (a *Analyzer) takerRate(ctx context.Context, gw exchangeApp.Gateway) (decimal.Decimal, bool) {
	fees, err := gw.FetchTradingFees(ctx)
	if err != nil {
		a.logger.Warn(ctx, "trading fee fetch failed",
			"venue", gw.Venue(), "error", err)
		return a.config.DefaultTradingFeeRate, false
	}
	if fees.Taker.IsZero() && fees.Maker.IsZero() {
		return a.config.DefaultTradingFeeRate, true
	}
	return fees.Taker, true
}

// withdrawalFee returns the buy venue's withdrawal fee converted to quote
// units at the buy price.
func (a *Analyzer) withdrawalFee(ctx context.Context, gw exchangeApp.Gateway, token string, buyPrice decimal.Decimal) (decimal.Decimal, bool) {
	info, err := gw.FetchCurrencyInfo(ctx, token)
	if err != nil {
		a.logger.Warn(ctx, "currency info fetch failed",
			"venue", gw.Venue(), "token", token, "error", err)
		return a.config.DefaultWithdrawalFee, false
	}
	if info.WithdrawalFee.IsZero() {
		return a.config.DefaultWithdrawalFee, true
	}
	return info.WithdrawalFee.Mul(buyPrice), true
}
