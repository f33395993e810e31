package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	settlementApp "github.com/fd1az/arbitrage-executor/business/settlement/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/clock"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/retry"
)

const (
	tracerName = "execution"
	meterName  = "execution"
)

// ExecutorConfig holds execution settings.
type ExecutorConfig struct {
	// LiveMode marks deployments that settle with real funds; it requires
	// the caller's explicit confirmation flag on every execution.
	LiveMode bool
	// DryRun replaces all external calls with a journaled simulation.
	DryRun bool

	QuoteCurrency     string
	Network           string // venue-side network identifier for transfers
	SlippageTolerance decimal.Decimal
	MaxTradeAmount    decimal.Decimal

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration

	Wallet domain.Wallet
}

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	executions metric.Int64Counter
	profit     metric.Float64Histogram
	duration   metric.Float64Histogram
}

// Executor runs arbitrage executions. Each call drives one opportunity
// through one of three variants: the full wallet-transfer saga, the
// pre-positioned-balance path, or the dry-run simulation. Executions are
// independent; the Executor itself is safe for concurrent use.
type Executor struct {
	config   ExecutorConfig
	registry *exchangeApp.Registry
	settle   *settlementApp.SettlementService // nil without a chain RPC
	analyzer *Analyzer
	waiters  *Waiters
	journal  Journal
	notifier Notifier
	clock    clock.Clock
	logger   logger.LoggerInterface
	tracer   trace.Tracer
	metrics  *executorMetrics
}

// NewExecutor creates an executor.
func NewExecutor(
	cfg ExecutorConfig,
	registry *exchangeApp.Registry,
	settle *settlementApp.SettlementService,
	analyzer *Analyzer,
	waiters *Waiters,
	journal Journal,
	notifier Notifier,
	clk clock.Clock,
	log logger.LoggerInterface,
) (*Executor, error) {
	if notifier == nil {
		notifier = NopNotifier{}
	}

	e := &Executor{
		config:   cfg,
		registry: registry,
		settle:   settle,
		analyzer: analyzer,
		waiters:  waiters,
		journal:  journal,
		notifier: notifier,
		clock:    clk,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executions, err = meter.Int64Counter(
		"executions_total",
		metric.WithDescription("Total saga executions by outcome"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	e.metrics.profit, err = meter.Float64Histogram(
		"execution_profit",
		metric.WithDescription("Realized profit per completed execution"),
	)
	if err != nil {
		return err
	}

	e.metrics.duration, err = meter.Float64Histogram(
		"execution_duration_seconds",
		metric.WithDescription("Wall-clock duration per execution"),
		metric.WithUnit("s"),
	)
	return err
}

// Execute runs one opportunity to a terminal state. The opportunity's
// status is owned by this method for the duration of the call.
func (e *Executor) Execute(ctx context.Context, opp *domain.Opportunity, req domain.Request) (*domain.Settlement, error) {
	ctx, span := e.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.ID),
			attribute.String("amount", req.Amount.String()),
			attribute.Bool("dry_run", e.config.DryRun),
		))
	defer span.End()

	// Gates, in order, before any side effect.
	if err := opp.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid opportunity")
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("amount must be positive"))
	}
	if e.config.MaxTradeAmount.IsPositive() && req.Amount.GreaterThan(e.config.MaxTradeAmount) {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext(fmt.Sprintf("amount %s exceeds max trade amount %s",
				req.Amount, e.config.MaxTradeAmount)))
	}
	if e.config.LiveMode && !e.config.DryRun && !req.Confirmed {
		return nil, apperror.New(apperror.CodeConfirmationRequired)
	}

	start := e.clock.Now()
	opp.Status = domain.StatusExecuting
	e.notifier.NotifyStarted(ctx, opp, req.Amount.String())

	result, err := e.dispatch(ctx, opp, req)
	elapsed := e.clock.Now().Sub(start)
	e.metrics.duration.Record(ctx, elapsed.Seconds())

	if err != nil {
		opp.Status = domain.StatusFailed
		failedStep := domain.Step(apperror.StepOf(err))
		if failedStep == "" {
			failedStep = domain.StepProfitabilityCheck
		}

		e.journalStep(ctx, opp.ID, failedStep, domain.StepFailed,
			fmt.Sprintf("elapsed=%s error=%v", elapsed, err), e.liveFunds())
		e.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		e.notifier.NotifyFailed(ctx, opp, failedStep, err.Error())

		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		e.logger.Error(ctx, "execution failed",
			"opportunity_id", opp.ID,
			"step", failedStep,
			"elapsed", elapsed.String(),
			"error", err)
		return nil, err
	}

	result.Elapsed = elapsed
	opp.Status = domain.StatusCompleted

	profit, _ := result.Profit.Float64()
	e.metrics.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "completed")))
	e.metrics.profit.Record(ctx, profit)
	e.notifier.NotifyCompleted(ctx, opp, result)

	span.SetAttributes(attribute.String("profit", result.Profit.String()))
	span.SetStatus(codes.Ok, "completed")
	e.logger.Info(ctx, "execution completed",
		"opportunity_id", opp.ID,
		"profit", result.Profit.String(),
		"elapsed", elapsed.String(),
		"simulated", result.Simulated)

	return result, nil
}

// dispatch selects the execution variant.
func (e *Executor) dispatch(ctx context.Context, opp *domain.Opportunity, req domain.Request) (*domain.Settlement, error) {
	if e.config.DryRun {
		return e.runSimulated(ctx, opp, req)
	}

	buy, err := e.registry.Get(ctx, opp.BuyVenue)
	if err != nil {
		return nil, stepError(err, domain.StepVenueResolution)
	}
	sell, err := e.registry.Get(ctx, opp.SellVenue)
	if err != nil {
		return nil, stepError(err, domain.StepVenueResolution)
	}

	if e.config.Wallet.Configured() && e.settle != nil {
		return e.runFullSaga(ctx, opp, req, buy, sell)
	}
	return e.runDirect(ctx, opp, req, buy, sell)
}

// liveFunds reports whether this deployment's steps touch real funds.
func (e *Executor) liveFunds() bool {
	return e.config.LiveMode && !e.config.DryRun
}

func (e *Executor) retryOpts() []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(e.config.RetryMaxAttempts),
		retry.WithInitialDelay(e.config.RetryInitialDelay),
		retry.WithClock(e.clock),
	}
}

func (e *Executor) journalStep(ctx context.Context, oppID string, step domain.Step, status domain.StepStatus, details string, live bool) {
	rec := domain.StepRecord{
		OpportunityID: oppID,
		Step:          step,
		Status:        status,
		Details:       details,
		Live:          live,
		Timestamp:     e.clock.Now(),
	}
	if err := e.journal.Append(ctx, rec); err != nil {
		e.logger.Warn(ctx, "journal append failed",
			"opportunity_id", oppID, "step", step, "error", err)
	}
}

// stepError tags an error with the step it failed in, preserving an
// existing step tag from deeper in the call chain.
func stepError(err error, step domain.Step) error {
	if err == nil {
		return nil
	}
	if apperror.StepOf(err) != "" {
		return err
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return apperror.New(apperror.CodeExternalOperationFailed,
			apperror.WithStep(string(step)),
			apperror.WithCause(err))
	}
	appErr.Step = string(step)
	return appErr
}
