package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	exchangeApp "github.com/fd1az/arbitrage-executor/business/exchange/app"
	exchangeDomain "github.com/fd1az/arbitrage-executor/business/exchange/domain"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	settlementApp "github.com/fd1az/arbitrage-executor/business/settlement/app"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/clock"
	"github.com/fd1az/arbitrage-executor/internal/logger"
	"github.com/fd1az/arbitrage-executor/internal/retry"
)

// depositTolerance accepts a credited amount down to 99% of the expected
// transfer, absorbing rounding and venue-side fee deduction.
var depositTolerance = decimal.RequireFromString("0.99")

// WaiterConfig holds poll intervals and hard timeouts for the three waits.
type WaiterConfig struct {
	MinConfirmations     uint64
	ConfirmationInterval time.Duration
	ConfirmationTimeout  time.Duration

	WithdrawalInterval time.Duration
	WithdrawalTimeout  time.Duration

	DepositInterval time.Duration
	DepositTimeout  time.Duration

	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// DefaultWaiterConfig returns the standard intervals: confirmations poll
// fast on a sub-minute-finality chain, venue-side waits poll slower with a
// generous ceiling.
func DefaultWaiterConfig() WaiterConfig {
	return WaiterConfig{
		MinConfirmations:     1,
		ConfirmationInterval: 3 * time.Second,
		ConfirmationTimeout:  600 * time.Second,
		WithdrawalInterval:   10 * time.Second,
		WithdrawalTimeout:    1800 * time.Second,
		DepositInterval:      30 * time.Second,
		DepositTimeout:       1800 * time.Second,
		RetryMaxAttempts:     3,
		RetryInitialDelay:    2 * time.Second,
	}
}

// Waiters implements the three polling waits. Each wait journals every poll,
// blocks only its own saga, and fails with WAIT_TIMEOUT once its ceiling
// passes. Time flows through an injected clock so tests can run without
// real delay.
type Waiters struct {
	config  WaiterConfig
	clock   clock.Clock
	journal Journal
	logger  logger.LoggerInterface
}

// NewWaiters creates the waiter set.
func NewWaiters(cfg WaiterConfig, clk clock.Clock, journal Journal, log logger.LoggerInterface) *Waiters {
	return &Waiters{
		config:  cfg,
		clock:   clk,
		journal: journal,
		logger:  log,
	}
}

func (w *Waiters) retryOpts() []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(w.config.RetryMaxAttempts),
		retry.WithInitialDelay(w.config.RetryInitialDelay),
		retry.WithClock(w.clock),
	}
}

func (w *Waiters) journalPoll(ctx context.Context, oppID string, step domain.Step, status domain.StepStatus, details string, live bool) {
	rec := domain.StepRecord{
		OpportunityID: oppID,
		Step:          step,
		Status:        status,
		Details:       details,
		Live:          live,
		Timestamp:     w.clock.Now(),
	}
	if err := w.journal.Append(ctx, rec); err != nil {
		w.logger.Warn(ctx, "journal append failed",
			"opportunity_id", oppID, "step", step, "error", err)
	}
}

// AwaitConfirmation polls the chain until the transaction has at least the
// configured number of confirmations.
func (w *Waiters) AwaitConfirmation(ctx context.Context, settle *settlementApp.SettlementService, oppID string, step domain.Step, txHash string, live bool) error {
	deadline := w.clock.Now().Add(w.config.ConfirmationTimeout)

	type confState struct {
		confs uint64
		mined bool
	}

	for {
		state, err := retry.Do(ctx, func(ctx context.Context) (confState, error) {
			confs, mined, err := settle.Confirmations(ctx, txHash)
			return confState{confs: confs, mined: mined}, err
		}, w.retryOpts()...)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeExternalOperationFailed,
				fmt.Sprintf("receipt poll for %s", txHash))
		}

		w.journalPoll(ctx, oppID, step, domain.StepConfirming,
			fmt.Sprintf("tx=%s mined=%t confirmations=%d", txHash, state.mined, state.confs), live)

		if state.mined && state.confs >= w.config.MinConfirmations {
			w.logger.Info(ctx, "transaction confirmed",
				"tx_hash", txHash, "confirmations", state.confs)
			return nil
		}

		if !w.clock.Now().Before(deadline) {
			return apperror.New(apperror.CodeWaitTimeout,
				apperror.WithStep(string(step)),
				apperror.WithContext(fmt.Sprintf("transaction %s unconfirmed after %s", txHash, w.config.ConfirmationTimeout)))
		}
		if err := w.clock.Sleep(ctx, w.config.ConfirmationInterval); err != nil {
			return err
		}
	}
}

// AwaitWithdrawal polls a venue withdrawal until it reaches a terminal
// state, returning the on-chain transaction hash on success. Not-found
// responses are treated as transient; venue ledgers can lag the submit call.
func (w *Waiters) AwaitWithdrawal(ctx context.Context, gw exchangeApp.Gateway, oppID string, step domain.Step, withdrawalID string, live bool) (string, error) {
	deadline := w.clock.Now().Add(w.config.WithdrawalTimeout)

	for {
		wd, err := retry.Do(ctx, func(ctx context.Context) (*exchangeDomain.Withdrawal, error) {
			return gw.FetchWithdrawal(ctx, withdrawalID)
		}, w.retryOpts()...)

		switch {
		case err == nil:
			w.journalPoll(ctx, oppID, step, domain.StepChecking,
				fmt.Sprintf("withdrawal=%s status=%s", withdrawalID, wd.Status), live)

			if wd.Succeeded() {
				w.logger.Info(ctx, "withdrawal completed",
					"withdrawal_id", withdrawalID, "tx_hash", wd.TxHash)
				return wd.TxHash, nil
			}
			if wd.Failed() {
				return "", apperror.New(apperror.CodeExternalOperationFailed,
					apperror.WithStep(string(step)),
					apperror.WithVenue(gw.Venue()),
					apperror.WithContext(fmt.Sprintf("withdrawal %s reached terminal status %q", withdrawalID, wd.Status)))
			}

		case apperror.IsCode(err, apperror.CodeWithdrawalNotFound):
			w.journalPoll(ctx, oppID, step, domain.StepChecking,
				fmt.Sprintf("withdrawal=%s not yet visible", withdrawalID), live)

		default:
			return "", apperror.Wrap(err, apperror.CodeExternalOperationFailed,
				fmt.Sprintf("withdrawal poll for %s", withdrawalID))
		}

		if !w.clock.Now().Before(deadline) {
			return "", apperror.New(apperror.CodeWaitTimeout,
				apperror.WithStep(string(step)),
				apperror.WithContext(fmt.Sprintf("withdrawal %s not terminal after %s", withdrawalID, w.config.WithdrawalTimeout)))
		}
		if err := w.clock.Sleep(ctx, w.config.WithdrawalInterval); err != nil {
			return "", err
		}
	}
}

// AwaitDeposit polls a venue's free balance until it has grown by at least
// 99% of the expected amount over the pre-transfer snapshot. Fetch errors
// are tolerated until the timeout; a late deposit is never declared failed
// early.
func (w *Waiters) AwaitDeposit(ctx context.Context, gw exchangeApp.Gateway, oppID string, step domain.Step, asset string, initial, expected decimal.Decimal, live bool) error {
	deadline := w.clock.Now().Add(w.config.DepositTimeout)
	required := expected.Mul(depositTolerance)

	for {
		current, err := retry.Do(ctx, func(ctx context.Context) (decimal.Decimal, error) {
			return gw.FetchBalance(ctx, asset)
		}, w.retryOpts()...)

		if err != nil {
			w.journalPoll(ctx, oppID, step, domain.StepChecking,
				fmt.Sprintf("balance fetch failed: %v", err), live)
			w.logger.Warn(ctx, "deposit poll balance fetch failed",
				"venue", gw.Venue(), "asset", asset, "error", err)
		} else {
			increase := current.Sub(initial)
			w.journalPoll(ctx, oppID, step, domain.StepChecking,
				fmt.Sprintf("asset=%s initial=%s current=%s increase=%s expected=%s",
					asset, initial, current, increase, expected), live)

			if increase.GreaterThanOrEqual(required) {
				w.logger.Info(ctx, "deposit credited",
					"venue", gw.Venue(), "asset", asset, "increase", increase.String())
				return nil
			}
		}

		if !w.clock.Now().Before(deadline) {
			return apperror.New(apperror.CodeWaitTimeout,
				apperror.WithStep(string(step)),
				apperror.WithVenue(gw.Venue()),
				apperror.WithContext(fmt.Sprintf("deposit of %s %s not credited after %s", expected, asset, w.config.DepositTimeout)))
		}
		if err := w.clock.Sleep(ctx, w.config.DepositInterval); err != nil {
			return err
		}
	}
}
