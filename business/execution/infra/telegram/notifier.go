// Package telegram implements the execution Notifier over the Telegram Bot
// API. All sends are best-effort: failures are logged and swallowed.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const sendTimeout = 5 * time.Second

// Ensure Notifier implements the port.
var _ app.Notifier = (*Notifier)(nil)

// Notifier sends saga lifecycle messages to a Telegram chat.
type Notifier struct {
	bot    *bot.Bot
	chatID string
	logger logger.LoggerInterface
}

// New creates a Telegram notifier.
func New(token, chatID string, log logger.LoggerInterface) (*Notifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: b, chatID: chatID, logger: log}, nil
}

func (n *Notifier) send(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.logger.Warn(ctx, "telegram send failed", "error", err)
	}
}

// NotifyStarted announces the start of an execution.
func (n *Notifier) NotifyStarted(ctx context.Context, opp *domain.Opportunity, amount string) {
	n.send(ctx, fmt.Sprintf(
		"🚀 Arbitrage execution started\n%s: buy %s @ %s, sell %s @ %s\nAmount: %s",
		opp.Symbol,
		opp.BuyVenue, opp.BuyPrice,
		opp.SellVenue, opp.SellPrice,
		amount))
}

// NotifyCompleted announces a completed execution with its result.
func (n *Notifier) NotifyCompleted(ctx context.Context, opp *domain.Opportunity, result *domain.Settlement) {
	mode := "live"
	if result.Simulated {
		mode = "simulated"
	}
	n.send(ctx, fmt.Sprintf(
		"✅ Arbitrage completed (%s)\n%s\nProfit: %s (%s%%)\nElapsed: %s",
		mode,
		opp.Symbol,
		result.Profit, result.ProfitPercent.StringFixed(2),
		result.Elapsed.Round(time.Second)))
}

// NotifyFailed announces a failed execution with the failing step.
func (n *Notifier) NotifyFailed(ctx context.Context, opp *domain.Opportunity, step domain.Step, reason string) {
	n.send(ctx, fmt.Sprintf(
		"❌ Arbitrage failed\n%s\nStep: %s\nReason: %s\nFunds may be mid-transfer; manual reconciliation may be required.",
		opp.Symbol, step, reason))
}
