// Package app contains the saga orchestrator and its collaborator ports.
package app

import (
	"context"

	"github.com/fd1az/arbitrage-executor/business/execution/domain"
)

// Journal is the append-only step log. The orchestrator writes after every
// step transition and on every waiter poll; it never reads back.
type Journal interface {
	Append(ctx context.Context, record domain.StepRecord) error
}

// Notifier announces saga lifecycle events. Calls are fire-and-forget;
// implementations must swallow their own failures.
type Notifier interface {
	NotifyStarted(ctx context.Context, opp *domain.Opportunity, amount string)
	NotifyCompleted(ctx context.Context, opp *domain.Opportunity, result *domain.Settlement)
	NotifyFailed(ctx context.Context, opp *domain.Opportunity, step domain.Step, reason string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifyStarted(context.Context, *domain.Opportunity, string)               {}
func (NopNotifier) NotifyCompleted(context.Context, *domain.Opportunity, *domain.Settlement) {}
func (NopNotifier) NotifyFailed(context.Context, *domain.Opportunity, domain.Step, string)   {}
