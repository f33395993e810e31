// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/arbitrage-executor/business/execution/app"
	"github.com/fd1az/arbitrage-executor/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor = di.NewToken[*app.Executor]("execution.Executor")
)

// Private dependency tokens - internal to execution module
var (
	Journal  = di.NewToken[app.Journal]("execution:journal")
	Notifier = di.NewToken[app.Notifier]("execution:notifier")
	Analyzer = di.NewToken[*app.Analyzer]("execution:analyzer")
	Waiters  = di.NewToken[*app.Waiters]("execution:waiters")
)

// Helper functions for type-safe access
func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetJournal(c di.ServiceRegistry) app.Journal {
	return di.GetToken(c, Journal)
}

func GetNotifier(c di.ServiceRegistry) app.Notifier {
	return di.GetToken(c, Notifier)
}

func GetAnalyzer(c di.ServiceRegistry) *app.Analyzer {
	return di.GetToken(c, Analyzer)
}

func GetWaiters(c di.ServiceRegistry) *app.Waiters {
	return di.GetToken(c, Waiters)
}
