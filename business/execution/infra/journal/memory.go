// Package journal provides Journal implementations: an in-memory
// append-only log and a PostgreSQL-backed one.
package journal

import (
	"context"
	"sync"

	"github.com/fd1az/arbitrage-executor/business/execution/domain"
)

// Memory is an in-memory append-only journal. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []domain.StepRecord
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds a record to the log.
func (m *Memory) Append(_ context.Context, record domain.StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of the records for one opportunity, in append order.
func (m *Memory) Records(opportunityID string) []domain.StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.StepRecord
	for _, r := range m.records {
		if r.OpportunityID == opportunityID {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the total number of records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
