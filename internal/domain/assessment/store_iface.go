package assessment

import (
	"context"

	"perfreview/internal/domain/directory"
)

// Store opens units of work over assessment records and serves reads.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, employeeID string, periodID int64) (Record, bool, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]Record, error)
	ListByPeriod(ctx context.Context, periodID int64, employeeIDs []string) ([]Record, error)
	Ping(ctx context.Context) error
}

// Tx is one read-merge-write cycle. Save is a compare-and-swap on Version:
// expectedVersion 0 creates the record, otherwise the stored version must
// still equal expectedVersion. A lost race surfaces as ErrConflict from
// Save or Commit.
type Tx interface {
	Get(ctx context.Context, employeeID string, periodID int64) (Record, bool, error)
	Save(ctx context.Context, rec Record, expectedVersion int64) (Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Directory interface {
	GetEmployee(ctx context.Context, employeeID string) (directory.Employee, error)
	GetPeriod(ctx context.Context, periodID int64) (directory.Period, error)
	SubordinatesAndJudged(ctx context.Context, employeeID string) ([]directory.Employee, error)
	SearchEmployees(ctx context.Context, q directory.EmployeeQuery) (directory.EmployeePage, error)
}

// Observer receives submission outcomes. Nil disables reporting.
type Observer interface {
	SubmissionOutcome(outcome string)
	ConflictRetry()
}
