package directory

import "context"

// StoreAPI is the read side used by the assessment engine plus the
// period template writes used by administrators.
type StoreAPI interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	ListSubordinatesAndJudged(ctx context.Context, employeeID string) ([]Employee, error)
	SearchEmployees(ctx context.Context, q EmployeeQuery) (EmployeePage, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	ListProductLines(ctx context.Context) ([]ProductLine, error)
	GetPeriod(ctx context.Context, periodID int64) (Period, error)
	ListPeriods(ctx context.Context, departmentID int64) ([]Period, error)
	CreatePeriod(ctx context.Context, period Period) (int64, error)
	Ping(ctx context.Context) error
}
