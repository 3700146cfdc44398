package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	return s.Store.GetEmployee(ctx, employeeID)
}

func (s *Service) GetPeriod(ctx context.Context, periodID int64) (Period, error) {
	return s.Store.GetPeriod(ctx, periodID)
}

// SubordinatesAndJudged returns the employees led or judged by employeeID,
// each listed once.
func (s *Service) SubordinatesAndJudged(ctx context.Context, employeeID string) ([]Employee, error) {
	employees, err := s.Store.ListSubordinatesAndJudged(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return DedupeByID(employees), nil
}

func (s *Service) SearchEmployees(ctx context.Context, q EmployeeQuery) (EmployeePage, error) {
	q.Name = strings.TrimSpace(q.Name)
	return s.Store.SearchEmployees(ctx, q)
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.Store.ListDepartments(ctx)
}

func (s *Service) ListProductLines(ctx context.Context) ([]ProductLine, error) {
	return s.Store.ListProductLines(ctx)
}

func (s *Service) ListPeriods(ctx context.Context, departmentID int64) ([]Period, error) {
	return s.Store.ListPeriods(ctx, departmentID)
}

func (s *Service) CreatePeriod(ctx context.Context, period Period) (int64, error) {
	period.Name = strings.TrimSpace(period.Name)
	var problems []error
	if period.Name == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if period.DepartmentID < 0 {
		problems = append(problems, errors.New("departmentId must not be negative"))
	}
	if len(problems) > 0 {
		return 0, fmt.Errorf("%w: %w", ErrPeriodInvalid, errors.Join(problems...))
	}
	return s.Store.CreatePeriod(ctx, period)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.Store.Ping(ctx)
}

// DedupeByID keeps the first occurrence of each employee id.
func DedupeByID(employees []Employee) []Employee {
	seen := make(map[string]struct{}, len(employees))
	out := make([]Employee, 0, len(employees))
	for _, emp := range employees {
		if _, ok := seen[emp.ID]; ok {
			continue
		}
		seen[emp.ID] = struct{}{}
		out = append(out, emp)
	}
	return out
}
