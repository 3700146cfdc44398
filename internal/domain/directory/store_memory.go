package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore serves the directory from process memory. It is loaded once
// from the organisation seed and only periods are written afterwards.
type MemoryStore struct {
	mu           sync.RWMutex
	employees    map[string]Employee
	departments  []Department
	productLines []ProductLine
	periods      map[int64]Period
	nextPeriodID int64
}

func NewMemoryStore(org Organisation) *MemoryStore {
	store := &MemoryStore{
		employees:    make(map[string]Employee, len(org.Employees)),
		departments:  append([]Department(nil), org.Departments...),
		productLines: append([]ProductLine(nil), org.ProductLines...),
		periods:      make(map[int64]Period, len(org.Periods)),
	}
	for _, emp := range org.Employees {
		store.employees[emp.ID] = emp
	}
	for _, period := range org.Periods {
		if period.CreatedAt.IsZero() {
			period.CreatedAt = time.Now().UTC()
		}
		store.periods[period.ID] = period
		if period.ID > store.nextPeriodID {
			store.nextPeriodID = period.ID
		}
	}
	return store
}

func (m *MemoryStore) GetEmployee(_ context.Context, employeeID string) (Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeID]
	if !ok {
		return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, employeeID)
	}
	return emp, nil
}

func (m *MemoryStore) ListSubordinatesAndJudged(_ context.Context, employeeID string) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Employee
	for _, emp := range m.employees {
		if emp.ImmediateLeader == employeeID || emp.DirectJudgeID == employeeID {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SearchEmployees(_ context.Context, q EmployeeQuery) (EmployeePage, error) {
	m.mu.RLock()
	var matched []Employee
	for _, emp := range m.employees {
		if q.Matches(emp) {
			matched = append(matched, emp)
		}
	}
	m.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := EmployeePage{Total: len(matched)}
	start := min(max(q.Offset, 0), len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, end)
	}
	page.Employees = append([]Employee(nil), matched[start:end]...)
	return page, nil
}

func (m *MemoryStore) ListDepartments(context.Context) ([]Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Department(nil), m.departments...), nil
}

func (m *MemoryStore) ListProductLines(context.Context) ([]ProductLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ProductLine(nil), m.productLines...), nil
}

func (m *MemoryStore) GetPeriod(_ context.Context, periodID int64) (Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	period, ok := m.periods[periodID]
	if !ok {
		return Period{}, fmt.Errorf("%w: %d", ErrPeriodNotFound, periodID)
	}
	return period, nil
}

func (m *MemoryStore) ListPeriods(_ context.Context, departmentID int64) ([]Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Period, 0, len(m.periods))
	for _, period := range m.periods {
		if departmentID > 0 && period.DepartmentID != departmentID {
			continue
		}
		out = append(out, period)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CreatePeriod(_ context.Context, period Period) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPeriodID++
	period.ID = m.nextPeriodID
	period.CreatedAt = time.Now().UTC()
	m.periods[period.ID] = period
	return period.ID, nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
