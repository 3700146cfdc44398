package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const employeeColumns = `
    id, name, position, is_sa, is_rj, is_pj,
    COALESCE(immediate_leader, ''), COALESCE(direct_judge_id, ''), COALESCE(top_leader, ''),
    department_id, product_id, is_manager`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.Position, &emp.IsSA, &emp.IsRJ, &emp.IsPJ,
		&emp.ImmediateLeader, &emp.DirectJudgeID, &emp.TopLeader,
		&emp.DepartmentID, &emp.ProductID, &emp.IsManager)
	return emp, err
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE id = $1", employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, employeeID)
	}
	if err != nil {
		return Employee{}, err
	}
	return emp, nil
}

func (s *Store) ListSubordinatesAndJudged(ctx context.Context, employeeID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT"+employeeColumns+`
    FROM employees
    WHERE immediate_leader = $1 OR direct_judge_id = $1
    ORDER BY id
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// employeeFilter renders q as a WHERE clause with positional args.
func employeeFilter(q EmployeeQuery) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}
	if q.DepartmentID > 0 {
		add("department_id = ?", q.DepartmentID)
	}
	if q.LeaderID != "" {
		add("immediate_leader = ?", q.LeaderID)
	}
	if q.TopLeaderID != "" {
		add("top_leader = ?", q.TopLeaderID)
	}
	if q.EmployeeID != "" {
		add("id = ?", q.EmployeeID)
	}
	if q.Name != "" {
		add("name ILIKE '%' || ? || '%'", q.Name)
	}
	if q.RelatedTo != "" {
		add("(immediate_leader = ? OR direct_judge_id = ?)", q.RelatedTo)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) SearchEmployees(ctx context.Context, q EmployeeQuery) (EmployeePage, error) {
	where, args := employeeFilter(q)

	var page EmployeePage
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(*) FROM employees"+where, args...).Scan(&page.Total); err != nil {
		return EmployeePage{}, err
	}

	query := "SELECT" + employeeColumns + " FROM employees" + where + " ORDER BY id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return EmployeePage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return EmployeePage{}, err
		}
		page.Employees = append(page.Employees, emp)
	}
	return page, rows.Err()
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name, avg_attendance FROM departments ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var dep Department
		if err := rows.Scan(&dep.ID, &dep.Name, &dep.AvgAttendance); err != nil {
			return nil, err
		}
		departments = append(departments, dep)
	}
	return departments, rows.Err()
}

func (s *Store) ListProductLines(ctx context.Context) ([]ProductLine, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, name FROM product_lines ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ProductLine
	for rows.Next() {
		var product ProductLine
		if err := rows.Scan(&product.ID, &product.Name); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

const periodColumns = `
    id, name, score_rule, criteria_json, deadline, forced_distribution,
    punishment_json, COALESCE(department_id, 0), created_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var period Period
	var criteria, punishment []byte
	if err := row.Scan(&period.ID, &period.Name, &period.ScoreRule, &criteria, &period.Deadline,
		&period.ForcedDistribution, &punishment, &period.DepartmentID, &period.CreatedAt); err != nil {
		return Period{}, err
	}
	period.Criteria = criteria
	period.PunishmentRule = punishment
	return period, nil
}

func (s *Store) GetPeriod(ctx context.Context, periodID int64) (Period, error) {
	period, err := scanPeriod(s.DB.QueryRow(ctx, "SELECT"+periodColumns+" FROM assessment_periods WHERE id = $1", periodID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("%w: %d", ErrPeriodNotFound, periodID)
	}
	if err != nil {
		return Period{}, err
	}
	return period, nil
}

func (s *Store) ListPeriods(ctx context.Context, departmentID int64) ([]Period, error) {
	query := "SELECT" + periodColumns + " FROM assessment_periods"
	args := []any{}
	if departmentID > 0 {
		query += " WHERE department_id = $1"
		args = append(args, departmentID)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (s *Store) CreatePeriod(ctx context.Context, period Period) (int64, error) {
	var id int64
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO assessment_periods (name, score_rule, criteria_json, deadline, forced_distribution, punishment_json, department_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, period.Name, period.ScoreRule, jsonOrNil(period.Criteria), period.Deadline, period.ForcedDistribution,
		jsonOrNil(period.PunishmentRule), nullIfZero(period.DepartmentID)).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.DB.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func jsonOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nullIfZero(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
