package directory

import (
	"encoding/json"
	"strings"
	"time"
)

type Employee struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Position        string `json:"position" yaml:"position"`
	IsSA            bool   `json:"isSA" yaml:"isSA"`
	IsRJ            bool   `json:"isRJ" yaml:"isRJ"`
	IsPJ            bool   `json:"isPJ" yaml:"isPJ"`
	ImmediateLeader string `json:"immediateLeader,omitempty" yaml:"immediateLeader"`
	DirectJudgeID   string `json:"directJudgeId,omitempty" yaml:"directJudgeId"`
	TopLeader       string `json:"topLeader,omitempty" yaml:"topLeader"`
	DepartmentID    int64  `json:"departmentId" yaml:"departmentId"`
	ProductID       int64  `json:"productId" yaml:"productId"`
	IsManager       bool   `json:"isManager" yaml:"isManager"`
}

// Summary is the worklist projection of an employee.
type Summary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Position        string `json:"position"`
	DepartmentID    int64  `json:"departmentId"`
	ProductID       int64  `json:"productId"`
	IsManager       bool   `json:"isManager"`
	ImmediateLeader string `json:"immediateLeader,omitempty"`
	DirectJudgeID   string `json:"directJudgeId,omitempty"`
	TopLeader       string `json:"topLeader,omitempty"`
}

func (e Employee) Summary() Summary {
	return Summary{
		ID:              e.ID,
		Name:            e.Name,
		Position:        e.Position,
		DepartmentID:    e.DepartmentID,
		ProductID:       e.ProductID,
		IsManager:       e.IsManager,
		ImmediateLeader: e.ImmediateLeader,
		DirectJudgeID:   e.DirectJudgeID,
		TopLeader:       e.TopLeader,
	}
}

// EmployeeQuery filters SearchEmployees. Zero-valued fields match everyone.
// RelatedTo keeps only employees that id leads or judges.
type EmployeeQuery struct {
	DepartmentID int64
	LeaderID     string
	TopLeaderID  string
	Name         string
	EmployeeID   string
	RelatedTo    string
	Limit        int
	Offset       int
}

// Matches reports whether emp passes every filter in q. Name is a
// case-insensitive substring match.
func (q EmployeeQuery) Matches(emp Employee) bool {
	switch {
	case q.DepartmentID > 0 && emp.DepartmentID != q.DepartmentID:
		return false
	case q.LeaderID != "" && emp.ImmediateLeader != q.LeaderID:
		return false
	case q.TopLeaderID != "" && emp.TopLeader != q.TopLeaderID:
		return false
	case q.EmployeeID != "" && emp.ID != q.EmployeeID:
		return false
	case q.Name != "" && !strings.Contains(strings.ToLower(emp.Name), strings.ToLower(q.Name)):
		return false
	case q.RelatedTo != "" && emp.ImmediateLeader != q.RelatedTo && emp.DirectJudgeID != q.RelatedTo:
		return false
	}
	return true
}

// EmployeePage is one id-ordered page of a search plus the unpaged count.
type EmployeePage struct {
	Employees []Employee
	Total     int
}

type Department struct {
	ID            int64   `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	AvgAttendance float64 `json:"avgAttendance" yaml:"avgAttendance"`
}

type ProductLine struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Period is an assessment template that records point at.
type Period struct {
	ID                 int64           `json:"id" yaml:"id"`
	Name               string          `json:"name" yaml:"name"`
	ScoreRule          string          `json:"scoreRule" yaml:"scoreRule"`
	Criteria           json.RawMessage `json:"criteria,omitempty" yaml:"-"`
	Deadline           *time.Time      `json:"deadline,omitempty" yaml:"deadline"`
	ForcedDistribution bool            `json:"forcedDistribution" yaml:"forcedDistribution"`
	PunishmentRule     json.RawMessage `json:"punishmentRule,omitempty" yaml:"-"`
	DepartmentID       int64           `json:"departmentId" yaml:"departmentId"`
	CreatedAt          time.Time       `json:"createdAt" yaml:"-"`
}

// Organisation is the full directory snapshot used for seeding.
type Organisation struct {
	Departments  []Department
	ProductLines []ProductLine
	Employees    []Employee
	Periods      []Period
}
