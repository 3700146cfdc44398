package assessment

import (
	"time"

	"perfreview/internal/domain/directory"
)

// LineItem is one scored row of the professional or general competency table.
type LineItem struct {
	Name     string  `json:"name"`
	Grade    string  `json:"grade,omitempty"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

// CompetencySubmission is stored verbatim as the record's competency detail.
type CompetencySubmission struct {
	Mode         string     `json:"mode,omitempty"`
	Professional []LineItem `json:"professional"`
	General      []LineItem `json:"general"`
}

type BonusSubmission struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Submission carries zero or more categories. A nil field means the
// category is absent and the stored value is left alone.
type Submission struct {
	Competency *CompetencySubmission `json:"competency,omitempty"`
	Product    *float64              `json:"product,omitempty"`
	Bonus      *BonusSubmission      `json:"bonus,omitempty"`
}

// Categories lists the categories present, in a fixed order.
func (s Submission) Categories() []Category {
	var out []Category
	if s.Competency != nil {
		out = append(out, CategoryCompetency)
	}
	if s.Product != nil {
		out = append(out, CategoryProduct)
	}
	if s.Bonus != nil {
		out = append(out, CategoryBonus)
	}
	return out
}

func (s Submission) Empty() bool {
	return s.Competency == nil && s.Product == nil && s.Bonus == nil
}

type SubmitRequest struct {
	TargetID   string     `json:"targetId"`
	PeriodID   int64      `json:"periodId"`
	Submission Submission `json:"submission"`
}

type Record struct {
	ID               string                `json:"id"`
	EmployeeID       string                `json:"employeeId"`
	PeriodID         int64                 `json:"periodId"`
	CompetencyScore  *float64              `json:"competencyScore,omitempty"`
	CompetencyDetail *CompetencySubmission `json:"competencyDetail,omitempty"`
	ProductScore     *float64              `json:"productScore,omitempty"`
	Bonus            *float64              `json:"bonus,omitempty"`
	BonusReason      string                `json:"bonusReason,omitempty"`
	TotalScore       float64               `json:"totalScore"`
	Grade            string                `json:"grade"`
	CreatedAt        time.Time             `json:"createdAt"`
	LastModifiedAt   time.Time             `json:"lastModifiedAt"`
	Version          int64                 `json:"version"`
}

type WritePermissions struct {
	Competency bool `json:"competency"`
	Product    bool `json:"product"`
	Bonus      bool `json:"bonus"`
}

func (p WritePermissions) Any() bool {
	return p.Competency || p.Product || p.Bonus
}

func (p WritePermissions) Allows(c Category) bool {
	switch c {
	case CategoryCompetency:
		return p.Competency
	case CategoryProduct:
		return p.Product
	case CategoryBonus:
		return p.Bonus
	}
	return false
}

type ViewPermission struct {
	HasPermission bool            `json:"hasPermission"`
	Level         PermissionLevel `json:"permissionLevel"`
}

// SearchRequest filters the period overview. Empty filters match everyone
// the caller may view.
type SearchRequest struct {
	PeriodID     int64
	DepartmentID int64
	LeaderID     string
	TopLeaderID  string
	Name         string
	EmployeeID   string
	Limit        int
	Offset       int
}

// RecordSummary is the score part of a record without competency detail.
type RecordSummary struct {
	ID              string    `json:"id"`
	CompetencyScore *float64  `json:"competencyScore,omitempty"`
	ProductScore    *float64  `json:"productScore,omitempty"`
	Bonus           *float64  `json:"bonus,omitempty"`
	TotalScore      float64   `json:"totalScore"`
	Grade           string    `json:"grade"`
	LastModifiedAt  time.Time `json:"lastModifiedAt"`
	Version         int64     `json:"version"`
}

func (r Record) Summary() RecordSummary {
	return RecordSummary{
		ID:              r.ID,
		CompetencyScore: r.CompetencyScore,
		ProductScore:    r.ProductScore,
		Bonus:           r.Bonus,
		TotalScore:      r.TotalScore,
		Grade:           r.Grade,
		LastModifiedAt:  r.LastModifiedAt,
		Version:         r.Version,
	}
}

// SearchResult pairs an employee with their record for the period. Record
// is nil until someone submits a category.
type SearchResult struct {
	Employee directory.Summary `json:"employee"`
	Record   *RecordSummary    `json:"record"`
}

type SearchPage struct {
	PeriodID int64          `json:"periodId"`
	Items    []SearchResult `json:"items"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}
