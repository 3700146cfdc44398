package assessment

import (
	"fmt"
	"strings"
)

// Validate checks the request shape before any lookup or permission check.
func (r *SubmitRequest) Validate() error {
	verr := &ValidationError{}
	r.TargetID = strings.TrimSpace(r.TargetID)
	if r.TargetID == "" {
		verr.add("targetId", "is required")
	}
	if r.PeriodID <= 0 {
		verr.add("periodId", "must be a positive id")
	}

	sub := r.Submission
	if sub.Competency != nil {
		c := sub.Competency
		switch c.Mode {
		case "", CompetencyModeScore, CompetencyModeGrade:
		default:
			verr.add("submission.competency.mode", fmt.Sprintf("must be %q or %q", CompetencyModeScore, CompetencyModeGrade))
		}
		if len(c.Professional)+len(c.General) == 0 {
			verr.add("submission.competency", "must contain at least one line item")
		}
		validateItems(verr, "submission.competency.professional", c.Professional)
		validateItems(verr, "submission.competency.general", c.General)
	}
	if sub.Product != nil {
		if !finite(*sub.Product) || *sub.Product < 0 {
			verr.add("submission.product", "must be a non-negative number")
		}
	}
	if sub.Bonus != nil && !finite(sub.Bonus.Score) {
		verr.add("submission.bonus.score", "must be a number")
	}

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

// Validate trims the filters and clamps paging to the search bounds.
func (r *SearchRequest) Validate() error {
	verr := &ValidationError{}
	if r.PeriodID <= 0 {
		verr.add("periodId", "must be a positive id")
	}
	if r.DepartmentID < 0 {
		verr.add("departmentId", "must not be negative")
	}
	r.LeaderID = strings.TrimSpace(r.LeaderID)
	r.TopLeaderID = strings.TrimSpace(r.TopLeaderID)
	r.Name = strings.TrimSpace(r.Name)
	r.EmployeeID = strings.TrimSpace(r.EmployeeID)
	if r.Limit <= 0 {
		r.Limit = DefaultSearchLimit
	}
	r.Limit = min(r.Limit, MaxSearchLimit)
	r.Offset = max(r.Offset, 0)

	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func validateItems(verr *ValidationError, field string, items []LineItem) {
	for i, item := range items {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		if strings.TrimSpace(item.Name) == "" {
			verr.add(prefix+".name", "is required")
		}
		if !finite(item.Score) || item.Score < 0 {
			verr.add(prefix+".score", "must be a non-negative number")
			continue
		}
		if item.MaxScore > 0 && item.Score > item.MaxScore {
			verr.add(prefix+".score", fmt.Sprintf("must not exceed %g", item.MaxScore))
		}
	}
}
