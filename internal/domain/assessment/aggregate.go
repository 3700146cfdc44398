package assessment

import (
	"math"
	"time"
)

// Score sums every professional and general line item.
func (c CompetencySubmission) Score() float64 {
	var total float64
	for _, item := range c.Professional {
		total += item.Score
	}
	for _, item := range c.General {
		total += item.Score
	}
	return roundScore(total)
}

func Grade(total float64) string {
	for _, tier := range gradeTiers {
		if total >= tier.min {
			return tier.grade
		}
	}
	return GradeC
}

// Merge overwrites only the categories present in sub and re-derives the
// total and grade from the merged record. Callers authorize sub first.
func Merge(rec Record, sub Submission, now time.Time) Record {
	if sub.Competency != nil {
		detail := cloneCompetency(*sub.Competency)
		score := detail.Score()
		rec.CompetencyScore = &score
		rec.CompetencyDetail = &detail
	}
	if sub.Product != nil {
		product := *sub.Product
		rec.ProductScore = &product
	}
	if sub.Bonus != nil {
		bonus := sub.Bonus.Score
		rec.Bonus = &bonus
		rec.BonusReason = sub.Bonus.Reason
	}
	rec.TotalScore = Total(rec)
	rec.Grade = Grade(rec.TotalScore)
	rec.LastModifiedAt = now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	return rec
}

// Total adds the three categories, counting absent ones as zero.
func Total(rec Record) float64 {
	return roundScore(valueOrZero(rec.CompetencyScore) + valueOrZero(rec.ProductScore) + valueOrZero(rec.Bonus))
}

// roundScore snaps v to scoreScale so 89.99999999999999 grades as 90.
func roundScore(v float64) float64 {
	return math.Round(v*scoreScale) / scoreScale
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func cloneCompetency(c CompetencySubmission) CompetencySubmission {
	c.Professional = append([]LineItem(nil), c.Professional...)
	c.General = append([]LineItem(nil), c.General...)
	return c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
