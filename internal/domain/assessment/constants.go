package assessment

// Category is one independently writable part of an assessment record.
type Category string

const (
	CategoryCompetency Category = "competency"
	CategoryProduct    Category = "product"
	CategoryBonus      Category = "bonus"
)

// PermissionLevel is informational; view access is a single flag.
type PermissionLevel int

const (
	PermissionNone   PermissionLevel = 0
	PermissionAdmin  PermissionLevel = 1
	PermissionLeader PermissionLevel = 2
	PermissionJudge  PermissionLevel = 3
)

func (l PermissionLevel) String() string {
	switch l {
	case PermissionAdmin:
		return "admin"
	case PermissionLeader:
		return "leader"
	case PermissionJudge:
		return "judge"
	default:
		return "none"
	}
}

const (
	GradeA     = "A"
	GradeBPlus = "B+"
	GradeB     = "B"
	GradeC     = "C"
)

// Grade tiers, checked top-down with >=.
var gradeTiers = []struct {
	min   float64
	grade string
}{
	{90, GradeA},
	{80, GradeBPlus},
	{70, GradeB},
}

// scoreScale is the precision scores and totals are kept at (4 decimals).
const scoreScale = 1e4

// Search paging bounds.
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

const (
	CompetencyModeScore = "score"
	CompetencyModeGrade = "grade"
)

const (
	OutcomeCommitted    = "committed"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeForbidden    = "forbidden"
	OutcomeNoPermission = "no_permission"
	OutcomeConflict     = "conflict"
	OutcomeStoreError   = "store_error"
)
