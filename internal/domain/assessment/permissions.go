package assessment

import (
	"perfreview/internal/domain/auth"
	"perfreview/internal/domain/directory"
)

// ResolveWrite computes which categories caller may write for target.
// Only the target's own leader and judge pointers are consulted.
func ResolveWrite(caller auth.Identity, target directory.Employee) WritePermissions {
	isLeader := target.ImmediateLeader != "" && target.ImmediateLeader == caller.EmployeeID
	isJudge := target.DirectJudgeID != "" && target.DirectJudgeID == caller.EmployeeID
	return WritePermissions{
		Competency: caller.IsSA || (caller.IsRJ && isLeader),
		Product:    caller.IsSA || (caller.IsPJ && isJudge),
		Bonus:      caller.IsSA,
	}
}

// Authorize fails with an *AuthorizationError naming every category in sub
// that p does not cover.
func (p WritePermissions) Authorize(sub Submission) error {
	var denied []Category
	for _, c := range sub.Categories() {
		if !p.Allows(c) {
			denied = append(denied, c)
		}
	}
	if len(denied) > 0 {
		return &AuthorizationError{Categories: denied}
	}
	return nil
}

// ResolveView grants read access to super-admins, the target's direct
// leader and the target's direct judge. Judges see the whole record.
func ResolveView(caller auth.Identity, target directory.Employee) ViewPermission {
	switch {
	case caller.IsSA:
		return ViewPermission{HasPermission: true, Level: PermissionAdmin}
	case target.ImmediateLeader != "" && target.ImmediateLeader == caller.EmployeeID:
		return ViewPermission{HasPermission: true, Level: PermissionLeader}
	case target.DirectJudgeID != "" && target.DirectJudgeID == caller.EmployeeID:
		return ViewPermission{HasPermission: true, Level: PermissionJudge}
	default:
		return ViewPermission{Level: PermissionNone}
	}
}
