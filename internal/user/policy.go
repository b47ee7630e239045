// AngelaMos | 2026
// policy.go

package user

// Actor is the authenticated caller as seen by the authorization rules.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func CanList(a Actor) bool {
	return a.IsAdmin()
}

func CanView(a Actor, targetID int64) bool {
	return a.IsAdmin() || a.ID == targetID
}

func CanUpdate(a Actor, targetID int64) bool {
	return a.IsAdmin() || a.ID == targetID
}

func CanChangeRole(a Actor) bool {
	return a.IsAdmin()
}

// CanDelete needs the target's role, so callers check CanDeleteAny before
// loading the target.
func CanDelete(a Actor, targetRole string) bool {
	return CanDeleteAny(a) && targetRole != RoleAdmin
}

func CanDeleteAny(a Actor) bool {
	return a.IsAdmin()
}

func CanPromote(a Actor) bool {
	return a.IsAdmin()
}
