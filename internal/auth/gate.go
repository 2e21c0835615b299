package auth

import (
	"eventsphere/internal/apperr"
	"eventsphere/internal/models"
)

// Gate is the single capability check run before every mutating operation.
type Gate struct{}

// Check allows actor when its role is one of roles (any role if roles is empty)
// and, when ownerID is set, it owns the resource. Admins pass the ownership
// test but never a role list that omits them.
func (Gate) Check(actor *models.Actor, roles []string, ownerID string) error {
	if actor == nil || actor.ID == "" {
		return apperr.Unauthenticatedf("Not authorized, please log in")
	}

	if len(roles) > 0 && !hasRole(roles, actor.Role) {
		return apperr.Forbiddenf("User role %s is not authorized to access this route", actor.Role)
	}

	if ownerID != "" && ownerID != actor.ID && actor.Role != models.RoleAdmin {
		return apperr.Forbiddenf("Not authorized to modify this resource")
	}

	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role lists used by the services.
var (
	Staff      = []string{models.RoleOrganizer, models.RoleAdmin}
	Exhibitors = []string{models.RoleExhibitor}
	Attendees  = []string{models.RoleAttendee}
	Anyone     = []string(nil)
)
