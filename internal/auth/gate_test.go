package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eventsphere/internal/apperr"
	"eventsphere/internal/models"
)

func TestGateCheck(t *testing.T) {
	admin := &models.Actor{ID: "a-1", Role: models.RoleAdmin}
	organizer := &models.Actor{ID: "o-1", Role: models.RoleOrganizer}
	exhibitor := &models.Actor{ID: "e-1", Role: models.RoleExhibitor}

	cases := []struct {
		name  string
		actor *models.Actor
		roles []string
		owner string
		kind  apperr.Kind
	}{
		{name: "anonymous", actor: nil, roles: Anyone, kind: apperr.Unauthenticated},
		{name: "any role", actor: exhibitor, roles: Anyone},
		{name: "organizer is staff", actor: organizer, roles: Staff},
		{name: "admin is staff", actor: admin, roles: Staff},
		{name: "exhibitor is not staff", actor: exhibitor, roles: Staff, kind: apperr.Forbidden},
		{name: "admin cannot reserve", actor: admin, roles: Exhibitors, kind: apperr.Forbidden},
		{name: "owner matches", actor: exhibitor, roles: Exhibitors, owner: "e-1"},
		{name: "owner mismatch", actor: exhibitor, roles: Exhibitors, owner: "e-2", kind: apperr.Forbidden},
		{name: "admin overrides ownership", actor: admin, roles: Anyone, owner: "e-2"},
		{name: "organizer does not override ownership", actor: organizer, roles: Anyone, owner: "e-2", kind: apperr.Forbidden},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Gate{}.Check(c.actor, c.roles, c.owner)
			if c.kind == apperr.Internal {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, c.kind), "got %v", err)
		})
	}
}
