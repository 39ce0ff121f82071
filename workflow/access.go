package workflow

import (
	"context"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserId string
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.UserRoleAdmin
}

// ActorFromContext reads the identity the auth middleware stored on the request context.
func ActorFromContext(ctx context.Context) (Actor, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return Actor{}, utils.NewAppError(utils.KindUnauthorized, "unauthorized")
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	if role == "" {
		role = string(models.UserRoleUser)
	}
	return Actor{UserId: userId, Role: models.UserRole(role)}, nil
}

// authorizeOwner allows admins and the owning user.
func authorizeOwner(actor Actor, ownerId string, resource string) error {
	if actor.IsAdmin() || (actor.UserId != "" && actor.UserId == ownerId) {
		return nil
	}
	return utils.NewAppError(utils.KindForbidden, "not authorized to access this %s", resource)
}

func requireAdmin(actor Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	return utils.NewAppError(utils.KindForbidden, "admin access required")
}
