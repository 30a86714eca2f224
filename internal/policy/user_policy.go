// Package policy holds the authorization rules for user management. Every
// rule is a pure function of the acting user and, where relevant, the target.
package policy

import (
	"posadmin/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated user performing a request.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// Target is the user record an action applies to.
type Target struct {
	ID   uuid.UUID
	Role model.Role
}

func TargetOf(u *model.User) Target { return Target{ID: u.ID, Role: u.Role} }

func (a Actor) is(t Target) bool { return a.ID == t.ID }

// CanViewAny gates the user listing. Cashiers are admitted but only ever see
// customers; see ListableRoles.
func CanViewAny(a Actor) bool {
	switch a.Role {
	case model.RoleSuperAdmin, model.RoleAdmin, model.RoleCashier:
		return true
	}
	return false
}

// CanCreate gates the create form. Which roles may be created is narrowed
// further by CreateRoleOptions.
func CanCreate(a Actor) bool { return len(CreateRoleOptions(a)) > 0 }

func CanView(a Actor, t Target) bool {
	if a.is(t) {
		return true
	}
	switch a.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		return t.Role != model.RoleSuperAdmin
	case model.RoleCashier:
		return t.Role == model.RoleCustomer
	}
	return false
}

func CanUpdate(a Actor, t Target) bool { return CanView(a, t) }

func CanDelete(a Actor, t Target) bool {
	if a.is(t) {
		return false
	}
	if t.Role == model.RoleSuperAdmin && a.Role != model.RoleSuperAdmin {
		return false
	}
	return a.Role == model.RoleSuperAdmin || a.Role == model.RoleAdmin
}

// Users are hard-deleted; there is nothing to restore.
func CanRestore(Actor, Target) bool     { return false }
func CanForceDelete(Actor, Target) bool { return false }

// ListableRoles returns the roles whose users the actor may list, or nil
// when the listing is unrestricted.
func ListableRoles(a Actor) []model.Role {
	if a.Role == model.RoleCashier {
		return []model.Role{model.RoleCustomer}
	}
	return nil
}

// CreateRoleOptions lists the roles the actor may assign to a new user.
func CreateRoleOptions(a Actor) []model.Role {
	switch a.Role {
	case model.RoleSuperAdmin:
		return append([]model.Role(nil), model.AllRoles...)
	case model.RoleAdmin:
		out := make([]model.Role, 0, len(model.AllRoles)-1)
		for _, r := range model.AllRoles {
			if r != model.RoleSuperAdmin {
				out = append(out, r)
			}
		}
		return out
	case model.RoleCashier:
		return []model.Role{model.RoleCustomer}
	}
	return nil
}

// EditRoleOptions lists the roles the actor may set on an existing user.
// A super admin target can never be demoted, and a cashier can only keep a
// customer a customer.
func EditRoleOptions(a Actor, t Target) []model.Role {
	if t.Role == model.RoleSuperAdmin {
		if a.Role == model.RoleSuperAdmin {
			return []model.Role{model.RoleSuperAdmin}
		}
		return nil
	}
	if a.Role == model.RoleCashier {
		if t.Role == model.RoleCustomer {
			return []model.Role{model.RoleCustomer}
		}
		return nil
	}
	return CreateRoleOptions(a)
}

// Allows reports whether r is one of opts.
func Allows(opts []model.Role, r model.Role) bool {
	for _, o := range opts {
		if o == r {
			return true
		}
	}
	return false
}
