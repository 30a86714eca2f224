package policy

import (
	"testing"

	"posadmin/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func actor(r model.Role) Actor   { return Actor{ID: uuid.New(), Role: r} }
func target(r model.Role) Target { return Target{ID: uuid.New(), Role: r} }

func TestCashierViewsOnlyCustomers(t *testing.T) {
	c := actor(model.RoleCashier)
	assert.False(t, CanView(c, target(model.RoleCashier)))
	assert.True(t, CanView(c, target(model.RoleCustomer)))
	assert.False(t, CanUpdate(c, target(model.RoleSupplier)))
}

func TestSelfAlwaysViewable(t *testing.T) {
	for _, r := range model.AllRoles {
		a := actor(r)
		self := Target{ID: a.ID, Role: r}
		assert.True(t, CanView(a, self), r)
		assert.True(t, CanUpdate(a, self), r)
	}
}

func TestAdminCannotTouchSuperAdmin(t *testing.T) {
	a := actor(model.RoleAdmin)
	sa := target(model.RoleSuperAdmin)
	assert.False(t, CanView(a, sa))
	assert.False(t, CanUpdate(a, sa))
	assert.False(t, CanDelete(a, sa))
	assert.True(t, CanView(a, target(model.RoleAdmin)))
}

func TestSuperAdminSeesEveryone(t *testing.T) {
	a := actor(model.RoleSuperAdmin)
	for _, r := range model.AllRoles {
		assert.True(t, CanView(a, target(r)), r)
	}
}

func TestDeleteRules(t *testing.T) {
	sa := actor(model.RoleSuperAdmin)
	assert.False(t, CanDelete(sa, Target{ID: sa.ID, Role: sa.Role}), "self delete")
	assert.True(t, CanDelete(sa, target(model.RoleSuperAdmin)))
	assert.True(t, CanDelete(actor(model.RoleAdmin), target(model.RoleCashier)))
	assert.False(t, CanDelete(actor(model.RoleCashier), target(model.RoleCustomer)))
	assert.False(t, CanDelete(actor(model.RoleCustomer), target(model.RoleCustomer)))
}

func TestRestoreAndForceDeleteDenied(t *testing.T) {
	sa := actor(model.RoleSuperAdmin)
	assert.False(t, CanRestore(sa, target(model.RoleCustomer)))
	assert.False(t, CanForceDelete(sa, target(model.RoleCustomer)))
}

func TestCreateRoleOptions(t *testing.T) {
	assert.Equal(t, model.AllRoles, CreateRoleOptions(actor(model.RoleSuperAdmin)))
	assert.NotContains(t, CreateRoleOptions(actor(model.RoleAdmin)), model.RoleSuperAdmin)
	assert.Len(t, CreateRoleOptions(actor(model.RoleAdmin)), 4)
	assert.Equal(t, []model.Role{model.RoleCustomer}, CreateRoleOptions(actor(model.RoleCashier)))
	assert.Empty(t, CreateRoleOptions(actor(model.RoleSupplier)))
	assert.False(t, CanCreate(actor(model.RoleCustomer)))
	assert.True(t, CanCreate(actor(model.RoleCashier)))
}

func TestEditRoleOptions(t *testing.T) {
	sa := actor(model.RoleSuperAdmin)
	assert.Equal(t, []model.Role{model.RoleSuperAdmin}, EditRoleOptions(sa, target(model.RoleSuperAdmin)))
	assert.Len(t, EditRoleOptions(sa, target(model.RoleCashier)), 5)

	cashier := actor(model.RoleCashier)
	assert.Equal(t, []model.Role{model.RoleCustomer}, EditRoleOptions(cashier, target(model.RoleCustomer)))
	assert.Empty(t, EditRoleOptions(cashier, target(model.RoleSupplier)))

	assert.NotContains(t, EditRoleOptions(actor(model.RoleAdmin), target(model.RoleCashier)), model.RoleSuperAdmin)
}

func TestListableRoles(t *testing.T) {
	assert.Nil(t, ListableRoles(actor(model.RoleAdmin)))
	assert.Equal(t, []model.Role{model.RoleCustomer}, ListableRoles(actor(model.RoleCashier)))
}
