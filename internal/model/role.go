package model

// Role is the closed set of user roles. Stored as varchar(20).
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleCashier    Role = "cashier"
	RoleSupplier   Role = "supplier"
	RoleCustomer   Role = "customer"
)

// AllRoles is ordered by listing priority.
var AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleCashier, RoleSupplier, RoleCustomer}

var roleLabels = map[Role]string{
	RoleSuperAdmin: "Super Admin",
	RoleAdmin:      "Admin",
	RoleCashier:    "Cashier",
	RoleSupplier:   "Supplier",
	RoleCustomer:   "Customer",
}

func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns the human-readable name shown in forms and filters.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// Priority is the sort rank used by the user listing (lower first).
func (r Role) Priority() int {
	for i, role := range AllRoles {
		if role == r {
			return i + 1
		}
	}
	return len(AllRoles) + 1
}

// ProfileKind selects which satellite profile table holds the role's data.
func (r Role) ProfileKind() ProfileKind {
	switch r {
	case RoleCustomer:
		return ProfileCustomer
	case RoleSupplier:
		return ProfileSupplier
	default:
		return ProfileStaff
	}
}

// IsStaff reports whether the role works inside the store.
func (r Role) IsStaff() bool {
	return r.ProfileKind() == ProfileStaff
}
