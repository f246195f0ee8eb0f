package model

// Role is a named permission profile.  The set is closed: Parent or Child.
// Each variant carries a fixed permission table, so authorization checks
// never need a store round-trip.
type Role string

const (
	RoleParent Role = "Parent"
	RoleChild  Role = "Child"
)

// Domain is a resource area covered by the permission matrix.
type Domain string

const (
	DomainCalendar     Domain = "calendar"
	DomainShoppingList Domain = "shoppingList"
	DomainTasks        Domain = "tasks"
	DomainMealPlanning Domain = "mealPlanning"
	DomainNotes        Domain = "notes"
	DomainRewards      Domain = "rewards"
)

// Domains lists every resource domain in display order.
var Domains = []Domain{
	DomainCalendar, DomainShoppingList, DomainTasks, DomainMealPlanning, DomainNotes, DomainRewards,
}

// Access is the read/write/delete triple for one domain.
type Access struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// Permissions maps each domain to its access triple.
type Permissions map[Domain]Access

var (
	full     = Access{Read: true, Write: true, Delete: true}
	readOnly = Access{Read: true}
	readEdit = Access{Read: true, Write: true}
)

var rolePermissions = map[Role]Permissions{
	RoleParent: {
		DomainCalendar:     full,
		DomainShoppingList: full,
		DomainTasks:        full,
		DomainMealPlanning: full,
		DomainNotes:        full,
		DomainRewards:      full,
	},
	RoleChild: {
		DomainCalendar:     readOnly,
		DomainShoppingList: readEdit,
		DomainTasks:        readOnly,
		DomainMealPlanning: readOnly,
		DomainNotes:        readEdit,
		DomainRewards:      readOnly,
	},
}

// ParseRole resolves a role name.  Matching is exact, as role names are
// part of the public API.
func ParseRole(name string) (Role, bool) {
	r := Role(name)
	_, ok := rolePermissions[r]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns a copy of the role's permission table.  Unknown roles
// get an empty table.
func (r Role) Permissions() Permissions {
	src := rolePermissions[r]
	out := make(Permissions, len(src))
	for d, a := range src {
		out[d] = a
	}
	return out
}

// Customizable reports whether holders of the role may customise roles of
// other members.
func (r Role) Customizable() bool { return r == RoleParent }

func (r Role) String() string { return string(r) }
