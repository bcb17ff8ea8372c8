package identity

import "time"

// Role names seeded by the platform. Deployments may add their own tiers;
// only the rank ordering matters to the gate.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleOperator   = "operator"
)

// Role is the normalized authorization tier attached to a principal.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Outranks reports whether r sits strictly above other in the precedence order.
func (r Role) Outranks(other Role) bool {
	return r.Rank > other.Rank
}

// Principal is the resolved caller identity. Downstream components only
// ever see this shape, never raw storage rows.
type Principal struct {
	ID          string
	Email       string
	Nickname    string
	Role        Role
	Permissions []string
	ResolvedAt  time.Time
}

// IsSuperadmin reports whether the principal holds the unconditional tier.
func (p Principal) IsSuperadmin() bool {
	return p.Role.Name == RoleSuperadmin
}

// HasPermission reports whether the principal's role grants perm.
func (p Principal) HasPermission(perm string) bool {
	for _, granted := range p.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}
