package auth

// Role is the kind of party an account acts as.
type Role string

const (
	RoleAgency Role = "agency"
	RoleGuide  Role = "guide"
)

func (r Role) Valid() bool {
	return r == RoleAgency || r == RoleGuide
}

// Actor is the authenticated identity behind a command.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAgency() bool { return a.Role == RoleAgency }
func (a Actor) IsGuide() bool  { return a.Role == RoleGuide }
