package domain

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// CallerIdentity is the authenticated caller, built once at the HTTP
// boundary. A nil *CallerIdentity is an anonymous caller.
type CallerIdentity struct {
	ID    string
	Role  string
	Email string
}

// IsAdmin reports whether c holds the admin role. Safe on nil.
func (c *CallerIdentity) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Owns reports whether c authored r. Guest reviews have no owner.
func (c *CallerIdentity) Owns(r *Review) bool {
	return c != nil && r.UserID != nil && *r.UserID == c.ID
}

// CanEdit reports whether c may change r. Only the author may.
func (c *CallerIdentity) CanEdit(r *Review) bool {
	return c.Owns(r)
}

// CanDelete reports whether c may delete r: its author or an admin.
func (c *CallerIdentity) CanDelete(r *Review) bool {
	return c.Owns(r) || c.IsAdmin()
}
