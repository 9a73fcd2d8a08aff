package auth

import "gocms/internal/model"

// Identity is the authenticated-identity context attached to a request by
// the session middleware. It lives for a single request only.
type Identity struct {
	UserID      uint
	GroupID     uint
	Permissions model.PermissionSet
}

// IdentityFromClaims builds a request identity from validated access claims.
func IdentityFromClaims(c *Claims) *Identity {
	return &Identity{
		UserID:      c.UserID,
		GroupID:     c.GroupID,
		Permissions: c.Permissions,
	}
}

// Can reports whether the identity holds a capability. A nil identity is
// anonymous and holds none.
func (i *Identity) Can(c model.Capability) bool {
	if i == nil {
		return false
	}
	return i.Permissions.Has(c)
}
