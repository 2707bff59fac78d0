package models

import id "umid/pkg/domain"

// Caller is the identity the identity provider vouched for on this request.
type Caller struct {
	ID   id.UserID
	Role id.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == id.RoleAdmin
}

// CanManage reports whether the caller may mutate or read the UMID's history:
// the owning patient or an administrator.
func (c Caller) CanManage(u *UMID) bool {
	return c.IsAdmin() || u.IsOwnedBy(c.ID)
}
