package access

import (
	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/models"
)

// Identity is the authenticated caller as supplied by the identity
// provider. Every guard and resolver call takes it explicitly; nothing in
// this package reads ambient request state.
type Identity struct {
	ID            uuid.UUID
	Role          models.Role
	DepartmentID  *uuid.UUID
	Authenticated bool
}

// IdentityFromUser projects a stored user row into a resolver identity.
func IdentityFromUser(u *models.User) Identity {
	if u == nil {
		return Identity{}
	}
	return Identity{
		ID:            u.ID,
		Role:          u.Role,
		DepartmentID:  u.DepartmentID,
		Authenticated: true,
	}
}

// OwnerKind distinguishes the two document families. A closed variant, not
// a free string tag.
type OwnerKind string

const (
	OwnerKindUser     OwnerKind = "user"
	OwnerKindEmployee OwnerKind = "employee"
)

// Owner identifies who a document belongs to. ControllingUserID is the
// login identity that counts as "the owner" for access checks; for an
// employee record without a linked login it is nil and ownership matches
// nobody (privileged roles still manage such documents).
type Owner struct {
	Kind              OwnerKind
	ID                uuid.UUID
	ControllingUserID *uuid.UUID
}

func (o Owner) ControlledBy(identity Identity) bool {
	return o.ControllingUserID != nil && *o.ControllingUserID == identity.ID
}
