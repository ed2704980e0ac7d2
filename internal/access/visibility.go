package access

import (
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
)

// CanRead decides read access for one identity against one document. Pure;
// no I/O. The dispatch is exhaustive over the closed visibility set and an
// unrecognized mode denies everyone except the owner.
func CanRead(identity Identity, r Resource) bool {
	if !identity.Authenticated {
		return false
	}

	switch r.Mode {
	case models.VisibilityPrivate:
		return r.Owner.ControlledBy(identity)
	case models.VisibilityShared:
		return true
	case models.VisibilityRoles:
		return r.AllowedRoles.Contains(identity.Role)
	case models.VisibilityDepartments:
		return identity.DepartmentID != nil && r.AllowedDepartmentIDs.Contains(*identity.DepartmentID)
	case models.VisibilityUsers:
		return r.AllowedUserIDs.Contains(identity.ID)
	default:
		// Unknown mode: private-equivalent, never permissive.
		return r.Owner.ControlledBy(identity)
	}
}

// CanDelete decides management access. Ownership always wins, on every
// visibility mode, even when the owner's role is not in the document's
// role list. The privileged set overrides for everything else.
func CanDelete(identity Identity, r Resource) bool {
	if !identity.Authenticated {
		return false
	}
	if r.Owner.ControlledBy(identity) {
		return true
	}
	return permissions.IsPrivileged(identity.Role)
}

// FilterVisible returns the indexes of resources readable by identity. It
// is defined as the pointwise application of CanRead; any optimization
// (e.g. pushing the filter into SQL) must preserve that equivalence.
func FilterVisible(identity Identity, resources []Resource) []int {
	var visible []int
	for i, r := range resources {
		if CanRead(identity, r) {
			visible = append(visible, i)
		}
	}
	return visible
}

// VisibleUserDocuments filters personal documents through CanRead.
func VisibleUserDocuments(identity Identity, docs []models.UserDocument) []models.UserDocument {
	var visible []models.UserDocument
	for i := range docs {
		if CanRead(identity, UserDocumentResource(&docs[i])) {
			visible = append(visible, docs[i])
		}
	}
	return visible
}

// VisibleEmployeeDocuments filters HR documents through CanRead. The
// employee row supplies the owner link and must belong to every document
// in the slice.
func VisibleEmployeeDocuments(identity Identity, employee *models.Employee, docs []models.EmployeeDocument) []models.EmployeeDocument {
	var visible []models.EmployeeDocument
	for i := range docs {
		if CanRead(identity, EmployeeDocumentResource(&docs[i], employee)) {
			visible = append(visible, docs[i])
		}
	}
	return visible
}
