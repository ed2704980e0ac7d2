package access

import (
	"github.com/google/uuid"
	"github.com/hrdesk/backend/internal/models"
)

// Resource is the visibility-relevant projection of a document. Both
// document families resolve to the same shape so the resolver stays
// ignorant of storage details.
type Resource struct {
	Owner                Owner
	Mode                 models.Visibility
	AllowedUserIDs       models.UUIDList
	AllowedRoles         models.RoleList
	AllowedDepartmentIDs models.UUIDList
}

// UserDocumentResource projects a personal document. The owner is the
// login identity itself.
func UserDocumentResource(doc *models.UserDocument) Resource {
	ownerID := doc.OwnerID
	return Resource{
		Owner: Owner{
			Kind:              OwnerKindUser,
			ID:                doc.OwnerID,
			ControllingUserID: &ownerID,
		},
		Mode:                 doc.Visibility,
		AllowedUserIDs:       doc.AllowedUserIDs,
		AllowedRoles:         doc.AllowedRoles,
		AllowedDepartmentIDs: doc.AllowedDepartmentIDs,
	}
}

// EmployeeDocumentResource projects an HR document. The controlling user
// is the employee's linked login, which may be absent.
func EmployeeDocumentResource(doc *models.EmployeeDocument, employee *models.Employee) Resource {
	var controlling *uuid.UUID
	if employee != nil && employee.UserID != nil {
		controlling = employee.UserID
	}
	return Resource{
		Owner: Owner{
			Kind:              OwnerKindEmployee,
			ID:                doc.EmployeeID,
			ControllingUserID: controlling,
		},
		Mode:                 doc.Visibility,
		AllowedUserIDs:       doc.AllowedUserIDs,
		AllowedRoles:         doc.AllowedRoles,
		AllowedDepartmentIDs: doc.AllowedDepartmentIDs,
	}
}
