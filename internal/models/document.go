package models

import (
	"strings"

	"github.com/google/uuid"
)

// Visibility selects which identities may read a document. Exactly one
// mode is active per document; only the allow-list matching the active
// mode is meaningful.
type Visibility string

const (
	VisibilityPrivate     Visibility = "private"
	VisibilityShared      Visibility = "shared"
	VisibilityRoles       Visibility = "roles"
	VisibilityDepartments Visibility = "departments"
	VisibilityUsers       Visibility = "users"
)

// ParseVisibility normalizes a raw mode string. ok is false for anything
// outside the closed set; callers must treat such documents as
// private-equivalent, never as readable.
func ParseVisibility(raw string) (Visibility, bool) {
	v := Visibility(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case VisibilityPrivate, VisibilityShared, VisibilityRoles, VisibilityDepartments, VisibilityUsers:
		return v, true
	default:
		return v, false
	}
}

type UUIDList []uuid.UUID

type RoleList []Role

// Contains matches case-insensitively; role strings come from free-form
// identity providers.
func (l RoleList) Contains(role Role) bool {
	for _, r := range l {
		if r.Equal(role) {
			return true
		}
	}
	return false
}

func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// UserDocument is a personal document owned directly by a login identity.
type UserDocument struct {
	BaseModel
	OwnerID              uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	FolderID             *uuid.UUID `json:"folderID,omitempty" gorm:"type:uuid;index"`
	Filename             string     `json:"filename" gorm:"type:varchar(255);not null"`
	StoragePath          string     `json:"-" gorm:"type:text;not null"`
	MimeType             string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size                 int64      `json:"size" gorm:"not null;default:0"`
	DocumentType         string     `json:"documentType,omitempty" gorm:"type:varchar(50)"`
	Visibility           Visibility `json:"visibility" gorm:"type:varchar(20);not null;default:'private';index"`
	AllowedUserIDs       UUIDList   `json:"allowedUserIDs,omitempty" gorm:"type:jsonb;serializer:json"`
	AllowedRoles         RoleList   `json:"allowedRoles,omitempty" gorm:"type:jsonb;serializer:json"`
	AllowedDepartmentIDs UUIDList   `json:"allowedDepartmentIDs,omitempty" gorm:"type:jsonb;serializer:json"`

	Owner  User    `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Folder *Folder `json:"folder,omitempty" gorm:"foreignKey:FolderID;references:ID"`
}

func (UserDocument) TableName() string {
	return "user_documents"
}

// EmployeeDocument is an HR document attached to an employee record. The
// record may have no linked login; visibility then can only open it up via
// shared/roles/departments/users modes.
type EmployeeDocument struct {
	BaseModel
	EmployeeID           uuid.UUID  `json:"employeeID" gorm:"type:uuid;not null;index"`
	Filename             string     `json:"filename" gorm:"type:varchar(255);not null"`
	StoragePath          string     `json:"-" gorm:"type:text;not null"`
	MimeType             string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	Size                 int64      `json:"size" gorm:"not null;default:0"`
	DocumentType         string     `json:"documentType,omitempty" gorm:"type:varchar(50)"`
	Visibility           Visibility `json:"visibility" gorm:"type:varchar(20);not null;default:'private';index"`
	AllowedUserIDs       UUIDList   `json:"allowedUserIDs,omitempty" gorm:"type:jsonb;serializer:json"`
	AllowedRoles         RoleList   `json:"allowedRoles,omitempty" gorm:"type:jsonb;serializer:json"`
	AllowedDepartmentIDs UUIDList   `json:"allowedDepartmentIDs,omitempty" gorm:"type:jsonb;serializer:json"`

	Employee Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID;references:ID"`
}

func (EmployeeDocument) TableName() string {
	return "employee_documents"
}
