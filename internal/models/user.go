package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the coarse category an identity belongs to. Roles are stored
// lowercase; anything that does not match a known role resolves to zero
// capabilities in the permission registry.
type Role string

const (
	RoleITManager        Role = "it_manager"
	RoleGeneralDirector  Role = "general_director"
	RoleGeneralManager   Role = "general_manager"
	RoleHeadOfDepartment Role = "head_of_department"
	RoleManager          Role = "manager"
	RoleEmployee         Role = "employee"
)

// NormalizeRole lowercases and trims a role string. It deliberately does
// not reject unknown values: those stay on the user row and simply grant
// nothing.
func NormalizeRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

func (r Role) Equal(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Name         string     `json:"name" gorm:"type:varchar(150);not null"`
	Role         Role       `json:"role" gorm:"type:varchar(30);not null;default:'employee';index"`
	DepartmentID *uuid.UUID `json:"departmentID,omitempty" gorm:"type:uuid;index"`
	Position     string     `json:"position,omitempty" gorm:"type:varchar(100)"`
	Phone        string     `json:"phone,omitempty" gorm:"type:varchar(30)"`
	AccessCode   string     `json:"accessCode,omitempty" gorm:"type:varchar(12)"`
	Avatar       string     `json:"avatar,omitempty" gorm:"type:varchar(8)"`
	IsActive     bool       `json:"isActive" gorm:"not null;default:true"`

	Department *Department    `json:"department,omitempty" gorm:"foreignKey:DepartmentID;references:ID"`
	Documents  []UserDocument `json:"-" gorm:"foreignKey:OwnerID"`
	Folders    []Folder       `json:"-" gorm:"foreignKey:OwnerID"`
}
