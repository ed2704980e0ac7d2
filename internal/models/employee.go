package models

import "github.com/google/uuid"

// Employee is an HR personnel record. It may or may not be linked to a
// login identity; HR documents hang off the employee record, not the user.
type Employee struct {
	BaseModel
	FirstName    string     `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string     `json:"lastName" gorm:"type:varchar(100);not null"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Position     string     `json:"position,omitempty" gorm:"type:varchar(100)"`
	DepartmentID *uuid.UUID `json:"departmentID,omitempty" gorm:"type:uuid;index"`
	UserID       *uuid.UUID `json:"userID,omitempty" gorm:"type:uuid;uniqueIndex"`

	Department *Department        `json:"department,omitempty" gorm:"foreignKey:DepartmentID;references:ID"`
	User       *User              `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	Documents  []EmployeeDocument `json:"-" gorm:"foreignKey:EmployeeID"`
}

func (Employee) TableName() string {
	return "employees"
}
