package models

type Department struct {
	BaseModel
	Name        string `json:"name" gorm:"type:varchar(150);uniqueIndex;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	Employees []Employee `json:"-" gorm:"foreignKey:DepartmentID"`
}

func (Department) TableName() string {
	return "departments"
}
