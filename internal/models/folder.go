package models

import "github.com/google/uuid"

// Folder groups a user's documents. Uniqueness is per (owner, name) and is
// enforced by the composite unique index, not by a check-then-insert.
// Folders carry no visibility semantics of their own.
type Folder struct {
	BaseModel
	Name    string    `json:"name" gorm:"type:varchar(150);not null;uniqueIndex:ux_folders_owner_name"`
	OwnerID uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;uniqueIndex:ux_folders_owner_name;index"`

	Owner     User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID;references:ID"`
	Documents []UserDocument `json:"documents,omitempty" gorm:"foreignKey:FolderID"`
}

func (Folder) TableName() string {
	return "folders"
}
