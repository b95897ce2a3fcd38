package user

import (
	"time"

	"gorm.io/datatypes"
)

// User maps a tenant's external player id to the engine's internal id.
type User struct {
	ID         string         `gorm:"column:id;primaryKey"`
	AppID      string         `gorm:"column:app_id;uniqueIndex:users_app_external_uidx"`
	ExternalID string         `gorm:"column:external_id;uniqueIndex:users_app_external_uidx"`
	Attributes datatypes.JSON `gorm:"column:attributes"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

// TableName sets the table name for the User model.
func (User) TableName() string { return "users" }
