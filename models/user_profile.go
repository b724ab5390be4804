package models

import (
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// UserProfile holds the contact and personalization fields the pipeline needs
// about an elder. Owned by the main platform; this service only reads it.
type UserProfile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:uk_user_profiles_user_id" json:"user_id"`
	FirstName     string    `gorm:"size:100" json:"first_name"`
	Phone         *string   `gorm:"size:20" json:"phone,omitempty"`
	Email         *string   `gorm:"size:255" json:"email,omitempty"`
	GreetingStyle string    `gorm:"size:30;default:'warm'" json:"greeting_style"`
	CreatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (UserProfile) TableName() string {
	return "user_profiles"
}

// BeforeCreate is called before creating a new record
func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// UserProfileFilter represents filter criteria for user profiles
type UserProfileFilter struct {
	ID     *uint
	UserID *uint
}
