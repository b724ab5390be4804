package models

import (
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// CareContact represents a next-of-kin relationship for an elder. Contacts
// flagged CanReceiveAlerts are the escalation fan-out targets; they are read
// at escalation time, never cached.
type CareContact struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ElderID          uint      `gorm:"not null;index:idx_elder_nok_relationships_elder_id" json:"elder_id"`
	Name             string    `gorm:"size:200;not null" json:"name"`
	Relationship     string    `gorm:"size:50" json:"relationship"`
	Phone            *string   `gorm:"size:20" json:"phone,omitempty"`
	Email            *string   `gorm:"size:255" json:"email,omitempty"`
	CanReceiveAlerts bool      `gorm:"not null;default:false;index:idx_elder_nok_relationships_alerts" json:"can_receive_alerts"`
	CreatedAt        time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (CareContact) TableName() string {
	return "elder_nok_relationships"
}

// BeforeCreate is called before creating a new record
func (c *CareContact) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// HasPhone reports whether the contact can be reached by SMS
func (c *CareContact) HasPhone() bool {
	return c.Phone != nil && *c.Phone != ""
}

// CareContactFilter represents filter criteria for care contacts
type CareContactFilter struct {
	ID               *uint
	ElderID          *uint
	CanReceiveAlerts *bool
}
