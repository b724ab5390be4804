package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// DeviceInfo describes the device a push subscription was registered from
type DeviceInfo struct {
	Platform   string `json:"platform,omitempty"`
	Browser    string `json:"browser,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
}

// Value implements the driver.Valuer interface for DeviceInfo
func (d DeviceInfo) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for DeviceInfo
func (d *DeviceInfo) Scan(value any) error {
	if value == nil {
		*d = DeviceInfo{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DeviceInfo", value)
	}

	return json.Unmarshal(bytes, d)
}

// PushSubscription represents a registered web-push endpoint for one device.
// A user may hold several subscriptions; (user_id, endpoint) is unique and
// the subscribe endpoint upserts on that key.
type PushSubscription struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:uk_push_subscriptions_user_endpoint" json:"user_id"`
	Endpoint   string     `gorm:"size:500;not null;uniqueIndex:uk_push_subscriptions_user_endpoint" json:"endpoint"`
	P256dhKey  string     `gorm:"size:255;not null" json:"p256dh_key"`
	AuthKey    string     `gorm:"size:255;not null" json:"auth_key"`
	DeviceInfo DeviceInfo `gorm:"type:jsonb;not null;default:'{}'" json:"device_info"`
	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (PushSubscription) TableName() string {
	return "push_subscriptions"
}

// BeforeCreate is called before creating a new record
func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if s.Endpoint == "" || s.P256dhKey == "" || s.AuthKey == "" {
		return fmt.Errorf("push subscription requires endpoint and key pair")
	}
	return nil
}

// PushSubscriptionFilter represents filter criteria for push subscriptions
type PushSubscriptionFilter struct {
	ID       *uint
	UserID   *uint
	Endpoint *string
}
