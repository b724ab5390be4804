package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// DeliveryMethod represents the channel a notification attempt was sent over
type DeliveryMethod string

const (
	DeliveryMethodPush  DeliveryMethod = "push"
	DeliveryMethodSMS   DeliveryMethod = "sms"
	DeliveryMethodEmail DeliveryMethod = "email"
	DeliveryMethodCall  DeliveryMethod = "call"
)

// String returns the string representation of the method
func (m DeliveryMethod) String() string {
	return string(m)
}

// Valid checks if the method is valid
func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryMethodPush, DeliveryMethodSMS, DeliveryMethodEmail, DeliveryMethodCall:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryMethod
func (m *DeliveryMethod) Scan(value any) error {
	if value == nil {
		*m = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*m = DeliveryMethod(v)
	case []byte:
		*m = DeliveryMethod(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryMethod", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryMethod
func (m DeliveryMethod) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid DeliveryMethod: %s", m)
	}
	return string(m), nil
}

// DeliveryStatus represents the outcome of one channel attempt
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Valid checks if the status is valid
func (s DeliveryStatus) Valid() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusFailed
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (s *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryStatus(v)
	case []byte:
		*s = DeliveryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (s DeliveryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryLog records a single channel attempt for a scheduled notification.
// Receipt timestamps and the captured voice response are attached later by the
// delivery and response flows; nothing else mutates a row once written.
type DeliveryLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	NotificationID uint           `gorm:"not null;index:idx_notification_log_notification_id" json:"notification_id"`
	Method         DeliveryMethod `gorm:"type:delivery_method;not null;index:idx_notification_log_method" json:"method"`
	RecipientID    uint           `gorm:"not null;index:idx_notification_log_recipient_id" json:"recipient_id"`
	Status         DeliveryStatus `gorm:"type:delivery_status;not null" json:"status"`
	ExternalID     *string        `gorm:"size:64;index:idx_notification_log_external_id" json:"external_id,omitempty"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time     `json:"opened_at,omitempty"`
	DismissedAt    *time.Time     `json:"dismissed_at,omitempty"`
	Response       *string        `gorm:"size:32" json:"response,omitempty"`
	RespondedAt    *time.Time     `json:"responded_at,omitempty"`
	CreatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_notification_log_created_at" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (DeliveryLog) TableName() string {
	return "notification_log"
}

// BeforeCreate is called before creating a new record
func (l *DeliveryLog) BeforeCreate(tx *gorm.DB) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if !l.Method.Valid() {
		return fmt.Errorf("invalid delivery method: %s", l.Method)
	}
	if !l.Status.Valid() {
		return fmt.Errorf("invalid delivery status: %s", l.Status)
	}
	if l.Status == DeliveryStatusFailed && (l.ErrorMessage == nil || *l.ErrorMessage == "") {
		return fmt.Errorf("failed delivery log entry requires an error message")
	}
	if l.Status == DeliveryStatusFailed && l.ExternalID != nil {
		return fmt.Errorf("failed delivery log entry cannot carry a provider id")
	}
	return nil
}

// DeliveryLogFilter represents filter criteria for delivery log entries
type DeliveryLogFilter struct {
	ID             *uint
	NotificationID *uint
	Method         *DeliveryMethod
	RecipientID    *uint
	Status         *DeliveryStatus
	ExternalID     *string
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}
