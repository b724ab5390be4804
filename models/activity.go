package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// MedicationStatus represents the recorded outcome of a medication reminder
type MedicationStatus string

const (
	MedicationStatusTaken   MedicationStatus = "taken"
	MedicationStatusSnoozed MedicationStatus = "snoozed"
	MedicationStatusMissed  MedicationStatus = "missed"
)

// Valid checks if the status is valid
func (s MedicationStatus) Valid() bool {
	switch s {
	case MedicationStatusTaken, MedicationStatusSnoozed, MedicationStatusMissed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for MedicationStatus
func (s *MedicationStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MedicationStatus(v)
	case []byte:
		*s = MedicationStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MedicationStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MedicationStatus
func (s MedicationStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MedicationStatus: %s", s)
	}
	return string(s), nil
}

// MedicationTracking records the outcome of one medication reminder occurrence
type MedicationTracking struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index:idx_medication_tracking_user_id" json:"user_id"`
	ReminderID uint             `gorm:"not null;index:idx_medication_tracking_reminder_id" json:"reminder_id"`
	Status     MedicationStatus `gorm:"type:medication_status;not null" json:"status"`
	RecordedAt time.Time        `gorm:"not null" json:"recorded_at"`
	CreatedAt  time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (MedicationTracking) TableName() string {
	return "medication_tracking"
}

// BeforeCreate is called before creating a new record
func (m *MedicationTracking) BeforeCreate(tx *gorm.DB) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	if m.RecordedAt.IsZero() {
		m.RecordedAt = utils.UTCNow()
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid medication status: %s", m.Status)
	}
	return nil
}

// MedicationTrackingFilter represents filter criteria for medication tracking rows
type MedicationTrackingFilter struct {
	ID         *uint
	UserID     *uint
	ReminderID *uint
	Status     *MedicationStatus
}

// ActivityDetails holds free-form context for an activity log entry
type ActivityDetails map[string]any

// Value implements the driver.Valuer interface for ActivityDetails
func (d ActivityDetails) Value() (driver.Value, error) {
	if d == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for ActivityDetails
func (d *ActivityDetails) Scan(value any) error {
	if value == nil {
		*d = ActivityDetails{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ActivityDetails", value)
	}

	return json.Unmarshal(bytes, d)
}

// ActivityLog is an append-only audit trail of user-visible pipeline events,
// wellness responses and medication actions included.
type ActivityLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"not null;index:idx_activity_logs_user_id" json:"user_id"`
	ActivityType string          `gorm:"size:50;not null;index:idx_activity_logs_activity_type" json:"activity_type"`
	Description  string          `gorm:"size:500" json:"description"`
	Details      ActivityDetails `gorm:"type:jsonb;not null;default:'{}'" json:"details"`
	CreatedAt    time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_activity_logs_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// BeforeCreate is called before creating a new record
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.ActivityType == "" {
		return fmt.Errorf("activity log entry requires an activity type")
	}
	return nil
}

// ActivityLogFilter represents filter criteria for activity log entries
type ActivityLogFilter struct {
	ID           *uint
	UserID       *uint
	ActivityType *string
	CreatedAfter *time.Time
}
