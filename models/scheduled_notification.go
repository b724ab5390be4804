package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType represents the category of a scheduled notification
type NotificationType string

const (
	NotificationTypeMedication   NotificationType = "medication"
	NotificationTypeWellness     NotificationType = "wellness"
	NotificationTypeMessage      NotificationType = "message"
	NotificationTypeIncident     NotificationType = "incident"
	NotificationTypeConversation NotificationType = "conversation"
)

// String returns the string representation of the type
func (t NotificationType) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeMedication, NotificationTypeWellness,
		NotificationTypeMessage, NotificationTypeIncident,
		NotificationTypeConversation:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for NotificationType
func (t *NotificationType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = NotificationType(v)
	case []byte:
		*t = NotificationType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into NotificationType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for NotificationType
func (t NotificationType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid NotificationType: %s", t)
	}
	return string(t), nil
}

// RecurrencePattern represents how a recurring notification repeats
type RecurrencePattern string

const (
	RecurrenceDaily  RecurrencePattern = "daily"
	RecurrenceWeekly RecurrencePattern = "weekly"
	RecurrenceCustom RecurrencePattern = "custom"
)

// Valid checks if the pattern is valid
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceCustom:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RecurrencePattern
func (p *RecurrencePattern) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = RecurrencePattern(v)
	case []byte:
		*p = RecurrencePattern(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RecurrencePattern", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RecurrencePattern
func (p RecurrencePattern) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid RecurrencePattern: %s", p)
	}
	return string(p), nil
}

// RecurrenceData holds pattern parameters for recurring notifications
type RecurrenceData struct {
	IntervalDays int `json:"interval_days,omitempty"`
}

// Value implements the driver.Valuer interface for RecurrenceData
func (d RecurrenceData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for RecurrenceData
func (d *RecurrenceData) Scan(value any) error {
	if value == nil {
		*d = RecurrenceData{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RecurrenceData", value)
	}

	return json.Unmarshal(bytes, d)
}

// MedicationMetadata carries medication reminder context
type MedicationMetadata struct {
	ReminderID     uint   `json:"reminder_id"`
	MedicationName string `json:"medication_name,omitempty"`
	Dosage         string `json:"dosage,omitempty"`
}

// WellnessMetadata carries wellness check context
type WellnessMetadata struct {
	CheckKind   string `json:"check_kind,omitempty"`
	Interactive bool   `json:"interactive"`
}

// MessageMetadata carries family message context
type MessageMetadata struct {
	SenderID       uint `json:"sender_id"`
	ConversationID uint `json:"conversation_id,omitempty"`
}

// IncidentMetadata carries incident alert context
type IncidentMetadata struct {
	IncidentID uint   `json:"incident_id"`
	Severity   string `json:"severity,omitempty"`
}

// ConversationMetadata carries companion conversation context
type ConversationMetadata struct {
	PromptID uint `json:"prompt_id,omitempty"`
}

// NotificationMetadata is a tagged union keyed by notification type. Exactly one
// variant matching the owning notification's type may be set; this is enforced at
// the store boundary so untyped payloads never reach the pipeline.
type NotificationMetadata struct {
	// Channels are delivery hints; empty means the per-type default set
	Channels []DeliveryMethod `json:"channels,omitempty"`

	Medication   *MedicationMetadata   `json:"medication,omitempty"`
	Wellness     *WellnessMetadata     `json:"wellness,omitempty"`
	Message      *MessageMetadata      `json:"message,omitempty"`
	Incident     *IncidentMetadata     `json:"incident,omitempty"`
	Conversation *ConversationMetadata `json:"conversation,omitempty"`
}

// Value implements the driver.Valuer interface for NotificationMetadata
func (m NotificationMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for NotificationMetadata
func (m *NotificationMetadata) Scan(value any) error {
	if value == nil {
		*m = NotificationMetadata{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into NotificationMetadata", value)
	}

	return json.Unmarshal(bytes, m)
}

// ValidateFor checks that the metadata variant matches the notification type
// and that no foreign variant is present
func (m *NotificationMetadata) ValidateFor(t NotificationType) error {
	variants := map[NotificationType]bool{
		NotificationTypeMedication:   m.Medication != nil,
		NotificationTypeWellness:     m.Wellness != nil,
		NotificationTypeMessage:      m.Message != nil,
		NotificationTypeIncident:     m.Incident != nil,
		NotificationTypeConversation: m.Conversation != nil,
	}
	for vt, present := range variants {
		if present && vt != t {
			return fmt.Errorf("metadata variant %s does not match notification type %s", vt, t)
		}
	}
	for _, ch := range m.Channels {
		if !ch.Valid() {
			return fmt.Errorf("invalid channel hint: %s", ch)
		}
	}
	return nil
}

// ScheduledNotification represents one pending or completed delivery intent
type ScheduledNotification struct {
	ID                uint                 `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:uk_scheduled_notifications_uuid" json:"uuid"`
	UserID            uint                 `gorm:"not null;index:idx_scheduled_notifications_user_id" json:"user_id"`
	Type              NotificationType     `gorm:"type:notification_type;not null;index:idx_scheduled_notifications_type" json:"type"`
	Title             string               `gorm:"size:200;not null" json:"title"`
	Body              string               `gorm:"type:text;not null" json:"body"`
	ScheduledFor      time.Time            `gorm:"not null;index:idx_scheduled_notifications_scheduled_for" json:"scheduled_for"`
	SentAt            *time.Time           `gorm:"index:idx_scheduled_notifications_sent_at" json:"sent_at,omitempty"`
	IsCancelled       bool                 `gorm:"not null;default:false" json:"is_cancelled"`
	DeliveryError     *string              `gorm:"type:text" json:"delivery_error,omitempty"`
	IsRecurring       bool                 `gorm:"not null;default:false" json:"is_recurring"`
	RecurrencePattern *RecurrencePattern   `gorm:"type:recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceData    RecurrenceData       `gorm:"type:jsonb;not null;default:'{}'" json:"recurrence_data"`
	Metadata          NotificationMetadata `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt         time.Time            `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_scheduled_notifications_created_at" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (ScheduledNotification) TableName() string {
	return "scheduled_notifications"
}

// BeforeCreate is called before creating a new record
func (n *ScheduledNotification) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	if !n.Type.Valid() {
		return fmt.Errorf("invalid notification type: %s", n.Type)
	}
	if n.IsRecurring {
		if n.RecurrencePattern == nil || !n.RecurrencePattern.Valid() {
			return fmt.Errorf("recurring notification requires a valid recurrence pattern")
		}
		if *n.RecurrencePattern == RecurrenceCustom && n.RecurrenceData.IntervalDays <= 0 {
			return fmt.Errorf("custom recurrence requires a positive interval in days")
		}
	}
	return n.Metadata.ValidateFor(n.Type)
}

// IsDue reports whether the notification is due for dispatch at the given time
func (n *ScheduledNotification) IsDue(now time.Time, lookahead time.Duration) bool {
	return !n.IsCancelled && n.SentAt == nil && !n.ScheduledFor.After(now.Add(lookahead))
}

// NextOccurrence computes the scheduled time of the successor occurrence.
// Arithmetic is fixed-interval over UTC timestamps, not calendar-local.
func (n *ScheduledNotification) NextOccurrence() (time.Time, error) {
	if n.RecurrencePattern == nil {
		return time.Time{}, fmt.Errorf("notification has no recurrence pattern")
	}
	switch *n.RecurrencePattern {
	case RecurrenceDaily:
		return n.ScheduledFor.Add(24 * time.Hour), nil
	case RecurrenceWeekly:
		return n.ScheduledFor.Add(7 * 24 * time.Hour), nil
	case RecurrenceCustom:
		if n.RecurrenceData.IntervalDays <= 0 {
			return time.Time{}, fmt.Errorf("custom recurrence requires a positive interval in days")
		}
		return n.ScheduledFor.Add(time.Duration(n.RecurrenceData.IntervalDays) * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence pattern: %s", *n.RecurrencePattern)
	}
}

// Successor builds the next occurrence row for a recurring notification,
// carrying over the title/body/type/recurrence configuration. The original
// row is never mutated so every occurrence keeps its own audit trail.
func (n *ScheduledNotification) Successor() (*ScheduledNotification, error) {
	next, err := n.NextOccurrence()
	if err != nil {
		return nil, err
	}
	return &ScheduledNotification{
		UserID:            n.UserID,
		Type:              n.Type,
		Title:             n.Title,
		Body:              n.Body,
		ScheduledFor:      next,
		IsRecurring:       true,
		RecurrencePattern: n.RecurrencePattern,
		RecurrenceData:    n.RecurrenceData,
		Metadata:          n.Metadata,
	}, nil
}

// ScheduledNotificationFilter represents filter criteria for scheduled notifications
type ScheduledNotificationFilter struct {
	ID           *uint
	UUID         *uuid.UUID
	UserID       *uint
	Type         *NotificationType
	IsCancelled  *bool
	IsRecurring  *bool
	Unsent       *bool
	DueBefore    *time.Time
	CreatedAfter *time.Time
}
