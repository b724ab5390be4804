package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// SubscriptionPlan represents the billing plan of an account
type SubscriptionPlan string

const (
	PlanFree         SubscriptionPlan = "free"
	PlanFamily       SubscriptionPlan = "family"
	PlanProfessional SubscriptionPlan = "professional"
)

// String returns the string representation of the plan
func (p SubscriptionPlan) String() string {
	return string(p)
}

// Valid checks if the plan is valid
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanFree, PlanFamily, PlanProfessional:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SubscriptionPlan
func (p *SubscriptionPlan) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = SubscriptionPlan(v)
	case []byte:
		*p = SubscriptionPlan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SubscriptionPlan", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SubscriptionPlan
func (p SubscriptionPlan) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid SubscriptionPlan: %s", p)
	}
	return string(p), nil
}

// Subscription represents a user's active billing plan. The notification
// pipeline only reads it to gate premium notification categories.
type Subscription struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:uk_subscriptions_user_id" json:"user_id"`
	Plan      SubscriptionPlan `gorm:"type:subscription_plan;not null;default:'free'" json:"plan"`
	IsActive  bool             `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for the model
func (Subscription) TableName() string {
	return "subscriptions"
}

// BeforeCreate is called before creating a new record
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if !s.Plan.Valid() {
		return fmt.Errorf("invalid subscription plan: %s", s.Plan)
	}
	return nil
}

// EffectivePlan resolves the plan in force, treating inactive or expired
// subscriptions as free
func (s *Subscription) EffectivePlan(now time.Time) SubscriptionPlan {
	if !s.IsActive {
		return PlanFree
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return PlanFree
	}
	return s.Plan
}

// SubscriptionFilter represents filter criteria for subscriptions
type SubscriptionFilter struct {
	ID       *uint
	UserID   *uint
	Plan     *SubscriptionPlan
	IsActive *bool
}
