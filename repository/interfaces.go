// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/evercare-app/notification-service/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// ScheduledNotificationRepository defines operations for scheduled notifications
type ScheduledNotificationRepository interface {
	Repository[models.ScheduledNotification, models.ScheduledNotificationFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ScheduledNotification, error)
	ListDue(ctx context.Context, now time.Time, lookahead time.Duration, limit int) ([]*models.ScheduledNotification, error)
	Claim(ctx context.Context, id uint, at time.Time) (bool, error)
	Release(ctx context.Context, id uint) error
	MarkSentWithError(ctx context.Context, id uint, reason string) error
	Cancel(ctx context.Context, id uint) error
}

// DeliveryLogRepository defines operations for delivery log entries
type DeliveryLogRepository interface {
	Repository[models.DeliveryLog, models.DeliveryLogFilter]
	ByExternalID(ctx context.Context, method models.DeliveryMethod, externalID string) (*models.DeliveryLog, error)
	ListByNotification(ctx context.Context, notificationID uint) ([]*models.DeliveryLog, error)
	AttachResponse(ctx context.Context, id uint, response string, at time.Time) error
	UpdateReceipts(ctx context.Context, id uint, deliveredAt, openedAt, dismissedAt *time.Time) error
}

// CareContactRepository defines operations for elder care contacts
type CareContactRepository interface {
	Repository[models.CareContact, models.CareContactFilter]
	ListAlertContacts(ctx context.Context, elderID uint) ([]*models.CareContact, error)
}

// PushSubscriptionRepository defines operations for web push subscriptions
type PushSubscriptionRepository interface {
	Repository[models.PushSubscription, models.PushSubscriptionFilter]
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID uint) ([]*models.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, userID uint, endpoint string) error
}

// UserProfileRepository defines read operations for elder profiles
type UserProfileRepository interface {
	Repository[models.UserProfile, models.UserProfileFilter]
	ByUserID(ctx context.Context, userID uint) (*models.UserProfile, error)
}

// SubscriptionRepository defines operations for billing subscriptions
type SubscriptionRepository interface {
	Repository[models.Subscription, models.SubscriptionFilter]
	ByUserID(ctx context.Context, userID uint) (*models.Subscription, error)
}

// MedicationTrackingRepository defines operations for medication tracking rows
type MedicationTrackingRepository interface {
	Repository[models.MedicationTracking, models.MedicationTrackingFilter]
	LatestByReminder(ctx context.Context, userID, reminderID uint) (*models.MedicationTracking, error)
}

// ActivityLogRepository defines operations for the activity audit trail
type ActivityLogRepository interface {
	Repository[models.ActivityLog, models.ActivityLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.ActivityLog, error)
}
