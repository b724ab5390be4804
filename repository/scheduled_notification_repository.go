package repository

import (
	"context"
	"time"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScheduledNotificationRepositoryImpl implements the ScheduledNotificationRepository interface
type ScheduledNotificationRepositoryImpl struct {
	*BaseRepository[models.ScheduledNotification, models.ScheduledNotificationFilter]
}

// NewScheduledNotificationRepository creates a new scheduled notification repository
func NewScheduledNotificationRepository(db *gorm.DB) ScheduledNotificationRepository {
	return &ScheduledNotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ScheduledNotification, models.ScheduledNotificationFilter](db),
	}
}

// ByUUID retrieves a notification by UUID
func (r *ScheduledNotificationRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.ScheduledNotification, error) {
	parsedUUID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	filter := models.ScheduledNotificationFilter{UUID: &parsedUUID}
	notifications, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(notifications) == 0 {
		return nil, nil
	}

	return notifications[0], nil
}

// ListDue retrieves unsent, uncancelled notifications scheduled at or before
// now plus the lookahead window, oldest first
func (r *ScheduledNotificationRepositoryImpl) ListDue(ctx context.Context, now time.Time, lookahead time.Duration, limit int) ([]*models.ScheduledNotification, error) {
	horizon := now.Add(lookahead)
	filter := models.ScheduledNotificationFilter{
		Unsent:      utils.ToPtr(true),
		IsCancelled: utils.ToPtr(false),
		DueBefore:   &horizon,
	}
	return r.ByFilter(ctx, filter, "scheduled_for ASC", limit, 0)
}

// Claim atomically stamps sent_at on an unsent, uncancelled notification.
// The conditional update is the dispatch gate: whichever worker flips the row
// first wins, everyone else sees zero rows affected and walks away.
func (r *ScheduledNotificationRepositoryImpl) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	result := db.Model(&models.ScheduledNotification{}).
		Where("id = ? AND sent_at IS NULL AND is_cancelled = false", id).
		Updates(map[string]any{
			"sent_at":    at,
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// Release clears sent_at so a later cycle can retry the notification. Used
// when every channel failed with a retryable error after the claim was taken.
func (r *ScheduledNotificationRepositoryImpl) Release(ctx context.Context, id uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.ScheduledNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent_at":    nil,
			"updated_at": utils.UTCNow(),
		}).Error
}

// MarkSentWithError records a terminal failure, keeping sent_at so the row is
// never retried, with the reason preserved for diagnosis
func (r *ScheduledNotificationRepositoryImpl) MarkSentWithError(ctx context.Context, id uint, reason string) error {
	db := r.getDB(ctx)

	return db.Model(&models.ScheduledNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"delivery_error": reason,
			"updated_at":     utils.UTCNow(),
		}).Error
}

// Cancel flags a pending notification so the scheduler skips it
func (r *ScheduledNotificationRepositoryImpl) Cancel(ctx context.Context, id uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.ScheduledNotification{}).
		Where("id = ? AND sent_at IS NULL", id).
		Updates(map[string]any{
			"is_cancelled": true,
			"updated_at":   utils.UTCNow(),
		}).Error
}

// ByFilter retrieves notifications based on filter criteria
func (r *ScheduledNotificationRepositoryImpl) ByFilter(ctx context.Context, filter models.ScheduledNotificationFilter, orderBy string, limit, offset int) ([]*models.ScheduledNotification, error) {
	db := r.getDB(ctx)

	var notifications []*models.ScheduledNotification
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// Count returns the number of notifications matching the filter
func (r *ScheduledNotificationRepositoryImpl) Count(ctx context.Context, filter models.ScheduledNotificationFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ScheduledNotification{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any notification matching the filter exists
func (r *ScheduledNotificationRepositoryImpl) Exists(ctx context.Context, filter models.ScheduledNotificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ScheduledNotificationRepositoryImpl) applyFilter(db *gorm.DB, filter models.ScheduledNotificationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.IsCancelled != nil {
		db = db.Where("is_cancelled = ?", *filter.IsCancelled)
	}
	if filter.IsRecurring != nil {
		db = db.Where("is_recurring = ?", *filter.IsRecurring)
	}
	if filter.Unsent != nil {
		if *filter.Unsent {
			db = db.Where("sent_at IS NULL")
		} else {
			db = db.Where("sent_at IS NOT NULL")
		}
	}
	if filter.DueBefore != nil {
		db = db.Where("scheduled_for <= ?", *filter.DueBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}

	return db
}
