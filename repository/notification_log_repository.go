package repository

import (
	"context"
	"time"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// DeliveryLogRepositoryImpl implements the DeliveryLogRepository interface
type DeliveryLogRepositoryImpl struct {
	*BaseRepository[models.DeliveryLog, models.DeliveryLogFilter]
}

// NewDeliveryLogRepository creates a new delivery log repository
func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &DeliveryLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DeliveryLog, models.DeliveryLogFilter](db),
	}
}

// ByExternalID retrieves the most recent log entry matching a provider
// correlation id for the given method. Returns nil when nothing matches,
// stale provider callbacks are expected and not an error.
func (r *DeliveryLogRepositoryImpl) ByExternalID(ctx context.Context, method models.DeliveryMethod, externalID string) (*models.DeliveryLog, error) {
	filter := models.DeliveryLogFilter{
		Method:     &method,
		ExternalID: &externalID,
	}
	entries, err := r.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, nil
	}

	return entries[0], nil
}

// ListByNotification retrieves all channel attempts for one notification
func (r *DeliveryLogRepositoryImpl) ListByNotification(ctx context.Context, notificationID uint) ([]*models.DeliveryLog, error) {
	filter := models.DeliveryLogFilter{NotificationID: &notificationID}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// AttachResponse records a captured voice response against a log entry
func (r *DeliveryLogRepositoryImpl) AttachResponse(ctx context.Context, id uint, response string, at time.Time) error {
	db := r.getDB(ctx)

	return db.Model(&models.DeliveryLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"response":     response,
			"responded_at": at,
			"updated_at":   utils.UTCNow(),
		}).Error
}

// UpdateReceipts stamps client-reported receipt timestamps on a log entry.
// Only non-nil timestamps are written so receipts can arrive in any order.
func (r *DeliveryLogRepositoryImpl) UpdateReceipts(ctx context.Context, id uint, deliveredAt, openedAt, dismissedAt *time.Time) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"updated_at": utils.UTCNow(),
	}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	if openedAt != nil {
		updates["opened_at"] = *openedAt
	}
	if dismissedAt != nil {
		updates["dismissed_at"] = *dismissedAt
	}

	return db.Model(&models.DeliveryLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ByFilter retrieves log entries based on filter criteria
func (r *DeliveryLogRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLog, error) {
	db := r.getDB(ctx)

	var entries []*models.DeliveryLog
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

	err := query.Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the number of log entries matching the filter
func (r *DeliveryLogRepositoryImpl) Count(ctx context.Context, filter models.DeliveryLogFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.DeliveryLog{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any log entry matching the filter exists
func (r *DeliveryLogRepositoryImpl) Exists(ctx context.Context, filter models.DeliveryLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DeliveryLogRepositoryImpl) applyFilter(db *gorm.DB, filter models.DeliveryLogFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.NotificationID != nil {
		db = db.Where("notification_id = ?", *filter.NotificationID)
	}
	if filter.Method != nil {
		db = db.Where("method = ?", *filter.Method)
	}
	if filter.RecipientID != nil {
		db = db.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ExternalID != nil {
		db = db.Where("external_id = ?", *filter.ExternalID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
