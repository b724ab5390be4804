package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"gorm.io/gorm"
)

// ActivityLogRepositoryImpl implements the ActivityLogRepository interface
type ActivityLogRepositoryImpl struct {
	*BaseRepository[models.ActivityLog, models.ActivityLogFilter]
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &ActivityLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ActivityLog, models.ActivityLogFilter](db),
	}
}

// ListByUser retrieves a user's activity trail, newest first
func (r *ActivityLogRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.ActivityLog, error) {
	filter := models.ActivityLogFilter{UserID: &userID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByFilter retrieves activity entries based on filter criteria
func (r *ActivityLogRepositoryImpl) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var entries []*models.ActivityLog
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

// Count returns the number of activity entries matching the filter
func (r *ActivityLogRepositoryImpl) Count(ctx context.Context, filter models.ActivityLogFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ActivityLog{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any activity entry matching the filter exists
func (r *ActivityLogRepositoryImpl) Exists(ctx context.Context, filter models.ActivityLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ActivityLogRepositoryImpl) applyFilter(db *gorm.DB, filter models.ActivityLogFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.ActivityType != nil {
		db = db.Where("activity_type = ?", *filter.ActivityType)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}

	return db
}
