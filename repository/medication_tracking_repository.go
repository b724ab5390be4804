package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"gorm.io/gorm"
)

// MedicationTrackingRepositoryImpl implements the MedicationTrackingRepository interface
type MedicationTrackingRepositoryImpl struct {
	*BaseRepository[models.MedicationTracking, models.MedicationTrackingFilter]
}

// NewMedicationTrackingRepository creates a new medication tracking repository
func NewMedicationTrackingRepository(db *gorm.DB) MedicationTrackingRepository {
	return &MedicationTrackingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MedicationTracking, models.MedicationTrackingFilter](db),
	}
}

// LatestByReminder retrieves the most recent tracking row for a reminder
func (r *MedicationTrackingRepositoryImpl) LatestByReminder(ctx context.Context, userID, reminderID uint) (*models.MedicationTracking, error) {
	filter := models.MedicationTrackingFilter{
		UserID:     &userID,
		ReminderID: &reminderID,
	}
	rows, err := r.ByFilter(ctx, filter, "recorded_at DESC", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}

// ByFilter retrieves tracking rows based on filter criteria
func (r *MedicationTrackingRepositoryImpl) ByFilter(ctx context.Context, filter models.MedicationTrackingFilter, orderBy string, limit, offset int) ([]*models.MedicationTracking, error) {
	db := r.getDB(ctx)

	var rows []*models.MedicationTracking
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

	err := query.Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the number of tracking rows matching the filter
func (r *MedicationTrackingRepositoryImpl) Count(ctx context.Context, filter models.MedicationTrackingFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.MedicationTracking{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any tracking row matching the filter exists
func (r *MedicationTrackingRepositoryImpl) Exists(ctx context.Context, filter models.MedicationTrackingFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MedicationTrackingRepositoryImpl) applyFilter(db *gorm.DB, filter models.MedicationTrackingFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.ReminderID != nil {
		db = db.Where("reminder_id = ?", *filter.ReminderID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	return db
}
