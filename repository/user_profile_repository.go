package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"gorm.io/gorm"
)

// UserProfileRepositoryImpl implements the UserProfileRepository interface
type UserProfileRepositoryImpl struct {
	*BaseRepository[models.UserProfile, models.UserProfileFilter]
}

// NewUserProfileRepository creates a new user profile repository
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &UserProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserProfile, models.UserProfileFilter](db),
	}
}

// ByUserID retrieves a user's profile, nil when none exists
func (r *UserProfileRepositoryImpl) ByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	filter := models.UserProfileFilter{UserID: &userID}
	profiles, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		return nil, nil
	}

	return profiles[0], nil
}

// ByFilter retrieves profiles based on filter criteria
func (r *UserProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.UserProfileFilter, orderBy string, limit, offset int) ([]*models.UserProfile, error) {
	db := r.getDB(ctx)

	var profiles []*models.UserProfile
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

	err := query.Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// Count returns the number of profiles matching the filter
func (r *UserProfileRepositoryImpl) Count(ctx context.Context, filter models.UserProfileFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.UserProfile{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any profile matching the filter exists
func (r *UserProfileRepositoryImpl) Exists(ctx context.Context, filter models.UserProfileFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UserProfileRepositoryImpl) applyFilter(db *gorm.DB, filter models.UserProfileFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}

	return db
}
