package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"gorm.io/gorm"
)

// SubscriptionRepositoryImpl implements the SubscriptionRepository interface
type SubscriptionRepositoryImpl struct {
	*BaseRepository[models.Subscription, models.SubscriptionFilter]
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Subscription, models.SubscriptionFilter](db),
	}
}

// ByUserID retrieves a user's subscription, nil when they have none
func (r *SubscriptionRepositoryImpl) ByUserID(ctx context.Context, userID uint) (*models.Subscription, error) {
	filter := models.SubscriptionFilter{UserID: &userID}
	subs, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(subs) == 0 {
		return nil, nil
	}

	return subs[0], nil
}

// ByFilter retrieves subscriptions based on filter criteria
func (r *SubscriptionRepositoryImpl) ByFilter(ctx context.Context, filter models.SubscriptionFilter, orderBy string, limit, offset int) ([]*models.Subscription, error) {
	db := r.getDB(ctx)

	var subs []*models.Subscription
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

	err := query.Find(&subs).Error
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// Count returns the number of subscriptions matching the filter
func (r *SubscriptionRepositoryImpl) Count(ctx context.Context, filter models.SubscriptionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Subscription{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any subscription matching the filter exists
func (r *SubscriptionRepositoryImpl) Exists(ctx context.Context, filter models.SubscriptionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *SubscriptionRepositoryImpl) applyFilter(db *gorm.DB, filter models.SubscriptionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Plan != nil {
		db = db.Where("plan = ?", *filter.Plan)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
