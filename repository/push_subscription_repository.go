package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepositoryImpl implements the PushSubscriptionRepository interface
type PushSubscriptionRepositoryImpl struct {
	*BaseRepository[models.PushSubscription, models.PushSubscriptionFilter]
}

// NewPushSubscriptionRepository creates a new push subscription repository
func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &PushSubscriptionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PushSubscription, models.PushSubscriptionFilter](db),
	}
}

// Upsert inserts a subscription or refreshes the keys of an existing one.
// Re-registering the same device endpoint must not produce duplicate rows.
func (r *PushSubscriptionRepositoryImpl) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	sub.UpdatedAt = utils.UTCNow()
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"p256dh_key", "auth_key", "device_info", "updated_at",
		}),
	}).Create(sub).Error
	if err != nil {
		return err
	}

	return nil
}

// ListByUser retrieves all registered push endpoints for a user
func (r *PushSubscriptionRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*models.PushSubscription, error) {
	filter := models.PushSubscriptionFilter{UserID: &userID}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// DeleteByEndpoint removes a subscription, used when the push provider
// reports the endpoint as gone
func (r *PushSubscriptionRepositoryImpl) DeleteByEndpoint(ctx context.Context, userID uint, endpoint string) error {
	db := r.getDB(ctx)

	return db.Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{}).Error
}

// ByFilter retrieves push subscriptions based on filter criteria
func (r *PushSubscriptionRepositoryImpl) ByFilter(ctx context.Context, filter models.PushSubscriptionFilter, orderBy string, limit, offset int) ([]*models.PushSubscription, error) {
	db := r.getDB(ctx)

	var subs []*models.PushSubscription
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

// Count returns the number of push subscriptions matching the filter
func (r *PushSubscriptionRepositoryImpl) Count(ctx context.Context, filter models.PushSubscriptionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.PushSubscription{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any push subscription matching the filter exists
func (r *PushSubscriptionRepositoryImpl) Exists(ctx context.Context, filter models.PushSubscriptionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PushSubscriptionRepositoryImpl) applyFilter(db *gorm.DB, filter models.PushSubscriptionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Endpoint != nil {
		db = db.Where("endpoint = ?", *filter.Endpoint)
	}

	return db
}
