package repository

import (
	"context"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// CareContactRepositoryImpl implements the CareContactRepository interface
type CareContactRepositoryImpl struct {
	*BaseRepository[models.CareContact, models.CareContactFilter]
}

// NewCareContactRepository creates a new care contact repository
func NewCareContactRepository(db *gorm.DB) CareContactRepository {
	return &CareContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CareContact, models.CareContactFilter](db),
	}
}

// ListAlertContacts retrieves the contacts opted in to receive alerts for an
// elder, the escalation fan-out set
func (r *CareContactRepositoryImpl) ListAlertContacts(ctx context.Context, elderID uint) ([]*models.CareContact, error) {
	filter := models.CareContactFilter{
		ElderID:          &elderID,
		CanReceiveAlerts: utils.ToPtr(true),
	}
	return r.ByFilter(ctx, filter, "created_at ASC", 0, 0)
}

// ByFilter retrieves care contacts based on filter criteria
func (r *CareContactRepositoryImpl) ByFilter(ctx context.Context, filter models.CareContactFilter, orderBy string, limit, offset int) ([]*models.CareContact, error) {
	db := r.getDB(ctx)

	var contacts []*models.CareContact
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

	err := query.Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// Count returns the number of care contacts matching the filter
func (r *CareContactRepositoryImpl) Count(ctx context.Context, filter models.CareContactFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CareContact{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any care contact matching the filter exists
func (r *CareContactRepositoryImpl) Exists(ctx context.Context, filter models.CareContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CareContactRepositoryImpl) applyFilter(db *gorm.DB, filter models.CareContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ElderID != nil {
		db = db.Where("elder_id = ?", *filter.ElderID)
	}
	if filter.CanReceiveAlerts != nil {
		db = db.Where("can_receive_alerts = ?", *filter.CanReceiveAlerts)
	}

	return db
}
