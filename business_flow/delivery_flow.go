// Package businessflow contains the core business logic and use cases for notification delivery workflows
package businessflow

import (
	"context"
	"log"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"gorm.io/gorm"
)

// DeliveryFlow handles receipt logging, push registration, and medication actions
type DeliveryFlow interface {
	LogDeliveryReceipt(ctx context.Context, req dto.LogDeliveryRequest) error
	SubscribePush(ctx context.Context, req dto.SubscribePushRequest) (*dto.SubscribePushResponse, error)
	MedicationAction(ctx context.Context, req dto.MedicationActionRequest) (*dto.MedicationActionResponse, error)
}

// DeliveryFlowImpl implements DeliveryFlow
type DeliveryFlowImpl struct {
	db               *gorm.DB
	deliveryLogRepo  repository.DeliveryLogRepository
	pushSubRepo      repository.PushSubscriptionRepository
	notificationRepo repository.ScheduledNotificationRepository
	medicationRepo   repository.MedicationTrackingRepository
	activityRepo     repository.ActivityLogRepository
	logger           *log.Logger
}

// NewDeliveryFlow creates a new delivery flow
func NewDeliveryFlow(
	db *gorm.DB,
	deliveryLogRepo repository.DeliveryLogRepository,
	pushSubRepo repository.PushSubscriptionRepository,
	notificationRepo repository.ScheduledNotificationRepository,
	medicationRepo repository.MedicationTrackingRepository,
	activityRepo repository.ActivityLogRepository,
	logger *log.Logger,
) DeliveryFlow {
	return &DeliveryFlowImpl{
		db:               db,
		deliveryLogRepo:  deliveryLogRepo,
		pushSubRepo:      pushSubRepo,
		notificationRepo: notificationRepo,
		medicationRepo:   medicationRepo,
		activityRepo:     activityRepo,
		logger:           logger,
	}
}

// LogDeliveryReceipt stamps client-reported receipt timestamps on the most
// recent log entry for the (notification, method) pair
func (f *DeliveryFlowImpl) LogDeliveryReceipt(ctx context.Context, req dto.LogDeliveryRequest) error {
	if req.NotificationID == 0 {
		return NewBusinessError("NOTIFICATION_ID_REQUIRED", "notification_id is required", ErrNotificationIDRequired)
	}

	method := models.DeliveryMethod(req.Method)
	if !method.Valid() {
		return NewBusinessErrorf("INVALID_DELIVERY_METHOD", "unknown delivery method %q", ErrInvalidDeliveryMethod, req.Method)
	}

	filter := models.DeliveryLogFilter{
		NotificationID: &req.NotificationID,
		Method:         &method,
	}
	entries, err := f.deliveryLogRepo.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return NewBusinessErrorf("DELIVERY_LOG_NOT_FOUND", "no %s delivery recorded for notification %d", ErrDeliveryLogNotFound, req.Method, req.NotificationID)
	}

	return f.deliveryLogRepo.UpdateReceipts(ctx, entries[0].ID, req.DeliveredAt, req.OpenedAt, req.DismissedAt)
}

// SubscribePush upserts the push subscription keyed by (user, endpoint)
func (f *DeliveryFlowImpl) SubscribePush(ctx context.Context, req dto.SubscribePushRequest) (*dto.SubscribePushResponse, error) {
	if req.Endpoint == "" {
		return nil, NewBusinessError("ENDPOINT_REQUIRED", "push endpoint is required", ErrEndpointRequired)
	}
	if req.P256dhKey == "" || req.AuthKey == "" {
		return nil, NewBusinessError("KEYS_REQUIRED", "push subscription keys are required", ErrKeysRequired)
	}

	sub := &models.PushSubscription{
		UserID:    req.UserID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		DeviceInfo: models.DeviceInfo{
			Platform:   req.DeviceInfo["platform"],
			Browser:    req.DeviceInfo["browser"],
			DeviceName: req.DeviceInfo["device_name"],
		},
	}
	if err := f.pushSubRepo.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	return &dto.SubscribePushResponse{
		Message:        "Push subscription registered",
		SubscriptionID: sub.ID,
	}, nil
}

// MedicationAction records a "taken" outcome or schedules a snooze reminder.
// Taken writes the tracking and activity rows in a single transaction so a
// partial record never survives a failure.
func (f *DeliveryFlowImpl) MedicationAction(ctx context.Context, req dto.MedicationActionRequest) (*dto.MedicationActionResponse, error) {
	if req.ReminderID == 0 {
		return nil, NewBusinessError("REMINDER_ID_REQUIRED", "reminder_id is required", ErrReminderIDRequired)
	}

	actionAt := utils.UTCNow()
	if req.ActionAt != nil {
		actionAt = utils.TimeToUTC(*req.ActionAt)
	}

	switch req.Action {
	case "taken":
		err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			tracking := &models.MedicationTracking{
				UserID:     req.UserID,
				ReminderID: req.ReminderID,
				Status:     models.MedicationStatusTaken,
				RecordedAt: actionAt,
			}
			if err := f.medicationRepo.Save(txCtx, tracking); err != nil {
				return err
			}
			activity := &models.ActivityLog{
				UserID:       req.UserID,
				ActivityType: "medication_taken",
				Description:  "Medication reminder confirmed as taken",
				Details: models.ActivityDetails{
					"reminder_id": req.ReminderID,
					"recorded_at": actionAt,
				},
			}
			return f.activityRepo.Save(txCtx, activity)
		})
		if err != nil {
			return nil, err
		}
		return &dto.MedicationActionResponse{Message: "Medication recorded as taken"}, nil

	case "snooze":
		snoozedFor := actionAt.Add(utils.SnoozeInterval)
		notification := &models.ScheduledNotification{
			UserID:       req.UserID,
			Type:         models.NotificationTypeMedication,
			Title:        "Medication Reminder",
			Body:         "This is your snoozed medication reminder.",
			ScheduledFor: snoozedFor,
			Metadata: models.NotificationMetadata{
				Medication: &models.MedicationMetadata{ReminderID: req.ReminderID},
			},
		}
		if err := f.notificationRepo.Save(ctx, notification); err != nil {
			return nil, err
		}
		return &dto.MedicationActionResponse{
			Message:    "Reminder snoozed",
			SnoozedFor: &snoozedFor,
		}, nil

	default:
		return nil, NewBusinessErrorf("UNKNOWN_ACTION", "unknown medication action %q", ErrUnknownAction, req.Action)
	}
}
