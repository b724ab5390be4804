package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliveryLogRepo struct {
	repository.DeliveryLogRepository

	entries       []*models.DeliveryLog
	lastFilter    models.DeliveryLogFilter
	receiptsForID uint
	deliveredAt   *time.Time
	openedAt      *time.Time
	dismissedAt   *time.Time
}

func (f *fakeDeliveryLogRepo) ByFilter(ctx context.Context, filter models.DeliveryLogFilter, orderBy string, limit, offset int) ([]*models.DeliveryLog, error) {
	f.lastFilter = filter
	return f.entries, nil
}

func (f *fakeDeliveryLogRepo) UpdateReceipts(ctx context.Context, id uint, deliveredAt, openedAt, dismissedAt *time.Time) error {
	f.receiptsForID = id
	f.deliveredAt = deliveredAt
	f.openedAt = openedAt
	f.dismissedAt = dismissedAt
	return nil
}

type fakePushSubRepo struct {
	repository.PushSubscriptionRepository

	upserted *models.PushSubscription
}

func (f *fakePushSubRepo) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	sub.ID = 11
	f.upserted = sub
	return nil
}

type fakeNotificationRepo struct {
	repository.ScheduledNotificationRepository

	byID  map[uint]*models.ScheduledNotification
	saved []*models.ScheduledNotification
}

func (f *fakeNotificationRepo) Save(ctx context.Context, n *models.ScheduledNotification) error {
	f.saved = append(f.saved, n)
	return nil
}

func (f *fakeNotificationRepo) ByID(ctx context.Context, id uint) (*models.ScheduledNotification, error) {
	return f.byID[id], nil
}

func newDeliveryFlowFixture() (*fakeDeliveryLogRepo, *fakePushSubRepo, *fakeNotificationRepo, DeliveryFlow) {
	deliveryLogRepo := &fakeDeliveryLogRepo{}
	pushSubRepo := &fakePushSubRepo{}
	notificationRepo := &fakeNotificationRepo{}
	flow := NewDeliveryFlow(nil, deliveryLogRepo, pushSubRepo, notificationRepo, nil, nil, nil)
	return deliveryLogRepo, pushSubRepo, notificationRepo, flow
}

func TestLogDeliveryReceiptStampsNewestEntry(t *testing.T) {
	deliveryLogRepo, _, _, flow := newDeliveryFlowFixture()
	deliveryLogRepo.entries = []*models.DeliveryLog{{ID: 9, NotificationID: 3, Method: models.DeliveryMethodPush}}

	deliveredAt := utils.UTCNow()
	err := flow.LogDeliveryReceipt(context.Background(), dto.LogDeliveryRequest{
		NotificationID: 3,
		Method:         "push",
		DeliveredAt:    &deliveredAt,
	})
	require.NoError(t, err)

	assert.Equal(t, uint(9), deliveryLogRepo.receiptsForID)
	require.NotNil(t, deliveryLogRepo.deliveredAt)
	assert.Nil(t, deliveryLogRepo.openedAt)
	require.NotNil(t, deliveryLogRepo.lastFilter.Method)
	assert.Equal(t, models.DeliveryMethodPush, *deliveryLogRepo.lastFilter.Method)
}

func TestLogDeliveryReceiptRejectsUnknownMethod(t *testing.T) {
	_, _, _, flow := newDeliveryFlowFixture()

	err := flow.LogDeliveryReceipt(context.Background(), dto.LogDeliveryRequest{
		NotificationID: 3,
		Method:         "pigeon",
	})
	assert.True(t, IsInvalidDeliveryMethod(err))
}

func TestLogDeliveryReceiptMissingEntry(t *testing.T) {
	_, _, _, flow := newDeliveryFlowFixture()

	err := flow.LogDeliveryReceipt(context.Background(), dto.LogDeliveryRequest{
		NotificationID: 3,
		Method:         "sms",
	})
	assert.True(t, IsDeliveryLogNotFound(err))
}

func TestSubscribePushUpserts(t *testing.T) {
	_, pushSubRepo, _, flow := newDeliveryFlowFixture()

	resp, err := flow.SubscribePush(context.Background(), dto.SubscribePushRequest{
		UserID:    42,
		Endpoint:  "https://push.example.com/send/abc",
		P256dhKey: "p256dh",
		AuthKey:   "auth",
		DeviceInfo: map[string]string{
			"platform": "web",
			"browser":  "firefox",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, uint(11), resp.SubscriptionID)
	require.NotNil(t, pushSubRepo.upserted)
	assert.Equal(t, "firefox", pushSubRepo.upserted.DeviceInfo.Browser)
}

func TestSubscribePushRequiresKeys(t *testing.T) {
	_, _, _, flow := newDeliveryFlowFixture()

	_, err := flow.SubscribePush(context.Background(), dto.SubscribePushRequest{
		UserID:   42,
		Endpoint: "https://push.example.com/send/abc",
	})
	assert.True(t, IsKeysRequired(err))
}

func TestMedicationActionSnoozeSchedulesReminder(t *testing.T) {
	_, _, notificationRepo, flow := newDeliveryFlowFixture()

	actionAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	resp, err := flow.MedicationAction(context.Background(), dto.MedicationActionRequest{
		UserID:     42,
		ReminderID: 7,
		Action:     "snooze",
		ActionAt:   &actionAt,
	})
	require.NoError(t, err)

	require.NotNil(t, resp.SnoozedFor)
	assert.Equal(t, actionAt.Add(utils.SnoozeInterval), *resp.SnoozedFor)

	require.Len(t, notificationRepo.saved, 1)
	snoozed := notificationRepo.saved[0]
	assert.Equal(t, models.NotificationTypeMedication, snoozed.Type)
	assert.Equal(t, actionAt.Add(utils.SnoozeInterval), snoozed.ScheduledFor)
	require.NotNil(t, snoozed.Metadata.Medication)
	assert.Equal(t, uint(7), snoozed.Metadata.Medication.ReminderID)
}

func TestMedicationActionUnknownAction(t *testing.T) {
	_, _, _, flow := newDeliveryFlowFixture()

	_, err := flow.MedicationAction(context.Background(), dto.MedicationActionRequest{
		UserID:     42,
		ReminderID: 7,
		Action:     "skip",
	})
	assert.True(t, IsUnknownAction(err))
}

func TestMedicationActionRequiresReminderID(t *testing.T) {
	_, _, _, flow := newDeliveryFlowFixture()

	_, err := flow.MedicationAction(context.Background(), dto.MedicationActionRequest{
		UserID: 42,
		Action: "taken",
	})
	assert.True(t, IsReminderIDRequired(err))
}
