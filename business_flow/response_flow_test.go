package businessflow

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/app/services"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCallLogRepo struct {
	repository.DeliveryLogRepository

	bySid     map[string]*models.DeliveryLog
	responses map[uint]string
}

func newFakeCallLogRepo() *fakeCallLogRepo {
	return &fakeCallLogRepo{
		bySid:     make(map[string]*models.DeliveryLog),
		responses: make(map[uint]string),
	}
}

func (f *fakeCallLogRepo) ByExternalID(ctx context.Context, method models.DeliveryMethod, externalID string) (*models.DeliveryLog, error) {
	return f.bySid[externalID], nil
}

func (f *fakeCallLogRepo) AttachResponse(ctx context.Context, id uint, response string, at time.Time) error {
	f.responses[id] = response
	return nil
}

type fakeCareContactRepo struct {
	repository.CareContactRepository

	contacts []*models.CareContact
}

func (f *fakeCareContactRepo) ListAlertContacts(ctx context.Context, elderID uint) ([]*models.CareContact, error) {
	return f.contacts, nil
}

type fakeProfileRepo struct {
	repository.UserProfileRepository

	profile *models.UserProfile
}

func (f *fakeProfileRepo) ByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	return f.profile, nil
}

type responseFlowFixture struct {
	logRepo          *fakeCallLogRepo
	notificationRepo *fakeNotificationRepo
	contactRepo      *fakeCareContactRepo
	sms              *services.MockSMSService
	flow             *ResponseFlowImpl
	escalated        []uint
}

func newResponseFlowFixture() *responseFlowFixture {
	fx := &responseFlowFixture{
		logRepo:          newFakeCallLogRepo(),
		notificationRepo: &fakeNotificationRepo{byID: make(map[uint]*models.ScheduledNotification)},
		contactRepo:      &fakeCareContactRepo{},
		sms:              services.NewMockSMSService(),
	}

	flow := NewResponseFlow(
		fx.logRepo,
		fx.notificationRepo,
		fx.contactRepo,
		&fakeProfileRepo{profile: &models.UserProfile{UserID: 42, FirstName: "Margaret"}},
		fx.sms,
		log.New(io.Discard, "", 0),
	).(*ResponseFlowImpl)

	// Capture escalations synchronously instead of spawning goroutines
	flow.escalate = func(notificationID uint) {
		fx.escalated = append(fx.escalated, notificationID)
	}

	fx.flow = flow
	return fx
}

func TestHandleVoiceResponsePositiveDigit(t *testing.T) {
	fx := newResponseFlowFixture()
	fx.logRepo.bySid["call-1"] = &models.DeliveryLog{ID: 5, NotificationID: 3}

	markup := fx.flow.HandleVoiceResponse(context.Background(), dto.VoiceResponseRequest{
		CallSid: "call-1",
		Digits:  "1",
	})

	assert.Contains(t, markup, "Great to hear")
	assert.Equal(t, ResponseOK, fx.logRepo.responses[5])
	assert.Empty(t, fx.escalated)
}

func TestHandleVoiceResponseAssistanceDigitEscalates(t *testing.T) {
	fx := newResponseFlowFixture()
	fx.logRepo.bySid["call-1"] = &models.DeliveryLog{ID: 5, NotificationID: 3}

	markup := fx.flow.HandleVoiceResponse(context.Background(), dto.VoiceResponseRequest{
		CallSid: "call-1",
		Digits:  "2",
	})

	assert.Contains(t, markup, "being notified")
	assert.Equal(t, ResponseNeedsAssistance, fx.logRepo.responses[5])
	assert.Equal(t, []uint{3}, fx.escalated)
}

func TestHandleVoiceResponseUnrecognizedDigit(t *testing.T) {
	fx := newResponseFlowFixture()
	fx.logRepo.bySid["call-1"] = &models.DeliveryLog{ID: 5, NotificationID: 3}

	markup := fx.flow.HandleVoiceResponse(context.Background(), dto.VoiceResponseRequest{
		CallSid: "call-1",
		Digits:  "9",
	})

	assert.Contains(t, markup, "did not understand")
	assert.Equal(t, ResponseUnrecognized, fx.logRepo.responses[5])
	assert.Empty(t, fx.escalated)
}

func TestHandleVoiceResponseCorrelationMiss(t *testing.T) {
	fx := newResponseFlowFixture()

	markup := fx.flow.HandleVoiceResponse(context.Background(), dto.VoiceResponseRequest{
		CallSid: "unknown-sid",
		Digits:  "2",
	})

	assert.True(t, strings.HasPrefix(markup, `<?xml version="1.0" encoding="UTF-8"?>`), markup)
	assert.Empty(t, fx.logRepo.responses)
	assert.Empty(t, fx.escalated)
}

func TestHandleVoiceResponseMissingSid(t *testing.T) {
	fx := newResponseFlowFixture()

	markup := fx.flow.HandleVoiceResponse(context.Background(), dto.VoiceResponseRequest{Digits: "1"})

	assert.Contains(t, markup, "<Response>")
	assert.Empty(t, fx.logRepo.responses)
}

func TestEscalateSkipsContactsWithoutPhones(t *testing.T) {
	fx := newResponseFlowFixture()
	fx.notificationRepo.byID[3] = &models.ScheduledNotification{ID: 3, UserID: 42, Type: models.NotificationTypeWellness}
	fx.contactRepo.contacts = []*models.CareContact{
		{ID: 1, ElderID: 42, Name: "Jane", Phone: utils.ToPtr("+15551112222"), CanReceiveAlerts: true},
		{ID: 2, ElderID: 42, Name: "Tom", CanReceiveAlerts: true},
	}

	before := testutil.ToFloat64(escalationsSent)
	sent, err := fx.flow.EscalateNeedsAssistance(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	require.Len(t, fx.sms.SentMessages, 1)
	assert.Equal(t, "+15551112222", fx.sms.SentMessages[0].Recipient)
	assert.Contains(t, fx.sms.SentMessages[0].Message, "Margaret")
	assert.Equal(t, before+1, testutil.ToFloat64(escalationsSent))
}

func TestEscalateUnknownNotification(t *testing.T) {
	fx := newResponseFlowFixture()

	_, err := fx.flow.EscalateNeedsAssistance(context.Background(), 99)
	assert.True(t, IsNotificationNotFound(err))
}

func TestEscalateNoContactsIsNotAnError(t *testing.T) {
	fx := newResponseFlowFixture()
	fx.notificationRepo.byID[3] = &models.ScheduledNotification{ID: 3, UserID: 42, Type: models.NotificationTypeWellness}

	sent, err := fx.flow.EscalateNeedsAssistance(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, fx.sms.SentMessages)
}
