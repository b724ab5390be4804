package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evercare-app/notification-service/app/services"
	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	repository.ScheduledNotificationRepository

	mu          sync.Mutex
	due         []*models.ScheduledNotification
	listErr     error
	claimDenied map[uint]bool
	claimed     map[uint]bool
	released    []uint
	terminal    map[uint]string
	saved       []*models.ScheduledNotification
}

func newFakeNotificationRepo(due ...*models.ScheduledNotification) *fakeNotificationRepo {
	return &fakeNotificationRepo{
		due:         due,
		claimDenied: make(map[uint]bool),
		claimed:     make(map[uint]bool),
		terminal:    make(map[uint]string),
	}
}

func (f *fakeNotificationRepo) ListDue(ctx context.Context, now time.Time, lookahead time.Duration, limit int) ([]*models.ScheduledNotification, error) {
	return f.due, f.listErr
}

func (f *fakeNotificationRepo) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimDenied[id] || f.claimed[id] {
		return false, nil
	}
	f.claimed[id] = true
	return true, nil
}

func (f *fakeNotificationRepo) Release(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, id)
	f.released = append(f.released, id)
	return nil
}

func (f *fakeNotificationRepo) MarkSentWithError(ctx context.Context, id uint, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminal[id] = reason
	return nil
}

func (f *fakeNotificationRepo) Save(ctx context.Context, n *models.ScheduledNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, n)
	return nil
}

type fakeDeliveryLogRepo struct {
	repository.DeliveryLogRepository

	mu      sync.Mutex
	entries []*models.DeliveryLog
}

func (f *fakeDeliveryLogRepo) Save(ctx context.Context, entry *models.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeDeliveryLogRepo) byStatus(status models.DeliveryStatus) []*models.DeliveryLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DeliveryLog
	for _, e := range f.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeProfileRepo struct {
	repository.UserProfileRepository

	profile *models.UserProfile
	err     error
}

func (f *fakeProfileRepo) ByUserID(ctx context.Context, userID uint) (*models.UserProfile, error) {
	return f.profile, f.err
}

type fakePushSubRepo struct {
	repository.PushSubscriptionRepository

	subs []*models.PushSubscription
}

func (f *fakePushSubRepo) ListByUser(ctx context.Context, userID uint) ([]*models.PushSubscription, error) {
	return f.subs, nil
}

type fakeAdapter struct {
	method models.DeliveryMethod

	mu     sync.Mutex
	result services.SendResult
	err    error
	calls  int
}

func (a *fakeAdapter) Method() models.DeliveryMethod { return a.method }

func (a *fakeAdapter) Send(ctx context.Context, req services.ChannelRequest) (services.SendResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.result, a.err
}

func acceptedResult(id string) services.SendResult {
	return services.SendResult{Accepted: true, ExternalID: utils.ToPtr(id)}
}

type schedulerFixture struct {
	notificationRepo *fakeNotificationRepo
	deliveryLogRepo  *fakeDeliveryLogRepo
	gate             *services.MockPlanGate
	scheduler        *NotificationScheduler
}

func newSchedulerFixture(t *testing.T, notificationRepo *fakeNotificationRepo, adapters ...services.ChannelAdapter) *schedulerFixture {
	t.Helper()
	deliveryLogRepo := &fakeDeliveryLogRepo{}
	gate := services.NewMockPlanGate()
	profile := &models.UserProfile{
		UserID:        42,
		FirstName:     "Margaret",
		GreetingStyle: "warm",
		Phone:         utils.ToPtr("+15551234567"),
		Email:         utils.ToPtr("margaret@example.com"),
	}

	s := NewNotificationScheduler(
		notificationRepo,
		deliveryLogRepo,
		&fakeProfileRepo{profile: profile},
		&fakePushSubRepo{subs: []*models.PushSubscription{{UserID: 42, Endpoint: "https://push.example.com/1", P256dhKey: "p", AuthKey: "a"}}},
		services.NewChannelRegistry(adapters...),
		services.NewMockMessageComposer(services.ComposedMessage{Text: "Time for your medication", EstimatedSeconds: 7}),
		gate,
		nil,
		config.SchedulerConfig{Concurrency: 1},
	)

	return &schedulerFixture{
		notificationRepo: notificationRepo,
		deliveryLogRepo:  deliveryLogRepo,
		gate:             gate,
		scheduler:        s,
	}
}

func dueMedication(id uint) *models.ScheduledNotification {
	return &models.ScheduledNotification{
		ID:           id,
		UserID:       42,
		Type:         models.NotificationTypeMedication,
		Title:        "Medication reminder",
		Body:         "Time for your medication",
		ScheduledFor: utils.UTCNow().Add(-time.Minute),
	}
}

func TestRunOnceDispatchesAcrossChannels(t *testing.T) {
	repo := newFakeNotificationRepo(dueMedication(1))
	push := &fakeAdapter{method: models.DeliveryMethodPush, result: acceptedResult("push-1")}
	sms := &fakeAdapter{method: models.DeliveryMethodSMS, result: acceptedResult("sms-1")}
	fx := newSchedulerFixture(t, repo, push, sms)

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 1, Sent: 1, Errors: 0}, stats)
	assert.Equal(t, 1, push.calls)
	assert.Equal(t, 1, sms.calls)

	sent := fx.deliveryLogRepo.byStatus(models.DeliveryStatusSent)
	require.Len(t, sent, 2)
	assert.Equal(t, uint(1), sent[0].NotificationID)
	assert.Equal(t, uint(42), sent[0].RecipientID)
	require.NotNil(t, sent[0].ExternalID)
	assert.Empty(t, repo.terminal)
	assert.Empty(t, repo.released)
}

func TestRunOnceSkipsWhenClaimLost(t *testing.T) {
	repo := newFakeNotificationRepo(dueMedication(1))
	repo.claimDenied[1] = true
	push := &fakeAdapter{method: models.DeliveryMethodPush, result: acceptedResult("push-1")}
	fx := newSchedulerFixture(t, repo, push)

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{}, stats)
	assert.Zero(t, push.calls)
	assert.Empty(t, fx.deliveryLogRepo.entries)
}

func TestRunOncePermanentFailuresAreTerminal(t *testing.T) {
	repo := newFakeNotificationRepo(dueMedication(1))
	push := &fakeAdapter{method: models.DeliveryMethodPush, result: services.SendResult{ErrorMessage: "no push subscription registered", Permanent: true}}
	sms := &fakeAdapter{method: models.DeliveryMethodSMS, result: services.SendResult{ErrorMessage: "provider rejected request: invalid number (400)", Permanent: true}}
	fx := newSchedulerFixture(t, repo, push, sms)

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	// Terminal failures are processed but neither sent nor retried
	assert.Equal(t, RunStats{Processed: 1, Sent: 0, Errors: 0}, stats)
	assert.Empty(t, repo.released)
	require.Contains(t, repo.terminal, uint(1))
	assert.Contains(t, repo.terminal[1], "invalid number")

	failed := fx.deliveryLogRepo.byStatus(models.DeliveryStatusFailed)
	assert.Len(t, failed, 2)
}

func TestRunOnceRetryableFailureReleasesClaim(t *testing.T) {
	n := dueMedication(1)
	n.Metadata.Channels = []models.DeliveryMethod{models.DeliveryMethodSMS}
	repo := newFakeNotificationRepo(n)
	sms := &fakeAdapter{method: models.DeliveryMethodSMS, result: services.SendResult{ErrorMessage: "provider rejected request: overloaded (503)"}}
	fx := newSchedulerFixture(t, repo, sms)

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 1, Sent: 0, Errors: 1}, stats)
	assert.Equal(t, []uint{1}, repo.released)
	assert.Empty(t, repo.terminal)
}

func TestRunOnceTransportErrorReleasesClaim(t *testing.T) {
	n := dueMedication(1)
	n.Metadata.Channels = []models.DeliveryMethod{models.DeliveryMethodSMS}
	repo := newFakeNotificationRepo(n)
	sms := &fakeAdapter{method: models.DeliveryMethodSMS, err: errors.New("connection refused")}
	fx := newSchedulerFixture(t, repo, sms)

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 1, Sent: 0, Errors: 1}, stats)
	assert.Equal(t, []uint{1}, repo.released)

	failed := fx.deliveryLogRepo.byStatus(models.DeliveryStatusFailed)
	require.Len(t, failed, 1)
	require.NotNil(t, failed[0].ErrorMessage)
	assert.Contains(t, *failed[0].ErrorMessage, "connection refused")
}

func TestRunOnceSpawnsSuccessorAfterSend(t *testing.T) {
	pattern := models.RecurrenceDaily
	n := dueMedication(1)
	n.IsRecurring = true
	n.RecurrencePattern = &pattern
	repo := newFakeNotificationRepo(n)
	push := &fakeAdapter{method: models.DeliveryMethodPush, result: acceptedResult("push-1")}
	sms := &fakeAdapter{method: models.DeliveryMethodSMS, result: acceptedResult("sms-1")}
	fx := newSchedulerFixture(t, repo, push, sms)

	_, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	successor := repo.saved[0]
	assert.Equal(t, n.ScheduledFor.Add(24*time.Hour), successor.ScheduledFor)
	assert.True(t, successor.IsRecurring)
	assert.Nil(t, successor.SentAt)
}

func TestRunOnceGateDeniedIsTerminal(t *testing.T) {
	n := dueMedication(1)
	n.Type = models.NotificationTypeWellness
	n.Metadata.Wellness = &models.WellnessMetadata{Interactive: true}
	repo := newFakeNotificationRepo(n)
	call := &fakeAdapter{method: models.DeliveryMethodCall, result: acceptedResult("call-1")}
	fx := newSchedulerFixture(t, repo, call)
	fx.gate.Denied[models.NotificationTypeWellness] = true

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 1, Sent: 0, Errors: 1}, stats)
	assert.Zero(t, call.calls)
	require.Contains(t, repo.terminal, uint(1))
	assert.Contains(t, repo.terminal[1], "not permitted")
}

func TestRunOnceGateErrorSkipsClaim(t *testing.T) {
	repo := newFakeNotificationRepo(dueMedication(1))
	push := &fakeAdapter{method: models.DeliveryMethodPush, result: acceptedResult("push-1")}
	fx := newSchedulerFixture(t, repo, push)
	fx.gate.Err = errors.New("subscription store unavailable")

	stats, err := fx.scheduler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 1, Sent: 0, Errors: 1}, stats)
	assert.Empty(t, repo.claimed)
	assert.Zero(t, push.calls)
}

func TestRunOnceListFailureFailsInvocation(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.listErr = errors.New("database down")
	fx := newSchedulerFixture(t, repo)

	_, err := fx.scheduler.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestChannelsForHonorsMetadataHints(t *testing.T) {
	n := dueMedication(1)
	n.Metadata.Channels = []models.DeliveryMethod{models.DeliveryMethodEmail}
	fx := newSchedulerFixture(t, newFakeNotificationRepo())

	assert.Equal(t, []models.DeliveryMethod{models.DeliveryMethodEmail}, fx.scheduler.channelsFor(n))

	n.Metadata.Channels = nil
	assert.Equal(t, defaultChannels[models.NotificationTypeMedication], fx.scheduler.channelsFor(n))
}
