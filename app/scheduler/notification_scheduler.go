// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/evercare-app/notification-service/app/services"
	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Delivery attempts accepted by a provider, per channel",
		},
		[]string{"channel"},
	)
	notificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Delivery attempts rejected or errored, per channel",
		},
		[]string{"channel"},
	)
	schedulerRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Completed scheduler passes",
		},
	)
)

// RunStats summarizes one scheduler pass
type RunStats struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Errors    int `json:"errors"`
}

// NotificationScheduler periodically selects due notifications and dispatches
// them across channels. All timestamps are UTC.
type NotificationScheduler struct {
	notificationRepo repository.ScheduledNotificationRepository
	deliveryLogRepo  repository.DeliveryLogRepository
	profileRepo      repository.UserProfileRepository
	pushSubRepo      repository.PushSubscriptionRepository
	registry         *services.ChannelRegistry
	composer         services.MessageComposer
	gate             services.PlanGate
	logger           *log.Logger
	cfg              config.SchedulerConfig
}

// NewNotificationScheduler creates a new scheduler
func NewNotificationScheduler(
	notificationRepo repository.ScheduledNotificationRepository,
	deliveryLogRepo repository.DeliveryLogRepository,
	profileRepo repository.UserProfileRepository,
	pushSubRepo repository.PushSubscriptionRepository,
	registry *services.ChannelRegistry,
	composer services.MessageComposer,
	gate services.PlanGate,
	logger *log.Logger,
	cfg config.SchedulerConfig,
) *NotificationScheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = utils.DueLookahead
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = utils.DueBatchLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = utils.DispatchConcurrency
	}
	if logger == nil {
		logger = log.Default()
	}

	return &NotificationScheduler{
		notificationRepo: notificationRepo,
		deliveryLogRepo:  deliveryLogRepo,
		profileRepo:      profileRepo,
		pushSubRepo:      pushSubRepo,
		registry:         registry,
		composer:         composer,
		gate:             gate,
		logger:           logger,
		cfg:              cfg,
	}
}

// NewSchedulerLogger builds the scheduler's prefixed logger writing to stdout
// and a size-rotated file
func NewSchedulerLogger(cfg config.LoggingConfig) *log.Logger {
	var w io.Writer = os.Stdout
	if cfg.Output == "file" || cfg.Output == "both" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "file" {
			w = rotated
		} else {
			w = io.MultiWriter(os.Stdout, rotated)
		}
	}
	return log.New(w, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *NotificationScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		s.runAndLog(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAndLog(ctx)
			}
		}
	}()

	return cancel
}

func (s *NotificationScheduler) runAndLog(ctx context.Context) {
	stats, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Printf("pass failed: %v", err)
		return
	}
	if stats.Processed > 0 {
		s.logger.Printf("pass complete: processed=%d sent=%d errors=%d", stats.Processed, stats.Sent, stats.Errors)
	}
}

// RunOnce performs a single dispatch pass. The selection query failing fails
// the whole invocation; per-item failures are contained and counted.
func (s *NotificationScheduler) RunOnce(ctx context.Context) (RunStats, error) {
	now := utils.UTCNow()

	due, err := s.notificationRepo.ListDue(ctx, now, s.cfg.Lookahead, s.cfg.BatchLimit)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to select due notifications: %w", err)
	}
	if len(due) == 0 {
		schedulerRuns.Inc()
		return RunStats{}, nil
	}

	var (
		mu    sync.Mutex
		stats RunStats
		wg    sync.WaitGroup
		sem   = make(chan struct{}, s.cfg.Concurrency)
	)

	for _, n := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(n *models.ScheduledNotification) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Printf("panic dispatching notification %d: %v", n.ID, r)
					mu.Lock()
					stats.Errors++
					mu.Unlock()
				}
			}()

			outcome := s.processOne(ctx, n, now)
			mu.Lock()
			if outcome != outcomeSkipped {
				stats.Processed++
			}
			switch outcome {
			case outcomeSent:
				stats.Sent++
			case outcomeError:
				stats.Errors++
			}
			mu.Unlock()
		}(n)
	}
	wg.Wait()

	schedulerRuns.Inc()
	return stats, nil
}

type dispatchOutcome int

const (
	outcomeSkipped dispatchOutcome = iota // claimed elsewhere, not counted
	outcomeSent
	outcomeTerminal // kept sent_at with a delivery error
	outcomeError
)

// processOne dispatches a single due notification. The claim is taken before
// any adapter call so two overlapping passes can never double-send.
func (s *NotificationScheduler) processOne(ctx context.Context, n *models.ScheduledNotification, now time.Time) dispatchOutcome {
	permitted, err := s.gate.IsTypePermitted(ctx, n.UserID, n.Type)
	if err != nil {
		s.logger.Printf("plan gate check failed for notification %d: %v", n.ID, err)
		return outcomeError
	}

	claimed, err := s.notificationRepo.Claim(ctx, n.ID, now)
	if err != nil {
		s.logger.Printf("claim failed for notification %d: %v", n.ID, err)
		return outcomeError
	}
	if !claimed {
		return outcomeSkipped
	}

	if !permitted {
		s.logger.Printf("notification %d type %s not permitted for user %d, dropping", n.ID, n.Type, n.UserID)
		if err := s.notificationRepo.MarkSentWithError(ctx, n.ID, "notification type not permitted by plan"); err != nil {
			s.logger.Printf("failed to mark notification %d terminal: %v", n.ID, err)
		}
		s.spawnSuccessor(ctx, n)
		return outcomeError
	}

	recipient, err := s.resolveRecipient(ctx, n.UserID)
	if err != nil {
		// Recipient resolution is a store read; release so a later pass retries
		s.logger.Printf("recipient resolution failed for notification %d: %v", n.ID, err)
		s.release(ctx, n.ID)
		return outcomeError
	}

	message := s.composer.Compose(composeInputFor(n, recipient), now)

	var (
		succeeded      int
		failures       []string
		retryableFails int
	)
	for _, method := range s.channelsFor(n) {
		adapter := s.registry.Get(method)
		if adapter == nil {
			s.logFailed(ctx, n, method, "channel not configured")
			failures = append(failures, fmt.Sprintf("%s: channel not configured", method))
			notificationsFailed.WithLabelValues(method.String()).Inc()
			continue
		}

		result, err := adapter.Send(ctx, services.ChannelRequest{
			Notification: n,
			Message:      message,
			Recipient:    recipient,
		})
		if err != nil {
			// Transport error, worth retrying
			s.logFailed(ctx, n, method, err.Error())
			failures = append(failures, fmt.Sprintf("%s: %v", method, err))
			retryableFails++
			notificationsFailed.WithLabelValues(method.String()).Inc()
			continue
		}
		if !result.Accepted {
			s.logFailed(ctx, n, method, result.ErrorMessage)
			failures = append(failures, fmt.Sprintf("%s: %s", method, result.ErrorMessage))
			if !result.Permanent {
				retryableFails++
			}
			notificationsFailed.WithLabelValues(method.String()).Inc()
			continue
		}

		entry := &models.DeliveryLog{
			NotificationID: n.ID,
			Method:         method,
			RecipientID:    n.UserID,
			Status:         models.DeliveryStatusSent,
			ExternalID:     result.ExternalID,
		}
		if err := s.deliveryLogRepo.Save(ctx, entry); err != nil {
			s.logger.Printf("failed to record delivery log for notification %d: %v", n.ID, err)
		}
		succeeded++
		notificationsDispatched.WithLabelValues(method.String()).Inc()
	}

	if succeeded > 0 {
		s.spawnSuccessor(ctx, n)
		return outcomeSent
	}

	if retryableFails > 0 {
		// Nothing went out but retrying can help; hand the row back
		s.release(ctx, n.ID)
		return outcomeError
	}

	// Every channel failed permanently; keep the claim and record why
	reason := strings.Join(failures, "; ")
	if reason == "" {
		reason = "no delivery channel available"
	}
	if err := s.notificationRepo.MarkSentWithError(ctx, n.ID, reason); err != nil {
		s.logger.Printf("failed to mark notification %d terminal: %v", n.ID, err)
	}
	s.spawnSuccessor(ctx, n)
	return outcomeTerminal
}

func (s *NotificationScheduler) release(ctx context.Context, id uint) {
	if err := s.notificationRepo.Release(ctx, id); err != nil {
		s.logger.Printf("failed to release claim on notification %d: %v", id, err)
	}
}

func (s *NotificationScheduler) logFailed(ctx context.Context, n *models.ScheduledNotification, method models.DeliveryMethod, reason string) {
	entry := &models.DeliveryLog{
		NotificationID: n.ID,
		Method:         method,
		RecipientID:    n.UserID,
		Status:         models.DeliveryStatusFailed,
		ErrorMessage:   utils.ToPtr(reason),
	}
	if err := s.deliveryLogRepo.Save(ctx, entry); err != nil {
		s.logger.Printf("failed to record failed delivery log for notification %d: %v", n.ID, err)
	}
}

// spawnSuccessor inserts the next occurrence of a recurring notification.
// Called after the current row reached a final state, success or terminal.
func (s *NotificationScheduler) spawnSuccessor(ctx context.Context, n *models.ScheduledNotification) {
	if !n.IsRecurring {
		return
	}
	successor, err := n.Successor()
	if err != nil {
		s.logger.Printf("failed to build successor for notification %d: %v", n.ID, err)
		return
	}
	if err := s.notificationRepo.Save(ctx, successor); err != nil {
		s.logger.Printf("failed to save successor for notification %d: %v", n.ID, err)
	}
}

// resolveRecipient gathers the user's delivery addresses
func (s *NotificationScheduler) resolveRecipient(ctx context.Context, userID uint) (services.Recipient, error) {
	recipient := services.Recipient{UserID: userID}

	profile, err := s.profileRepo.ByUserID(ctx, userID)
	if err != nil {
		return recipient, err
	}
	if profile != nil {
		recipient.Name = profile.FirstName
		recipient.GreetingStyle = profile.GreetingStyle
		recipient.Phone = profile.Phone
		recipient.Email = profile.Email
	}

	subs, err := s.pushSubRepo.ListByUser(ctx, userID)
	if err != nil {
		return recipient, err
	}
	recipient.Subscriptions = subs

	return recipient, nil
}

// defaultChannels per notification type, used when metadata carries no hints
var defaultChannels = map[models.NotificationType][]models.DeliveryMethod{
	models.NotificationTypeMedication:   {models.DeliveryMethodPush, models.DeliveryMethodSMS},
	models.NotificationTypeWellness:     {models.DeliveryMethodCall},
	models.NotificationTypeMessage:      {models.DeliveryMethodPush},
	models.NotificationTypeIncident:     {models.DeliveryMethodPush, models.DeliveryMethodSMS, models.DeliveryMethodEmail},
	models.NotificationTypeConversation: {models.DeliveryMethodCall},
}

func (s *NotificationScheduler) channelsFor(n *models.ScheduledNotification) []models.DeliveryMethod {
	if len(n.Metadata.Channels) > 0 {
		return n.Metadata.Channels
	}
	return defaultChannels[n.Type]
}

// composeInputFor maps a notification row onto the composer's input
func composeInputFor(n *models.ScheduledNotification, recipient services.Recipient) services.ComposeInput {
	return services.ComposeInputFor(n, recipient)
}
