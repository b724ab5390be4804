// Package businessflow contains the core business logic and use cases for notification delivery workflows
package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/app/services"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var escalationsSent = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "escalations_sent_total",
		Help: "Assistance escalation messages delivered to care contacts",
	},
)

// Spoken replies for the voice webhook branches
const (
	replyPositive     = "Great to hear you are doing well. Take care, goodbye."
	replyAssistance   = "I understand you need assistance. Your family contacts are being notified right away."
	replyUnrecognized = "Sorry, I did not understand that response. Take care, goodbye."
	replyGeneric      = "Thank you for your response. Goodbye."
)

// Voice response codes stored on the delivery log
const (
	ResponseOK              = "ok"
	ResponseNeedsAssistance = "needs-assistance"
	ResponseUnrecognized    = "unrecognized"
)

const escalationTimeout = 30 * time.Second

// ResponseFlow handles digit callbacks from interactive voice calls
type ResponseFlow interface {
	// HandleVoiceResponse always returns well-formed voice markup, whatever
	// happened internally. The provider replays errors at the elder otherwise.
	HandleVoiceResponse(ctx context.Context, req dto.VoiceResponseRequest) string
	// EscalateNeedsAssistance notifies alert contacts by SMS. Returns the
	// number of messages sent.
	EscalateNeedsAssistance(ctx context.Context, notificationID uint) (int, error)
}

// ResponseFlowImpl implements ResponseFlow
type ResponseFlowImpl struct {
	deliveryLogRepo  repository.DeliveryLogRepository
	notificationRepo repository.ScheduledNotificationRepository
	careContactRepo  repository.CareContactRepository
	profileRepo      repository.UserProfileRepository
	smsService       services.SMSService
	logger           *log.Logger

	// escalate is indirected so the webhook can fan out without blocking the
	// reply; tests override it or call EscalateNeedsAssistance directly
	escalate func(notificationID uint)
}

// NewResponseFlow creates a new voice response flow
func NewResponseFlow(
	deliveryLogRepo repository.DeliveryLogRepository,
	notificationRepo repository.ScheduledNotificationRepository,
	careContactRepo repository.CareContactRepository,
	profileRepo repository.UserProfileRepository,
	smsService services.SMSService,
	logger *log.Logger,
) ResponseFlow {
	f := &ResponseFlowImpl{
		deliveryLogRepo:  deliveryLogRepo,
		notificationRepo: notificationRepo,
		careContactRepo:  careContactRepo,
		profileRepo:      profileRepo,
		smsService:       smsService,
		logger:           logger,
	}
	f.escalate = func(notificationID uint) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), escalationTimeout)
			defer cancel()
			if _, err := f.EscalateNeedsAssistance(ctx, notificationID); err != nil {
				f.logger.Printf("escalation for notification %d failed: %v", notificationID, err)
			}
		}()
	}
	return f
}

// HandleVoiceResponse correlates the call sid to a delivery log entry and
// records the pressed digit. A correlation miss acknowledges and writes
// nothing; digit 2 acknowledges first and escalates out-of-band.
func (f *ResponseFlowImpl) HandleVoiceResponse(ctx context.Context, req dto.VoiceResponseRequest) string {
	if req.CallSid == "" {
		return services.VoiceReply(replyGeneric)
	}

	entry, err := f.deliveryLogRepo.ByExternalID(ctx, models.DeliveryMethodCall, req.CallSid)
	if err != nil {
		f.logger.Printf("voice response correlation lookup failed for sid %s: %v", req.CallSid, err)
		return services.VoiceReply(replyGeneric)
	}
	if entry == nil {
		// Stale or foreign callback; acknowledge and move on
		return services.VoiceReply(replyGeneric)
	}

	code, reply := classifyDigits(req.Digits)
	if err := f.deliveryLogRepo.AttachResponse(ctx, entry.ID, code, utils.UTCNow()); err != nil {
		f.logger.Printf("failed to record voice response for log %d: %v", entry.ID, err)
		return services.VoiceReply(replyGeneric)
	}

	if code == ResponseNeedsAssistance {
		f.escalate(entry.NotificationID)
	}

	return services.VoiceReply(reply)
}

func classifyDigits(digits string) (code, reply string) {
	switch digits {
	case "1":
		return ResponseOK, replyPositive
	case "2":
		return ResponseNeedsAssistance, replyAssistance
	default:
		return ResponseUnrecognized, replyUnrecognized
	}
}

// EscalateNeedsAssistance sends one SMS per alert contact that has a phone
// number. Contacts without phones are skipped; no contacts at all is logged
// but not an error.
func (f *ResponseFlowImpl) EscalateNeedsAssistance(ctx context.Context, notificationID uint) (int, error) {
	notification, err := f.notificationRepo.ByID(ctx, notificationID)
	if err != nil {
		return 0, err
	}
	if notification == nil {
		return 0, NewBusinessErrorf("NOTIFICATION_NOT_FOUND", "notification %d not found", ErrNotificationNotFound, notificationID)
	}

	elderName := "your family member"
	if profile, err := f.profileRepo.ByUserID(ctx, notification.UserID); err != nil {
		f.logger.Printf("profile lookup failed for user %d: %v", notification.UserID, err)
	} else if profile != nil && profile.FirstName != "" {
		elderName = profile.FirstName
	}

	contacts, err := f.careContactRepo.ListAlertContacts(ctx, notification.UserID)
	if err != nil {
		return 0, err
	}
	if len(contacts) == 0 {
		f.logger.Printf("no alert contacts configured for user %d, assistance request not forwarded", notification.UserID)
		return 0, nil
	}

	message := elderName + " pressed the assistance button during a wellness call. Please check in with them as soon as you can."

	sent := 0
	for _, contact := range contacts {
		if !contact.HasPhone() {
			f.logger.Printf("alert contact %d for user %d has no phone, skipping", contact.ID, notification.UserID)
			continue
		}
		result, err := f.smsService.SendSMS(ctx, *contact.Phone, message)
		if err != nil {
			f.logger.Printf("escalation SMS to contact %d failed: %v", contact.ID, err)
			continue
		}
		if !result.Accepted {
			f.logger.Printf("escalation SMS to contact %d rejected: %s", contact.ID, result.ErrorMessage)
			continue
		}
		sent++
		escalationsSent.Inc()
	}

	return sent, nil
}
