// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"time"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/app/services"
	businessflow "github.com/evercare-app/notification-service/business_flow"
	"github.com/evercare-app/notification-service/repository"
	"github.com/evercare-app/notification-service/utils"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlerInterface defines the contract for voice provider webhooks
type WebhookHandlerInterface interface {
	VoiceResponse(c fiber.Ctx) error
	VoiceScript(c fiber.Ctx) error
}

// WebhookHandler handles callbacks from the voice call provider. Every branch
// answers 200 with spoken markup; an HTTP error here gets replayed at the
// elder as a provider failure message.
type WebhookHandler struct {
	responseFlow     businessflow.ResponseFlow
	notificationRepo repository.ScheduledNotificationRepository
	profileRepo      repository.UserProfileRepository
	composer         services.MessageComposer
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	responseFlow businessflow.ResponseFlow,
	notificationRepo repository.ScheduledNotificationRepository,
	profileRepo repository.UserProfileRepository,
	composer services.MessageComposer,
) *WebhookHandler {
	return &WebhookHandler{
		responseFlow:     responseFlow,
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
		composer:         composer,
	}
}

// VoiceResponse receives the digit pressed during an interactive call
func (h *WebhookHandler) VoiceResponse(c fiber.Ctx) error {
	var req dto.VoiceResponseRequest
	if err := c.Bind().Form(&req); err != nil {
		return h.sendVoiceMarkup(c, services.VoiceReply("Thank you for your response. Goodbye."))
	}

	markup := h.responseFlow.HandleVoiceResponse(h.createRequestContext(c, "/api/v1/webhooks/voice-response"), req)
	return h.sendVoiceMarkup(c, markup)
}

// VoiceScript serves the spoken script the provider reads when a placed call
// is answered
func (h *WebhookHandler) VoiceScript(c fiber.Ctx) error {
	ctx := h.createRequestContext(c, "/api/v1/webhooks/voice-script")

	notification, err := h.notificationRepo.ByUUID(ctx, c.Params("uuid"))
	if err != nil || notification == nil {
		return h.sendVoiceMarkup(c, services.VoiceReply("Hello. We have no message for you right now. Goodbye."))
	}

	recipient := services.Recipient{Name: "there"}
	if profile, err := h.profileRepo.ByUserID(ctx, notification.UserID); err == nil && profile != nil {
		if profile.FirstName != "" {
			recipient.Name = profile.FirstName
		}
		recipient.GreetingStyle = profile.GreetingStyle
	}

	msg := h.composer.Compose(services.ComposeInputFor(notification, recipient), utils.UTCNow())
	if msg.VoicePrompt != "" {
		return h.sendVoiceMarkup(c, msg.VoicePrompt)
	}
	return h.sendVoiceMarkup(c, services.VoiceReply(msg.Text))
}

func (h *WebhookHandler) sendVoiceMarkup(c fiber.Ctx, markup string) error {
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.Status(fiber.StatusOK).SendString(markup)
}

func (h *WebhookHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	_ = cancel

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)

	return ctx
}
