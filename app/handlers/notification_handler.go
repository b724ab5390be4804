// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/evercare-app/notification-service/app/dto"
	"github.com/evercare-app/notification-service/app/scheduler"
	businessflow "github.com/evercare-app/notification-service/business_flow"
	"github.com/evercare-app/notification-service/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// SchedulerTrigger is the slice of the scheduler the process endpoint needs
type SchedulerTrigger interface {
	RunOnce(ctx context.Context) (scheduler.RunStats, error)
}

// NotificationHandlerInterface defines the contract for notification handlers
type NotificationHandlerInterface interface {
	LogDelivery(c fiber.Ctx) error
	SubscribePush(c fiber.Ctx) error
	MedicationAction(c fiber.Ctx) error
	Process(c fiber.Ctx) error
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	deliveryFlow businessflow.DeliveryFlow
	trigger      SchedulerTrigger
	validator    *validator.Validate
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(deliveryFlow businessflow.DeliveryFlow, trigger SchedulerTrigger) *NotificationHandler {
	return &NotificationHandler{
		deliveryFlow: deliveryFlow,
		trigger:      trigger,
		validator:    validator.New(),
	}
}

func (h *NotificationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *NotificationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// LogDelivery records client-reported delivery receipts
func (h *NotificationHandler) LogDelivery(c fiber.Ctx) error {
	var req dto.LogDeliveryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	if err := h.deliveryFlow.LogDeliveryReceipt(h.createRequestContext(c, "/api/v1/notifications/log-delivery"), req); err != nil {
		if businessflow.IsNotificationIDRequired(err) || businessflow.IsInvalidDeliveryMethod(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_REQUEST", nil)
		}
		if businessflow.IsDeliveryLogNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Delivery log entry not found", "DELIVERY_LOG_NOT_FOUND", nil)
		}

		log.Println("Delivery receipt logging failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to log delivery receipt", "LOG_DELIVERY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Delivery receipt recorded", nil)
}

// SubscribePush registers or refreshes a web push endpoint
func (h *NotificationHandler) SubscribePush(c fiber.Ctx) error {
	var req dto.SubscribePushRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.deliveryFlow.SubscribePush(h.createRequestContext(c, "/api/v1/notifications/subscribe"), req)
	if err != nil {
		if businessflow.IsEndpointRequired(err) || businessflow.IsKeysRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_REQUEST", nil)
		}

		log.Println("Push subscription failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to register push subscription", "SUBSCRIBE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// MedicationAction records a taken or snoozed medication reminder
func (h *NotificationHandler) MedicationAction(c fiber.Ctx) error {
	var req dto.MedicationActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.deliveryFlow.MedicationAction(h.createRequestContext(c, "/api/v1/notifications/medication-action"), req)
	if err != nil {
		if businessflow.IsReminderIDRequired(err) || businessflow.IsUnknownAction(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_REQUEST", nil)
		}

		log.Println("Medication action failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record medication action", "MEDICATION_ACTION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// Process triggers one scheduler pass and reports its stats
func (h *NotificationHandler) Process(c fiber.Ctx) error {
	stats, err := h.trigger.RunOnce(h.createRequestContextWithTimeout(c, "/api/v1/notifications/process", 5*time.Minute))
	if err != nil {
		log.Println("Notification processing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Notification processing failed", "PROCESS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notifications processed", dto.ProcessResponse{
		Processed: stats.Processed,
		Sent:      stats.Sent,
		Errors:    stats.Errors,
	})
}

func (h *NotificationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *NotificationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	_ = cancel

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)

	return ctx
}
