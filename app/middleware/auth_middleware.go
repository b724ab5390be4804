// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"

	"github.com/evercare-app/notification-service/app/services"
	"github.com/gofiber/fiber/v3"
)

// WebhookAuthMiddleware validates the shared token the voice and SMS provider
// attaches to callback requests
type WebhookAuthMiddleware struct {
	token string
}

// NewWebhookAuthMiddleware creates a new webhook authentication middleware.
// An empty token disables the check, which is only acceptable for local runs.
func NewWebhookAuthMiddleware(token string) *WebhookAuthMiddleware {
	return &WebhookAuthMiddleware{token: token}
}

// Authenticate is the middleware function that validates the provider token.
// Failures still answer 200 with spoken markup: the guarded routes are voice
// callbacks, and anything other than markup gets replayed at the elder as a
// provider failure message.
func (m *WebhookAuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.token == "" {
			return c.Next()
		}

		// Providers send the token either as a header or a query parameter
		presented := c.Get("X-Webhook-Token")
		if presented == "" {
			presented = c.Query("token")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(m.token)) != 1 {
			c.Set(fiber.HeaderContentType, "application/xml")
			return c.Status(fiber.StatusOK).
				SendString(services.VoiceReply("Thank you for calling. Goodbye."))
		}

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}
