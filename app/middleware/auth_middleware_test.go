package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookTestApp(token string) (*fiber.App, *int) {
	app := fiber.New()
	reached := 0
	app.Use(NewWebhookAuthMiddleware(token).Authenticate())
	app.Post("/voice-response", func(c fiber.Ctx) error {
		reached++
		c.Set(fiber.HeaderContentType, "application/xml")
		return c.SendString(`<?xml version="1.0" encoding="UTF-8"?><Response><Say>ok</Say></Response>`)
	})
	return app, &reached
}

func TestWebhookAuthValidTokenHeader(t *testing.T) {
	app, reached := newWebhookTestApp("secret")

	req := httptest.NewRequest("POST", "/voice-response", nil)
	req.Header.Set("X-Webhook-Token", "secret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, *reached)
}

func TestWebhookAuthValidTokenQuery(t *testing.T) {
	app, reached := newWebhookTestApp("secret")

	req := httptest.NewRequest("POST", "/voice-response?token=secret", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, *reached)
}

func TestWebhookAuthRejectionAnswersWithMarkup(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "not-the-secret"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, reached := newWebhookTestApp("secret")

			req := httptest.NewRequest("POST", "/voice-response", nil)
			if tc.token != "" {
				req.Header.Set("X-Webhook-Token", tc.token)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			// The provider replays any non-200 at the elder, so rejections
			// still answer with spoken markup
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/xml", resp.Header.Get(fiber.HeaderContentType))

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "<Response>")
			assert.Contains(t, string(body), "Goodbye")
			assert.Equal(t, 0, *reached)
		})
	}
}

func TestWebhookAuthDisabledWhenNoTokenConfigured(t *testing.T) {
	app, reached := newWebhookTestApp("")

	resp, err := app.Test(httptest.NewRequest("POST", "/voice-response", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, *reached)
}
