// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
)

// PushPayload is the rendered push message
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// PushService delivers web push messages to registered endpoints
type PushService interface {
	SendPush(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (SendResult, error)
}

// PushServiceImpl implements PushService against the push gateway REST API
type PushServiceImpl struct {
	config *config.PushConfig
	client *http.Client
}

// pushRequest is the gateway wire format: the stored subscription plus the
// rendered payload and delivery options
type pushRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	Payload PushPayload `json:"payload"`
	TTL     int         `json:"ttl"`
	Subject string      `json:"subject"`
}

// pushResponse is the gateway result
type pushResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// NewPushService creates a new push service instance
func NewPushService(cfg *config.PushConfig) PushService {
	return &PushServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendPush posts one message to the push gateway for a single subscription
func (s *PushServiceImpl) SendPush(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (SendResult, error) {
	if sub == nil || sub.Endpoint == "" {
		return SendResult{ErrorMessage: "no push subscription registered", Permanent: true}, nil
	}

	reqPayload := pushRequest{
		Endpoint: sub.Endpoint,
		Payload:  payload,
		TTL:      s.config.TTL,
		Subject:  s.config.Subject,
	}
	reqPayload.Keys.P256dh = sub.P256dhKey
	reqPayload.Keys.Auth = sub.AuthKey

	requestBody, err := json.Marshal(reqPayload)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to marshal push request: %w", err)
	}

	url := fmt.Sprintf("https://%s/api/v1/push/send", s.config.ProviderDomain)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	var result pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SendResult{}, fmt.Errorf("failed to decode push response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return SendResult{
			ErrorMessage: fmt.Sprintf("push gateway rejected request: %s (%d)", result.Status, resp.StatusCode),
			Permanent:    PermanentStatus(resp.StatusCode, s.config.RetryableStatusCodes),
		}, nil
	}

	return SendResult{
		Accepted:   true,
		ExternalID: utils.ToPtr(result.MessageID),
	}, nil
}

// MockPushService implements PushService for testing
type MockPushService struct {
	Sent       []MockPushMessage
	NextResult *SendResult
	NextErr    error
	seq        int
}

// MockPushMessage represents a mock push delivery
type MockPushMessage struct {
	Endpoint string
	Payload  PushPayload
}

// NewMockPushService creates a new mock push service
func NewMockPushService() *MockPushService {
	return &MockPushService{}
}

// SendPush records a mock push delivery
func (m *MockPushService) SendPush(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (SendResult, error) {
	if m.NextErr != nil {
		return SendResult{}, m.NextErr
	}
	if m.NextResult != nil {
		return *m.NextResult, nil
	}
	if sub == nil || sub.Endpoint == "" {
		return SendResult{ErrorMessage: "no push subscription registered", Permanent: true}, nil
	}
	m.Sent = append(m.Sent, MockPushMessage{Endpoint: sub.Endpoint, Payload: payload})
	m.seq++
	return SendResult{Accepted: true, ExternalID: utils.ToPtr(fmt.Sprintf("push-%d", m.seq))}, nil
}
