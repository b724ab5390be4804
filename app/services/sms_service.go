// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evercare-app/notification-service/config"
	"github.com/evercare-app/notification-service/utils"
)

// SendResult reports one provider attempt. Accepted carries the provider id;
// a rejected attempt carries the message and whether retrying can ever help.
type SendResult struct {
	Accepted     bool
	ExternalID   *string
	ErrorMessage string
	Permanent    bool
}

// PermanentStatus classifies a provider HTTP error status. 4xx is a permanent
// rejection except for the configured retryable overrides; 5xx always retries.
func PermanentStatus(code int, retryableOverrides []int) bool {
	if code >= 500 {
		return false
	}
	for _, override := range retryableOverrides {
		if code == override {
			return false
		}
	}
	return true
}

// SMSService handles SMS and outbound voice call operations
type SMSService interface {
	SendSMS(ctx context.Context, recipient, message string) (SendResult, error)
	PlaceCall(ctx context.Context, recipient, scriptURL string) (SendResult, error)
}

// SMSServiceImpl implements SMSService
type SMSServiceImpl struct {
	config *config.SMSConfig
	client *http.Client
}

// SMSRequest represents the request payload for the SMS API
type SMSRequest struct {
	SrcNum     string `json:"srcNum"`
	Recipient  string `json:"recipient"`
	Body       string `json:"body"`
	RetryCount int    `json:"retryCount"`
}

// CallRequest represents the request payload for the voice call API
type CallRequest struct {
	SrcNum    string `json:"srcNum"`
	Recipient string `json:"recipient"`
	ScriptURL string `json:"scriptUrl"`
}

// ProviderResponse represents the provider result for SMS and call requests
type ProviderResponse struct {
	MessageID  string `json:"messageId"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
}

// NewSMSService creates a new SMS service instance
func NewSMSService(cfg *config.SMSConfig) SMSService {
	return &SMSServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NormalizePhone converts a phone number to E.164. Strips separators, keeps a
// leading plus, prepends the default region code to bare local numbers.
// Returns an error when the remainder is not 7 to 15 digits.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	hasPlus := strings.HasPrefix(cleaned, "+")
	digits := strings.TrimPrefix(cleaned, "+")
	if digits == "" {
		return "", fmt.Errorf("empty phone number")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number contains non-digit characters: %s", raw)
		}
	}

	if !hasPlus {
		// 00 international prefix, otherwise assume a local number
		if strings.HasPrefix(digits, "00") {
			digits = digits[2:]
		} else {
			digits = strings.TrimPrefix(defaultRegion, "+") + strings.TrimPrefix(digits, "0")
		}
	}

	if len(digits) < 7 || len(digits) > 15 {
		return "", fmt.Errorf("phone number has invalid length: %s", raw)
	}

	return "+" + digits, nil
}

// SendSMS sends a text message, normalizing the recipient first. An
// unnormalizable number is a permanent failure before any provider call.
func (s *SMSServiceImpl) SendSMS(ctx context.Context, recipient, message string) (SendResult, error) {
	to, err := NormalizePhone(recipient, s.config.DefaultRegion)
	if err != nil {
		return SendResult{ErrorMessage: err.Error(), Permanent: true}, nil
	}

	payload := SMSRequest{
		SrcNum:     s.config.SourceNumber,
		Recipient:  to,
		Body:       message,
		RetryCount: s.config.RetryCount,
	}
	return s.post(ctx, "/api/v1/sms/send", payload)
}

// PlaceCall starts an outbound voice call that fetches its script from the
// given URL. The returned provider id correlates the later digit webhook.
func (s *SMSServiceImpl) PlaceCall(ctx context.Context, recipient, scriptURL string) (SendResult, error) {
	to, err := NormalizePhone(recipient, s.config.DefaultRegion)
	if err != nil {
		return SendResult{ErrorMessage: err.Error(), Permanent: true}, nil
	}

	payload := CallRequest{
		SrcNum:    s.config.SourceNumber,
		Recipient: to,
		ScriptURL: scriptURL,
	}
	return s.post(ctx, "/api/v1/calls/place", payload)
}

// post sends a provider request and classifies the outcome via
// PermanentStatus; only transport errors surface as err.
func (s *SMSServiceImpl) post(ctx context.Context, path string, payload any) (SendResult, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to marshal provider request: %w", err)
	}

	url := fmt.Sprintf("https://%s%s", s.config.ProviderDomain, path)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to send provider request: %w", err)
	}
	defer resp.Body.Close()

	var result ProviderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SendResult{}, fmt.Errorf("failed to decode provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return SendResult{
			ErrorMessage: fmt.Sprintf("provider rejected request: %s (%d)", result.Status, resp.StatusCode),
			Permanent:    PermanentStatus(resp.StatusCode, s.config.RetryableStatusCodes),
		}, nil
	}

	return SendResult{
		Accepted:   true,
		ExternalID: utils.ToPtr(result.MessageID),
	}, nil
}

// MockSMSService implements SMSService for testing
type MockSMSService struct {
	SentMessages []MockSMSMessage
	PlacedCalls  []MockCall
	NextResult   *SendResult
	NextErr      error
	seq          int
}

// MockSMSMessage represents a mock SMS message
type MockSMSMessage struct {
	Recipient string
	Message   string
	SentAt    time.Time
}

// MockCall represents a mock outbound call
type MockCall struct {
	Recipient string
	ScriptURL string
	SID       string
	PlacedAt  time.Time
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

// SendSMS records a mock SMS message
func (m *MockSMSService) SendSMS(ctx context.Context, recipient, message string) (SendResult, error) {
	if m.NextErr != nil {
		return SendResult{}, m.NextErr
	}
	if m.NextResult != nil {
		return *m.NextResult, nil
	}
	m.SentMessages = append(m.SentMessages, MockSMSMessage{
		Recipient: recipient,
		Message:   message,
		SentAt:    utils.UTCNow(),
	})
	m.seq++
	return SendResult{Accepted: true, ExternalID: utils.ToPtr(fmt.Sprintf("sms-%d", m.seq))}, nil
}

// PlaceCall records a mock outbound call
func (m *MockSMSService) PlaceCall(ctx context.Context, recipient, scriptURL string) (SendResult, error) {
	if m.NextErr != nil {
		return SendResult{}, m.NextErr
	}
	if m.NextResult != nil {
		return *m.NextResult, nil
	}
	m.seq++
	sid := fmt.Sprintf("call-%d", m.seq)
	m.PlacedCalls = append(m.PlacedCalls, MockCall{
		Recipient: recipient,
		ScriptURL: scriptURL,
		SID:       sid,
		PlacedAt:  utils.UTCNow(),
	})
	return SendResult{Accepted: true, ExternalID: utils.ToPtr(sid)}, nil
}
