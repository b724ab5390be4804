// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"

	"github.com/evercare-app/notification-service/config"
	"gopkg.in/gomail.v2"
)

// EmailService delivers notification emails over SMTP
type EmailService interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}

// EmailServiceImpl implements EmailService with gomail
type EmailServiceImpl struct {
	config *config.EmailConfig
	dialer *gomail.Dialer
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg *config.EmailConfig) EmailService {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailServiceImpl{
		config: cfg,
		dialer: dialer,
	}
}

// SendEmail sends one message. SMTP gives no per-message id, so acceptance is
// dial-and-send success; failures are retryable unless the address is empty.
func (s *EmailServiceImpl) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	if to == "" {
		return SendResult{ErrorMessage: "no email address on file", Permanent: true}, nil
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromEmail, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return SendResult{ErrorMessage: fmt.Sprintf("smtp send failed: %v", err)}, nil
	}

	return SendResult{Accepted: true}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	Sent       []MockEmail
	NextResult *SendResult
	NextErr    error
}

// MockEmail represents a mock email delivery
type MockEmail struct {
	To      string
	Subject string
	Body    string
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SendEmail records a mock email delivery
func (m *MockEmailService) SendEmail(ctx context.Context, to, subject, body string) (SendResult, error) {
	if m.NextErr != nil {
		return SendResult{}, m.NextErr
	}
	if m.NextResult != nil {
		return *m.NextResult, nil
	}
	m.Sent = append(m.Sent, MockEmail{To: to, Subject: subject, Body: body})
	return SendResult{Accepted: true}, nil
}
