// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"fmt"

	"github.com/evercare-app/notification-service/models"
)

// Recipient carries the resolved delivery addresses for one user
type Recipient struct {
	UserID        uint
	Name          string
	GreetingStyle string
	Phone         *string
	Email         *string
	Subscriptions []*models.PushSubscription
}

// ChannelRequest is one delivery attempt handed to an adapter
type ChannelRequest struct {
	Notification *models.ScheduledNotification
	Message      ComposedMessage
	Recipient    Recipient
}

// ChannelAdapter delivers a notification over one channel. Adapters report
// provider rejections through the SendResult; the returned error is reserved
// for transport failures.
type ChannelAdapter interface {
	Method() models.DeliveryMethod
	Send(ctx context.Context, req ChannelRequest) (SendResult, error)
}

// ChannelRegistry resolves adapters by delivery method
type ChannelRegistry struct {
	adapters map[models.DeliveryMethod]ChannelAdapter
}

// NewChannelRegistry creates a registry from the given adapters
func NewChannelRegistry(adapters ...ChannelAdapter) *ChannelRegistry {
	m := make(map[models.DeliveryMethod]ChannelAdapter, len(adapters))
	for _, a := range adapters {
		m[a.Method()] = a
	}
	return &ChannelRegistry{adapters: m}
}

// Get returns the adapter for a method, nil when the channel is not wired
func (r *ChannelRegistry) Get(method models.DeliveryMethod) ChannelAdapter {
	return r.adapters[method]
}

// Methods lists the wired delivery methods
func (r *ChannelRegistry) Methods() []models.DeliveryMethod {
	out := make([]models.DeliveryMethod, 0, len(r.adapters))
	for m := range r.adapters {
		out = append(out, m)
	}
	return out
}

// PushAdapter delivers over web push. Every registered device endpoint gets
// the message; the attempt is accepted if any endpoint accepted it.
type PushAdapter struct {
	push PushService
}

// NewPushAdapter creates a push channel adapter
func NewPushAdapter(push PushService) ChannelAdapter {
	return &PushAdapter{push: push}
}

// Method returns the delivery method this adapter serves
func (a *PushAdapter) Method() models.DeliveryMethod {
	return models.DeliveryMethodPush
}

// Send fans the payload out to all registered endpoints
func (a *PushAdapter) Send(ctx context.Context, req ChannelRequest) (SendResult, error) {
	if len(req.Recipient.Subscriptions) == 0 {
		return SendResult{ErrorMessage: "no push subscription registered", Permanent: true}, nil
	}

	payload := PushPayload{
		Title: req.Notification.Title,
		Body:  req.Message.Text,
		Tag:   req.Notification.Type.String(),
		Data: map[string]any{
			"notification_uuid": req.Notification.UUID.String(),
		},
	}

	var last SendResult
	for _, sub := range req.Recipient.Subscriptions {
		result, err := a.push.SendPush(ctx, sub, payload)
		if err != nil {
			return SendResult{}, err
		}
		if result.Accepted {
			return result, nil
		}
		last = result
	}
	return last, nil
}

// SMSAdapter delivers over SMS
type SMSAdapter struct {
	sms SMSService
}

// NewSMSAdapter creates an SMS channel adapter
func NewSMSAdapter(sms SMSService) ChannelAdapter {
	return &SMSAdapter{sms: sms}
}

// Method returns the delivery method this adapter serves
func (a *SMSAdapter) Method() models.DeliveryMethod {
	return models.DeliveryMethodSMS
}

// Send delivers the composed text to the recipient's phone
func (a *SMSAdapter) Send(ctx context.Context, req ChannelRequest) (SendResult, error) {
	if req.Recipient.Phone == nil || *req.Recipient.Phone == "" {
		return SendResult{ErrorMessage: "no phone number on file", Permanent: true}, nil
	}
	return a.sms.SendSMS(ctx, *req.Recipient.Phone, req.Message.Text)
}

// EmailAdapter delivers over email
type EmailAdapter struct {
	email EmailService
}

// NewEmailAdapter creates an email channel adapter
func NewEmailAdapter(email EmailService) ChannelAdapter {
	return &EmailAdapter{email: email}
}

// Method returns the delivery method this adapter serves
func (a *EmailAdapter) Method() models.DeliveryMethod {
	return models.DeliveryMethodEmail
}

// Send delivers the composed text to the recipient's email address
func (a *EmailAdapter) Send(ctx context.Context, req ChannelRequest) (SendResult, error) {
	if req.Recipient.Email == nil || *req.Recipient.Email == "" {
		return SendResult{ErrorMessage: "no email address on file", Permanent: true}, nil
	}
	return a.email.SendEmail(ctx, *req.Recipient.Email, req.Notification.Title, req.Message.Text)
}

// CallAdapter delivers over an outbound voice call. The provider fetches the
// spoken script from the public voice-script endpoint; the returned call sid
// goes into the delivery log so the digit webhook can correlate back.
type CallAdapter struct {
	sms            SMSService
	webhookBaseURL string
}

// NewCallAdapter creates a voice call channel adapter
func NewCallAdapter(sms SMSService, webhookBaseURL string) ChannelAdapter {
	return &CallAdapter{sms: sms, webhookBaseURL: webhookBaseURL}
}

// Method returns the delivery method this adapter serves
func (a *CallAdapter) Method() models.DeliveryMethod {
	return models.DeliveryMethodCall
}

// Send places the call
func (a *CallAdapter) Send(ctx context.Context, req ChannelRequest) (SendResult, error) {
	if req.Recipient.Phone == nil || *req.Recipient.Phone == "" {
		return SendResult{ErrorMessage: "no phone number on file", Permanent: true}, nil
	}
	scriptURL := fmt.Sprintf("%s/api/v1/webhooks/voice-script/%s", a.webhookBaseURL, req.Notification.UUID.String())
	return a.sms.PlaceCall(ctx, *req.Recipient.Phone, scriptURL)
}
