// Package dto
package dto

import "time"

// LogDeliveryRequest reports client-side delivery receipts for a notification
type LogDeliveryRequest struct {
	NotificationID uint       `json:"notification_id" validate:"required"`
	Method         string     `json:"method" validate:"required,oneof=push sms email call"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty" validate:"omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty" validate:"omitempty"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty" validate:"omitempty"`
}

// SubscribePushRequest registers or refreshes a web push endpoint
type SubscribePushRequest struct {
	UserID     uint              `json:"user_id" validate:"required"`
	Endpoint   string            `json:"endpoint" validate:"required,url,max=500"`
	P256dhKey  string            `json:"p256dh_key" validate:"required,max=255"`
	AuthKey    string            `json:"auth_key" validate:"required,max=255"`
	DeviceInfo map[string]string `json:"device_info,omitempty" validate:"omitempty"`
}

// SubscribePushResponse confirms the registration
type SubscribePushResponse struct {
	Message        string `json:"message"`
	SubscriptionID uint   `json:"subscription_id"`
}

// MedicationActionRequest records the outcome of a medication reminder
type MedicationActionRequest struct {
	UserID     uint       `json:"user_id" validate:"required"`
	ReminderID uint       `json:"reminder_id" validate:"required"`
	Action     string     `json:"action" validate:"required,oneof=taken snooze"`
	ActionAt   *time.Time `json:"action_at,omitempty" validate:"omitempty"`
}

// MedicationActionResponse reports what the action produced
type MedicationActionResponse struct {
	Message    string     `json:"message"`
	SnoozedFor *time.Time `json:"snoozed_for,omitempty"`
}

// ProcessResponse summarizes one scheduler pass
type ProcessResponse struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Errors    int `json:"errors"`
}

// VoiceResponseRequest is the form-encoded digit callback from the call provider
type VoiceResponseRequest struct {
	CallSid string `form:"CallSid" json:"CallSid"`
	Digits  string `form:"Digits" json:"Digits"`
	From    string `form:"From" json:"From"`
	To      string `form:"To" json:"To"`
}
