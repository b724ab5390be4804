// Package businessflow contains the core business logic and use cases for notification delivery workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Notification errors
	ErrNotificationNotFound   = errors.New("notification not found")
	ErrNotificationIDRequired = errors.New("notification ID is required")
	ErrNotificationCancelled  = errors.New("notification is cancelled")
	ErrTypeNotPermitted       = errors.New("notification type not permitted by plan")

	// Push subscription errors
	ErrEndpointRequired = errors.New("push endpoint is required")
	ErrKeysRequired     = errors.New("push subscription keys are required")

	// Medication action errors
	ErrReminderIDRequired = errors.New("reminder ID is required")
	ErrUnknownAction      = errors.New("unknown medication action")

	// Delivery receipt errors
	ErrInvalidDeliveryMethod = errors.New("invalid delivery method")
	ErrDeliveryLogNotFound   = errors.New("delivery log entry not found")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsNotificationNotFound(err error) bool {
	return errors.Is(err, ErrNotificationNotFound)
}

func IsNotificationIDRequired(err error) bool {
	return errors.Is(err, ErrNotificationIDRequired)
}

func IsNotificationCancelled(err error) bool {
	return errors.Is(err, ErrNotificationCancelled)
}

func IsTypeNotPermitted(err error) bool {
	return errors.Is(err, ErrTypeNotPermitted)
}

func IsEndpointRequired(err error) bool {
	return errors.Is(err, ErrEndpointRequired)
}

func IsKeysRequired(err error) bool {
	return errors.Is(err, ErrKeysRequired)
}

func IsReminderIDRequired(err error) bool {
	return errors.Is(err, ErrReminderIDRequired)
}

func IsUnknownAction(err error) bool {
	return errors.Is(err, ErrUnknownAction)
}

func IsInvalidDeliveryMethod(err error) bool {
	return errors.Is(err, ErrInvalidDeliveryMethod)
}

func IsDeliveryLogNotFound(err error) bool {
	return errors.Is(err, ErrDeliveryLogNotFound)
}
