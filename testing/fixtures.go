// Package testing provides test utilities and database setup for integration tests
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/evercare-app/notification-service/models"
	"github.com/evercare-app/notification-service/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestProfile creates an elder profile with a phone and email on file
func (tf *TestFixtures) CreateTestProfile(firstName string) (*models.UserProfile, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	profile := &models.UserProfile{
		UserID:        uint(rand.Intn(1000000) + 1),
		FirstName:     firstName,
		Phone:         utils.ToPtr(fmt.Sprintf("+1555%s", randomDigits[:7])),
		Email:         utils.ToPtr(fmt.Sprintf("%s.%s@example.com", firstName, randomDigits)),
		GreetingStyle: "warm",
	}

	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test profile: %w", err)
	}

	return profile, nil
}

// CreateTestNotification creates a pending notification due at the given time
func (tf *TestFixtures) CreateTestNotification(userID uint, notificationType models.NotificationType, scheduledFor time.Time) (*models.ScheduledNotification, error) {
	notification := &models.ScheduledNotification{
		UUID:         uuid.New(),
		UserID:       userID,
		Type:         notificationType,
		Title:        "Test reminder",
		Body:         "Time to take your blood pressure medication",
		ScheduledFor: scheduledFor,
	}

	switch notificationType {
	case models.NotificationTypeMedication:
		notification.Metadata.Medication = &models.MedicationMetadata{
			ReminderID:     uint(rand.Intn(100000) + 1),
			MedicationName: "Lisinopril",
			Dosage:         "10mg",
		}
	case models.NotificationTypeWellness:
		notification.Metadata.Wellness = &models.WellnessMetadata{
			CheckKind:   "daily",
			Interactive: true,
		}
	case models.NotificationTypeMessage:
		notification.Metadata.Message = &models.MessageMetadata{
			SenderID: uint(rand.Intn(100000) + 1),
		}
	case models.NotificationTypeIncident:
		notification.Metadata.Incident = &models.IncidentMetadata{
			IncidentID: uint(rand.Intn(100000) + 1),
			Severity:   "high",
		}
	}

	if err := tf.DB.DB.Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create test notification: %w", err)
	}

	return notification, nil
}

// CreateTestRecurringNotification creates a pending daily notification
func (tf *TestFixtures) CreateTestRecurringNotification(userID uint, scheduledFor time.Time, pattern models.RecurrencePattern, intervalDays int) (*models.ScheduledNotification, error) {
	notification := &models.ScheduledNotification{
		UUID:              uuid.New(),
		UserID:            userID,
		Type:              models.NotificationTypeMedication,
		Title:             "Test recurring reminder",
		Body:              "Time for your evening medication",
		ScheduledFor:      scheduledFor,
		IsRecurring:       true,
		RecurrencePattern: &pattern,
		RecurrenceData:    models.RecurrenceData{IntervalDays: intervalDays},
		Metadata: models.NotificationMetadata{
			Medication: &models.MedicationMetadata{ReminderID: uint(rand.Intn(100000) + 1)},
		},
	}

	if err := tf.DB.DB.Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create recurring test notification: %w", err)
	}

	return notification, nil
}

// CreateTestSubscription creates an active billing subscription on the given plan
func (tf *TestFixtures) CreateTestSubscription(userID uint, plan models.SubscriptionPlan) (*models.Subscription, error) {
	sub := &models.Subscription{
		UserID:   userID,
		Plan:     plan,
		IsActive: true,
	}

	if err := tf.DB.DB.Create(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create test subscription: %w", err)
	}

	return sub, nil
}

// CreateTestCareContact creates an alert-enabled care contact for the elder
func (tf *TestFixtures) CreateTestCareContact(elderID uint, withPhone bool) (*models.CareContact, error) {
	contact := &models.CareContact{
		ElderID:          elderID,
		Name:             "Jane Doe",
		Relationship:     "daughter",
		CanReceiveAlerts: true,
	}
	if withPhone {
		randomDigits := fmt.Sprintf("%07d", rand.Intn(9000000)+1000000)
		contact.Phone = utils.ToPtr(fmt.Sprintf("+1555%s", randomDigits))
	}

	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test care contact: %w", err)
	}

	return contact, nil
}

// CreateTestPushSubscription registers a push endpoint for the user
func (tf *TestFixtures) CreateTestPushSubscription(userID uint) (*models.PushSubscription, error) {
	sub := &models.PushSubscription{
		UserID:    userID,
		Endpoint:  fmt.Sprintf("https://push.example.com/send/%s", uuid.NewString()),
		P256dhKey: "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
		AuthKey:   "tBHItJI5svbpez7KI4CCXg",
		DeviceInfo: models.DeviceInfo{
			Platform: "web",
			Browser:  "firefox",
		},
	}

	if err := tf.DB.DB.Create(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create test push subscription: %w", err)
	}

	return sub, nil
}

// CreateSentDeliveryLog records a successful delivery for the notification
func (tf *TestFixtures) CreateSentDeliveryLog(notificationID, recipientID uint, method models.DeliveryMethod, externalID string) (*models.DeliveryLog, error) {
	entry := &models.DeliveryLog{
		NotificationID: notificationID,
		Method:         method,
		RecipientID:    recipientID,
		Status:         models.DeliveryStatusSent,
	}
	if externalID != "" {
		entry.ExternalID = &externalID
	}

	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create test delivery log: %w", err)
	}

	return entry, nil
}
