package models

import (
	"testing"
	"time"

	"github.com/evercare-app/notification-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recurringNotification(pattern RecurrencePattern, intervalDays int) *ScheduledNotification {
	return &ScheduledNotification{
		UserID:            42,
		Type:              NotificationTypeMedication,
		Title:             "Evening medication",
		Body:              "Time for your evening medication",
		ScheduledFor:      time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC),
		IsRecurring:       true,
		RecurrencePattern: &pattern,
		RecurrenceData:    RecurrenceData{IntervalDays: intervalDays},
	}
}

func TestNextOccurrenceDaily(t *testing.T) {
	n := recurringNotification(RecurrenceDaily, 0)

	next, err := n.NextOccurrence()
	require.NoError(t, err)
	assert.Equal(t, n.ScheduledFor.Add(24*time.Hour), next)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	n := recurringNotification(RecurrenceWeekly, 0)

	next, err := n.NextOccurrence()
	require.NoError(t, err)
	assert.Equal(t, n.ScheduledFor.Add(7*24*time.Hour), next)
}

func TestNextOccurrenceCustomInterval(t *testing.T) {
	n := recurringNotification(RecurrenceCustom, 3)

	next, err := n.NextOccurrence()
	require.NoError(t, err)
	assert.Equal(t, n.ScheduledFor.Add(72*time.Hour), next)
}

func TestNextOccurrenceCustomRequiresInterval(t *testing.T) {
	n := recurringNotification(RecurrenceCustom, 0)

	_, err := n.NextOccurrence()
	assert.Error(t, err)
}

func TestNextOccurrenceWithoutPattern(t *testing.T) {
	n := &ScheduledNotification{ScheduledFor: time.Now()}

	_, err := n.NextOccurrence()
	assert.Error(t, err)
}

func TestSuccessorCarriesConfiguration(t *testing.T) {
	n := recurringNotification(RecurrenceDaily, 0)
	n.Metadata.Medication = &MedicationMetadata{ReminderID: 7}

	successor, err := n.Successor()
	require.NoError(t, err)

	assert.Equal(t, n.UserID, successor.UserID)
	assert.Equal(t, n.Type, successor.Type)
	assert.Equal(t, n.Title, successor.Title)
	assert.Equal(t, n.ScheduledFor.Add(24*time.Hour), successor.ScheduledFor)
	assert.True(t, successor.IsRecurring)
	assert.Equal(t, n.Metadata, successor.Metadata)
	assert.Nil(t, successor.SentAt)
	assert.Zero(t, successor.ID)
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lookahead := 5 * time.Minute

	due := &ScheduledNotification{ScheduledFor: now.Add(3 * time.Minute)}
	assert.True(t, due.IsDue(now, lookahead))

	future := &ScheduledNotification{ScheduledFor: now.Add(10 * time.Minute)}
	assert.False(t, future.IsDue(now, lookahead))

	cancelled := &ScheduledNotification{ScheduledFor: now, IsCancelled: true}
	assert.False(t, cancelled.IsDue(now, lookahead))

	sent := &ScheduledNotification{ScheduledFor: now, SentAt: utils.ToPtr(now)}
	assert.False(t, sent.IsDue(now, lookahead))
}

func TestMetadataValidateFor(t *testing.T) {
	m := NotificationMetadata{Medication: &MedicationMetadata{ReminderID: 1}}
	assert.NoError(t, m.ValidateFor(NotificationTypeMedication))
	assert.Error(t, m.ValidateFor(NotificationTypeWellness))

	hinted := NotificationMetadata{Channels: []DeliveryMethod{DeliveryMethodPush, DeliveryMethodSMS}}
	assert.NoError(t, hinted.ValidateFor(NotificationTypeMessage))

	bad := NotificationMetadata{Channels: []DeliveryMethod{"fax"}}
	assert.Error(t, bad.ValidateFor(NotificationTypeMessage))
}

func TestEffectivePlan(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	active := &Subscription{Plan: PlanFamily, IsActive: true}
	assert.Equal(t, PlanFamily, active.EffectivePlan(now))

	inactive := &Subscription{Plan: PlanProfessional, IsActive: false}
	assert.Equal(t, PlanFree, inactive.EffectivePlan(now))

	expired := &Subscription{Plan: PlanFamily, IsActive: true, ExpiresAt: utils.ToPtr(now.Add(-time.Hour))}
	assert.Equal(t, PlanFree, expired.EffectivePlan(now))

	current := &Subscription{Plan: PlanFamily, IsActive: true, ExpiresAt: utils.ToPtr(now.Add(time.Hour))}
	assert.Equal(t, PlanFamily, current.EffectivePlan(now))
}
