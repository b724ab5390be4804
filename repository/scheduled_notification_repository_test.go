package repository

import (
	"testing"
	"time"

	"github.com/evercare-app/notification-service/models"
	testingutil "github.com/evercare-app/notification-service/testing"
	"github.com/evercare-app/notification-service/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledNotificationRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := NewScheduledNotificationRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		now := utils.UTCNow()

		t.Run("ClaimWinsOnce", func(t *testing.T) {
			notification, err := fixtures.CreateTestNotification(1, models.NotificationTypeMedication, now)
			require.NoError(t, err)

			claimed, err := repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			assert.True(t, claimed)

			// Second worker arrives after the row was stamped
			claimed, err = repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			assert.False(t, claimed)

			stored, err := repo.ByID(ctx, notification.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			require.NotNil(t, stored.SentAt)
		})

		t.Run("ClaimSkipsCancelled", func(t *testing.T) {
			notification, err := fixtures.CreateTestNotification(1, models.NotificationTypeMedication, now)
			require.NoError(t, err)
			require.NoError(t, repo.Cancel(ctx, notification.ID))

			claimed, err := repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			assert.False(t, claimed)
		})

		t.Run("ReleaseReopensClaim", func(t *testing.T) {
			notification, err := fixtures.CreateTestNotification(1, models.NotificationTypeMedication, now)
			require.NoError(t, err)

			claimed, err := repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			require.True(t, claimed)

			require.NoError(t, repo.Release(ctx, notification.ID))

			claimed, err = repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			assert.True(t, claimed)
		})

		t.Run("MarkSentWithErrorIsTerminal", func(t *testing.T) {
			notification, err := fixtures.CreateTestNotification(1, models.NotificationTypeMedication, now)
			require.NoError(t, err)

			claimed, err := repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			require.True(t, claimed)
			require.NoError(t, repo.MarkSentWithError(ctx, notification.ID, "phone number has invalid length"))

			stored, err := repo.ByID(ctx, notification.ID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			require.NotNil(t, stored.DeliveryError)
			assert.Equal(t, "phone number has invalid length", *stored.DeliveryError)
			require.NotNil(t, stored.SentAt)

			// Still stamped, so no later pass can claim it
			claimed, err = repo.Claim(ctx, notification.ID, now)
			require.NoError(t, err)
			assert.False(t, claimed)
		})

		t.Run("ListDue", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			overdue, err := fixtures.CreateTestNotification(2, models.NotificationTypeMedication, now.Add(-time.Hour))
			require.NoError(t, err)
			almostDue, err := fixtures.CreateTestNotification(2, models.NotificationTypeWellness, now.Add(2*time.Minute))
			require.NoError(t, err)
			_, err = fixtures.CreateTestNotification(2, models.NotificationTypeMessage, now.Add(time.Hour))
			require.NoError(t, err)

			cancelled, err := fixtures.CreateTestNotification(2, models.NotificationTypeMedication, now.Add(-time.Hour))
			require.NoError(t, err)
			require.NoError(t, repo.Cancel(ctx, cancelled.ID))

			sent, err := fixtures.CreateTestNotification(2, models.NotificationTypeMedication, now.Add(-time.Hour))
			require.NoError(t, err)
			claimed, err := repo.Claim(ctx, sent.ID, now)
			require.NoError(t, err)
			require.True(t, claimed)

			due, err := repo.ListDue(ctx, now, utils.DueLookahead, utils.DueBatchLimit)
			require.NoError(t, err)
			require.Len(t, due, 2)

			// Oldest first
			assert.Equal(t, overdue.ID, due[0].ID)
			assert.Equal(t, almostDue.ID, due[1].ID)
		})

		t.Run("ByUUID", func(t *testing.T) {
			notification, err := fixtures.CreateTestNotification(3, models.NotificationTypeWellness, now)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, notification.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, notification.ID, found.ID)

			missing, err := repo.ByUUID(ctx, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		return nil
	})
	require.NoError(t, err)
}
