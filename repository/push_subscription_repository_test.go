package repository

import (
	"testing"

	"github.com/evercare-app/notification-service/models"
	testingutil "github.com/evercare-app/notification-service/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSubscriptionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := NewPushSubscriptionRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("UpsertRefreshesExistingEndpoint", func(t *testing.T) {
			existing, err := fixtures.CreateTestPushSubscription(10)
			require.NoError(t, err)

			err = repo.Upsert(ctx, &models.PushSubscription{
				UserID:    10,
				Endpoint:  existing.Endpoint,
				P256dhKey: "rotated-p256dh",
				AuthKey:   "rotated-auth",
				DeviceInfo: models.DeviceInfo{
					Platform: "web",
					Browser:  "chrome",
				},
			})
			require.NoError(t, err)

			subs, err := repo.ListByUser(ctx, 10)
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.Equal(t, existing.ID, subs[0].ID)
			assert.Equal(t, "rotated-p256dh", subs[0].P256dhKey)
			assert.Equal(t, "rotated-auth", subs[0].AuthKey)
			assert.Equal(t, "chrome", subs[0].DeviceInfo.Browser)
		})

		t.Run("UpsertInsertsNewEndpoint", func(t *testing.T) {
			_, err := fixtures.CreateTestPushSubscription(11)
			require.NoError(t, err)

			err = repo.Upsert(ctx, &models.PushSubscription{
				UserID:    11,
				Endpoint:  "https://push.example.com/send/second-device",
				P256dhKey: "second-p256dh",
				AuthKey:   "second-auth",
			})
			require.NoError(t, err)

			subs, err := repo.ListByUser(ctx, 11)
			require.NoError(t, err)
			assert.Len(t, subs, 2)
		})

		t.Run("DeleteByEndpoint", func(t *testing.T) {
			sub, err := fixtures.CreateTestPushSubscription(12)
			require.NoError(t, err)

			require.NoError(t, repo.DeleteByEndpoint(ctx, 12, sub.Endpoint))

			subs, err := repo.ListByUser(ctx, 12)
			require.NoError(t, err)
			assert.Empty(t, subs)
		})

		return nil
	})
	require.NoError(t, err)
}
