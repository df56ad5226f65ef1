package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func newRecord(status, channel string, createdAgo time.Duration) *entities.NotificationRecord {
	now := time.Now()
	rec := &entities.NotificationRecord{
		ID:             uuid.NewString(),
		TriggerEventID: uuid.NewString(),
		RuleID:         1,
		RuleName:       "Low stock",
		Category:       entities.CategoryInventory,
		Priority:       entities.PriorityHigh,
		Channel:        channel,
		Recipient:      "ops@example.com",
		Status:         status,
	}
	if status != entities.StatusPending {
		sentAt := now.Add(-createdAgo)
		rec.SentAt = &sentAt
	}
	return rec
}

func TestNotificationRepository_CreateGetUpdate(t *testing.T) {
	repo := NewNotificationRepository(setupTestDB(t))
	ctx := t.Context()

	rec := newRecord(entities.StatusPending, entities.ChannelEmail, 0)
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPending, got.Status)

	now := time.Now().UTC().Truncate(time.Second)
	got.Status = entities.StatusSent
	got.SentAt = &now
	got.ProviderID = "prov-123"
	require.NoError(t, repo.Update(ctx, got))

	byProvider, err := repo.GetByProviderID(ctx, "prov-123")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byProvider.ID)
	assert.Equal(t, entities.StatusSent, byProvider.Status)
	require.NotNil(t, byProvider.SentAt)
}

func TestNotificationRepository_NotFound(t *testing.T) {
	repo := NewNotificationRepository(setupTestDB(t))
	ctx := t.Context()

	_, err := repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	_, err = repo.GetByProviderID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	err = repo.Update(ctx, &entities.NotificationRecord{ID: uuid.NewString(), Status: entities.StatusSent})
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationRepository_ListFilters(t *testing.T) {
	repo := NewNotificationRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, newRecord(entities.StatusSent, entities.ChannelEmail, time.Minute)))
	require.NoError(t, repo.Create(ctx, newRecord(entities.StatusDelivered, entities.ChannelPush, time.Minute)))
	failed := newRecord(entities.StatusFailed, entities.ChannelEmail, time.Minute)
	failed.Category = entities.CategorySales
	require.NoError(t, repo.Create(ctx, failed))

	byChannel, total, err := repo.List(ctx, NotificationFilter{Channel: entities.ChannelEmail})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byChannel, 2)

	byStatus, _, err := repo.List(ctx, NotificationFilter{Status: entities.StatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, entities.CategorySales, byStatus[0].Category)

	byCategory, _, err := repo.List(ctx, NotificationFilter{Category: entities.CategorySales})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	// Date range excluding everything
	none, total, err := repo.List(ctx, NotificationFilter{To: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestNotificationRepository_ListStuckSent(t *testing.T) {
	repo := NewNotificationRepository(setupTestDB(t))
	ctx := t.Context()

	stale := newRecord(entities.StatusSent, entities.ChannelWebhook, 10*time.Minute)
	fresh := newRecord(entities.StatusSent, entities.ChannelWebhook, 10*time.Second)
	delivered := newRecord(entities.StatusDelivered, entities.ChannelWebhook, 10*time.Minute)
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.Create(ctx, delivered))

	stuck, err := repo.ListStuckSent(ctx, time.Now().Add(-5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, stale.ID, stuck[0].ID)
}

func TestNotificationRepository_CountByStatus(t *testing.T) {
	repo := NewNotificationRepository(setupTestDB(t))
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, newRecord(entities.StatusSent, entities.ChannelEmail, time.Minute)))
	require.NoError(t, repo.Create(ctx, newRecord(entities.StatusSent, entities.ChannelPush, time.Minute)))
	require.NoError(t, repo.Create(ctx, newRecord(entities.StatusRead, entities.ChannelEmail, time.Minute)))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[entities.StatusSent])
	assert.Equal(t, int64(1), counts[entities.StatusRead])
}

func TestThrottleRepository_RoundTrip(t *testing.T) {
	repo := NewThrottleRepository(setupTestDB(t))
	ctx := t.Context()

	got, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got, "missing window returns nil, not an error")

	window := &entities.ThrottleWindow{
		RuleID:        42,
		WindowStart:   time.Now().UTC().Truncate(time.Second),
		WindowDurSec:  3600,
		AdmittedCount: 1,
	}
	require.NoError(t, repo.Put(ctx, window))

	got, err = repo.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3600), got.WindowDurSec)

	window.AdmittedCount = 2
	require.NoError(t, repo.Put(ctx, window))
	got, err = repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AdmittedCount)

	require.NoError(t, repo.Delete(ctx, 42))
	got, err = repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}
