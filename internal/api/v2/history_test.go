package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func TestListNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	require.NoError(t, f.notifRepo.Create(ctx, &entities.NotificationRecord{
		ID: "n1", RuleID: 1, Channel: entities.ChannelEmail,
		Category: entities.CategoryInventory, Status: entities.StatusDelivered,
	}))
	require.NoError(t, f.notifRepo.Create(ctx, &entities.NotificationRecord{
		ID: "n2", RuleID: 2, Channel: entities.ChannelSMS,
		Category: entities.CategorySales, Status: entities.StatusFailed,
	}))

	var resp struct {
		Notifications []entities.NotificationRecord `json:"notifications"`
		Total         int64                         `json:"total"`
	}

	rec := f.request(t, http.MethodGet, "/api/v2/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec.Body.Bytes(), &resp)
	assert.Equal(t, int64(2), resp.Total)

	rec = f.request(t, http.MethodGet, "/api/v2/notifications?channel=sms&status=failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec.Body.Bytes(), &resp)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "n2", resp.Notifications[0].ID)

	rec = f.request(t, http.MethodGet, "/api/v2/notifications?rule_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec.Body.Bytes(), &resp)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "n1", resp.Notifications[0].ID)

	assert.Equal(t, http.StatusBadRequest,
		f.request(t, http.MethodGet, "/api/v2/notifications?from=yesterday", "").Code)
}

func TestGetNotification(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifRepo.Create(t.Context(), &entities.NotificationRecord{
		ID: "n1", Channel: entities.ChannelEmail, Status: entities.StatusPending,
	}))

	rec := f.request(t, http.MethodGet, "/api/v2/notifications/n1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got entities.NotificationRecord
	decode(t, rec.Body.Bytes(), &got)
	assert.Equal(t, "n1", got.ID)

	assert.Equal(t, http.StatusNotFound,
		f.request(t, http.MethodGet, "/api/v2/notifications/nope", "").Code)
}
