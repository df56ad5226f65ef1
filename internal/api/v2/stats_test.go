package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/stats"
)

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	require.NoError(t, f.notifRepo.Create(ctx, &entities.NotificationRecord{
		ID: "n1", Channel: entities.ChannelEmail, Status: entities.StatusDelivered, Cost: 0.001,
	}))
	require.NoError(t, f.notifRepo.Create(ctx, &entities.NotificationRecord{
		ID: "n2", Channel: entities.ChannelEmail, Status: entities.StatusFailed, Cost: 0.001,
	}))

	rec := f.request(t, http.MethodGet, "/api/v2/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var overview stats.Overview
	decode(t, rec.Body.Bytes(), &overview)
	assert.Equal(t, int64(2), overview.Total)
	assert.InDelta(t, 0.5, overview.DeliveryRate, 1e-9)
	assert.InDelta(t, 0.002, overview.TotalCost, 1e-9)

	assert.Equal(t, http.StatusBadRequest,
		f.request(t, http.MethodGet, "/api/v2/stats?from=yesterday", "").Code)
}

func TestGetChannelStats(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifRepo.Create(t.Context(), &entities.NotificationRecord{
		ID: "n1", Channel: entities.ChannelEmail, Status: entities.StatusDelivered,
	}))

	rec := f.request(t, http.MethodGet, "/api/v2/stats/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Channels []stats.ChannelStats `json:"channels"`
	}
	decode(t, rec.Body.Bytes(), &resp)
	require.Len(t, resp.Channels, 1)
	assert.Equal(t, entities.ChannelEmail, resp.Channels[0].Channel)
	assert.Equal(t, int64(1), resp.Channels[0].Delivered)
}
