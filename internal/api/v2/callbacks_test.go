package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func sentRecord(id, providerID string) *entities.NotificationRecord {
	now := time.Now()
	return &entities.NotificationRecord{
		ID:         id,
		RuleID:     1,
		RuleName:   "Low stock",
		Channel:    entities.ChannelEmail,
		Recipient:  "ops@example.com",
		Priority:   entities.PriorityHigh,
		Status:     entities.StatusSent,
		SentAt:     &now,
		ProviderID: providerID,
	}
}

func TestDeliveryCallback(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifRepo.Create(t.Context(), sentRecord("n1", "prov-1")))

	rec := f.request(t, http.MethodPost, "/api/v2/delivery-callback",
		`{"record_id": "n1", "status": "delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := f.notifRepo.Get(t.Context(), "n1")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDelivered, got.Status)
}

func TestDeliveryCallback_ByProviderID(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifRepo.Create(t.Context(), sentRecord("n1", "prov-1")))

	rec := f.request(t, http.MethodPost, "/api/v2/delivery-callback",
		`{"provider_id": "prov-1", "status": "delivered"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := f.notifRepo.Get(t.Context(), "n1")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDelivered, got.Status)
}

func TestDeliveryCallback_Rejections(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.notifRepo.Create(t.Context(), sentRecord("n1", "prov-1")))

	// Neither identifier.
	assert.Equal(t, http.StatusBadRequest,
		f.request(t, http.MethodPost, "/api/v2/delivery-callback", `{"status": "delivered"}`).Code)

	// Unknown record.
	assert.Equal(t, http.StatusNotFound,
		f.request(t, http.MethodPost, "/api/v2/delivery-callback", `{"record_id": "nope", "status": "delivered"}`).Code)

	// Unknown status.
	assert.Equal(t, http.StatusBadRequest,
		f.request(t, http.MethodPost, "/api/v2/delivery-callback", `{"record_id": "n1", "status": "teleported"}`).Code)
}
