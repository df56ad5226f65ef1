package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/notification"
)

func TestInAppSender_Send(t *testing.T) {
	svc := notification.NewService(notification.DefaultServiceConfig())
	sender := NewInAppSender(svc)
	assert.Equal(t, entities.ChannelInApp, sender.Channel())

	rec := &entities.NotificationRecord{
		ID:       "rec-1",
		RuleID:   7,
		Category: entities.CategorySales,
		Priority: entities.PriorityCritical,
		Channel:  entities.ChannelInApp,
		Title:    "Large order received",
		Body:     "Order total $12,000 from Acme.",
	}

	result, err := sender.Send(t.Context(), rec)
	require.NoError(t, err)
	require.NotEmpty(t, result.ProviderID)

	// The provider ID is the notification center entry's ID.
	n, err := svc.Get(result.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, notification.TypeAlert, n.Type)
	assert.Equal(t, notification.PriorityCritical, n.Priority)
	assert.Equal(t, "Large order received", n.Title)
	assert.Equal(t, "rec-1", n.Metadata["record_id"])
	assert.Equal(t, uint(7), n.Metadata["rule_id"])
	assert.Equal(t, entities.CategorySales, n.Metadata["category"])
}

func TestInAppSender_NilService(t *testing.T) {
	sender := NewInAppSender(nil)

	_, err := sender.Send(t.Context(), &entities.NotificationRecord{ID: "rec-1"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryDispatch, errors.CategoryOf(err))
}
