package dispatch

import (
	"context"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/notification"
)

// InAppSender delivers notifications to the in-app notification center.
type InAppSender struct {
	svc *notification.Service
}

// NewInAppSender creates an in-app sender backed by the given service.
func NewInAppSender(svc *notification.Service) *InAppSender {
	return &InAppSender{svc: svc}
}

// Channel returns the delivery channel this sender handles.
func (s *InAppSender) Channel() string {
	return entities.ChannelInApp
}

// Send creates an in-app notification center entry. The entry's ID doubles
// as the provider ID so read receipts from the UI can be correlated.
func (s *InAppSender) Send(_ context.Context, rec *entities.NotificationRecord) (SendResult, error) {
	if s.svc == nil {
		return SendResult{}, errors.Newf(errors.CategoryDispatch, "in-app notification service not available")
	}
	n, err := s.svc.CreateWithMetadata(
		notification.TypeAlert,
		notification.Priority(rec.Priority),
		rec.Title,
		rec.Body,
		map[string]any{
			"record_id": rec.ID,
			"rule_id":   rec.RuleID,
			"category":  rec.Category,
		},
	)
	if err != nil {
		return SendResult{}, errors.Wrap(errors.CategoryDispatch, err, "failed to create in-app notification")
	}
	return SendResult{ProviderID: n.ID}, nil
}
