package repository

import (
	"context"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

// NotificationRepository handles notification record persistence. Records are
// append-only except for the delivery lifecycle fields, which the delivery
// tracker owns after creation.
type NotificationRepository interface {
	Create(ctx context.Context, record *entities.NotificationRecord) error
	Get(ctx context.Context, id string) (*entities.NotificationRecord, error)
	GetByProviderID(ctx context.Context, providerID string) (*entities.NotificationRecord, error)
	// Update persists lifecycle field changes (status, timestamps, failure
	// reason, retry count, pending read buffer).
	Update(ctx context.Context, record *entities.NotificationRecord) error
	List(ctx context.Context, filter NotificationFilter) ([]entities.NotificationRecord, int64, error)
	// ListStuckSent returns records still in Sent with no callback since
	// the cutoff, for the delivery timeout scanner.
	ListStuckSent(ctx context.Context, sentBefore time.Time, limit int) ([]entities.NotificationRecord, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// NotificationFilter controls history listing queries.
type NotificationFilter struct {
	RuleID   uint
	Channel  string
	Status   string
	Category string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
