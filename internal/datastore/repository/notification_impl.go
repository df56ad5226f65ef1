package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create persists a new notification record.
func (r *notificationRepository) Create(ctx context.Context, record *entities.NotificationRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

// Get returns a notification record by ID.
// Returns ErrNotificationNotFound if the record does not exist.
func (r *notificationRepository) Get(ctx context.Context, id string) (*entities.NotificationRecord, error) {
	var record entities.NotificationRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification %s: %w", id, err)
	}
	return &record, nil
}

// GetByProviderID returns the record correlated to a channel provider's send ID.
func (r *notificationRepository) GetByProviderID(ctx context.Context, providerID string) (*entities.NotificationRecord, error) {
	var record entities.NotificationRecord
	if err := r.db.WithContext(ctx).First(&record, "provider_id = ?", providerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification by provider id %s: %w", providerID, err)
	}
	return &record, nil
}

// Update persists lifecycle field changes on an existing record.
func (r *notificationRepository) Update(ctx context.Context, record *entities.NotificationRecord) error {
	result := r.db.WithContext(ctx).Model(&entities.NotificationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"status":         record.Status,
			"sent_at":        record.SentAt,
			"delivered_at":   record.DeliveredAt,
			"read_at":        record.ReadAt,
			"failure_reason": record.FailureReason,
			"retry_count":    record.RetryCount,
			"provider_id":    record.ProviderID,
			"pending_read":   record.PendingRead,
			"cost":           record.Cost,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update notification %s: %w", record.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// List returns notification records matching the filter, newest first.
func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]entities.NotificationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.NotificationRecord{})
	if filter.RuleID > 0 {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var records []entities.NotificationRecord
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return records, total, nil
}

// ListStuckSent returns Sent records whose last update predates the cutoff.
func (r *notificationRepository) ListStuckSent(ctx context.Context, sentBefore time.Time, limit int) ([]entities.NotificationRecord, error) {
	var records []entities.NotificationRecord
	query := r.db.WithContext(ctx).
		Where("status = ?", entities.StatusSent).
		Where("sent_at < ?", sentBefore).
		Order("sent_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list stuck notifications: %w", err)
	}
	return records, nil
}

// CountByStatus returns record counts grouped by delivery status.
func (r *notificationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entities.NotificationRecord{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications by status: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// DeleteBefore deletes notification records created before the cutoff.
func (r *notificationRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&entities.NotificationRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
