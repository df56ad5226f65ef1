package repository

import (
	"context"
	"fmt"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"gorm.io/gorm"
)

// ThrottleRepository persists per-rule throttle windows so suppression state
// survives process restarts.
type ThrottleRepository interface {
	// Get returns the rule's window, or nil if none has been recorded.
	Get(ctx context.Context, ruleID uint) (*entities.ThrottleWindow, error)
	// Put creates or replaces the rule's window.
	Put(ctx context.Context, window *entities.ThrottleWindow) error
	// Delete removes the rule's window (rule deleted or throttle disabled).
	Delete(ctx context.Context, ruleID uint) error
}

// throttleRepository implements ThrottleRepository.
type throttleRepository struct {
	db *gorm.DB
}

// NewThrottleRepository creates a new ThrottleRepository.
func NewThrottleRepository(db *gorm.DB) ThrottleRepository {
	return &throttleRepository{db: db}
}

func (r *throttleRepository) Get(ctx context.Context, ruleID uint) (*entities.ThrottleWindow, error) {
	var window entities.ThrottleWindow
	if err := r.db.WithContext(ctx).First(&window, "rule_id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get throttle window for rule %d: %w", ruleID, err)
	}
	return &window, nil
}

func (r *throttleRepository) Put(ctx context.Context, window *entities.ThrottleWindow) error {
	if err := r.db.WithContext(ctx).Save(window).Error; err != nil {
		return fmt.Errorf("failed to save throttle window for rule %d: %w", window.RuleID, err)
	}
	return nil
}

func (r *throttleRepository) Delete(ctx context.Context, ruleID uint) error {
	if err := r.db.WithContext(ctx).Delete(&entities.ThrottleWindow{}, "rule_id = ?", ruleID).Error; err != nil {
		return fmt.Errorf("failed to delete throttle window for rule %d: %w", ruleID, err)
	}
	return nil
}
