package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"gorm.io/gorm"
)

// alertRuleRepository implements AlertRuleRepository.
type alertRuleRepository struct {
	db *gorm.DB
}

// NewAlertRuleRepository creates a new AlertRuleRepository.
func NewAlertRuleRepository(db *gorm.DB) AlertRuleRepository {
	return &alertRuleRepository{db: db}
}

// ListRules returns alert rules matching the given filter, ordered by id.
func (r *alertRuleRepository) ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error) {
	var rules []entities.AlertRule
	query := r.db.WithContext(ctx).Preload("Conditions").Preload("Actions")

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.BuiltIn != nil {
		query = query.Where("built_in = ?", *filter.BuiltIn)
	}

	if err := query.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// GetRule returns a single alert rule by ID with its conditions and actions.
// Returns ErrAlertRuleNotFound if the rule does not exist.
func (r *alertRuleRepository) GetRule(ctx context.Context, id uint) (*entities.AlertRule, error) {
	var rule entities.AlertRule
	if err := r.db.WithContext(ctx).Preload("Conditions").Preload("Actions").First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule %d: %w", id, err)
	}
	return &rule, nil
}

// CreateRule validates and creates a new alert rule with its conditions and
// actions. Invariant violations surface as validation errors without touching
// storage.
func (r *alertRuleRepository) CreateRule(ctx context.Context, rule *entities.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// UpdateRule validates and replaces an alert rule, deleting existing
// conditions and actions first. Engine-owned counters are preserved.
func (r *alertRuleRepository) UpdateRule(ctx context.Context, rule *entities.AlertRule) error {
	if rule.ID == 0 {
		return fmt.Errorf("failed to update alert rule: missing rule ID")
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entities.AlertRule
		if err := tx.Select("trigger_count", "last_triggered_at", "last_seq").First(&existing, rule.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertRuleNotFound
			}
			return fmt.Errorf("failed to load alert rule %d: %w", rule.ID, err)
		}
		// Trigger bookkeeping belongs to the engine, not the editor.
		rule.TriggerCount = existing.TriggerCount
		rule.LastTriggeredAt = existing.LastTriggeredAt
		rule.LastSeq = existing.LastSeq

		if err := tx.Where("rule_id = ?", rule.ID).Delete(&entities.AlertCondition{}).Error; err != nil {
			return fmt.Errorf("failed to delete old conditions: %w", err)
		}
		if err := tx.Where("rule_id = ?", rule.ID).Delete(&entities.AlertAction{}).Error; err != nil {
			return fmt.Errorf("failed to delete old actions: %w", err)
		}
		// Zero out IDs so GORM inserts new rows instead of updating deleted ones.
		for i := range rule.Conditions {
			rule.Conditions[i].ID = 0
		}
		for i := range rule.Actions {
			rule.Actions[i].ID = 0
		}
		if err := tx.Save(rule).Error; err != nil {
			return fmt.Errorf("failed to update alert rule: %w", err)
		}
		return nil
	})
}

// DeleteRule deletes an alert rule and its conditions/actions via cascade.
func (r *alertRuleRepository) DeleteRule(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlertRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// ToggleRule activates or deactivates an alert rule.
func (r *alertRuleRepository) ToggleRule(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to toggle alert rule %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// GetActiveRules returns all active alert rules with conditions and actions.
func (r *alertRuleRepository) GetActiveRules(ctx context.Context) ([]entities.AlertRule, error) {
	active := true
	return r.ListRules(ctx, AlertRuleFilter{IsActive: &active})
}

// DeleteBuiltInRules deletes all built-in alert rules.
func (r *alertRuleRepository) DeleteBuiltInRules(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("built_in = ?", true).Delete(&entities.AlertRule{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete built-in alert rules: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountRulesByName returns the number of rules with the given name.
func (r *alertRuleRepository) CountRulesByName(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rules by name: %w", err)
	}
	return count, nil
}

// NextTriggerSeq returns the next monotonic trigger sequence number for a rule.
// NextTriggerSeq allocates the next trigger sequence number for a rule. The
// high-water mark lives on the rule row, so sequences stay monotonic after
// trigger history cleanup prunes old events.
func (r *alertRuleRepository) NextTriggerSeq(ctx context.Context, ruleID uint) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.AlertRule{}).
			Where("id = ?", ruleID).
			UpdateColumn("last_seq", gorm.Expr("last_seq + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlertRuleNotFound
		}
		return tx.Model(&entities.AlertRule{}).
			Where("id = ?", ruleID).
			Select("last_seq").
			Scan(&seq).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlertRuleNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to allocate trigger seq for rule %d: %w", ruleID, err)
	}
	return seq, nil
}

// RecordTrigger updates the rule's engine-owned trigger counters.
func (r *alertRuleRepository) RecordTrigger(ctx context.Context, ruleID uint, at time.Time, suppressed bool) error {
	updates := map[string]any{
		"trigger_count": gorm.Expr("trigger_count + 1"),
	}
	if !suppressed {
		updates["last_triggered_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&entities.AlertRule{}).Where("id = ?", ruleID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to record trigger for rule %d: %w", ruleID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertRuleNotFound
	}
	return nil
}

// SaveTriggerEvent persists a trigger event record.
func (r *alertRuleRepository) SaveTriggerEvent(ctx context.Context, event *entities.TriggerEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to save trigger event: %w", err)
	}
	return nil
}

// ListTriggerEvents returns trigger events matching the filter with pagination,
// newest first.
func (r *alertRuleRepository) ListTriggerEvents(ctx context.Context, filter TriggerEventFilter) ([]entities.TriggerEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.TriggerEvent{})
	if filter.RuleID > 0 {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.Suppressed != nil {
		query = query.Where("suppressed = ?", *filter.Suppressed)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trigger events: %w", err)
	}

	var events []entities.TriggerEvent
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Order("fired_at DESC").Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trigger events: %w", err)
	}
	return events, total, nil
}

// DeleteTriggerEventsBefore deletes trigger events older than the cutoff.
func (r *alertRuleRepository) DeleteTriggerEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("fired_at < ?", before).Delete(&entities.TriggerEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old trigger events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
