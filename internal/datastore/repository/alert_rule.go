// Package repository provides data access for alert rules, trigger events,
// notification records and throttle windows.
package repository

import (
	"context"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// Sentinel errors returned by repositories.
var (
	ErrAlertRuleNotFound    = errors.New("alert rule not found")
	ErrNotificationNotFound = errors.New("notification record not found")
)

// AlertRuleRepository handles alert rule CRUD and trigger bookkeeping.
// Create and Update enforce rule invariants and fail with a validation error
// before touching storage.
type AlertRuleRepository interface {
	// Rule CRUD
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) error

	// Bulk operations
	GetActiveRules(ctx context.Context) ([]entities.AlertRule, error)
	DeleteBuiltInRules(ctx context.Context) (int64, error)
	CountRulesByName(ctx context.Context, name string) (int64, error)

	// Trigger bookkeeping. RecordTrigger owns the rule's TriggerCount and
	// LastTriggeredAt fields: every trigger (admitted or suppressed)
	// increments the count; only admitted triggers advance LastTriggeredAt.
	NextTriggerSeq(ctx context.Context, ruleID uint) (int64, error)
	RecordTrigger(ctx context.Context, ruleID uint, at time.Time, suppressed bool) error
	SaveTriggerEvent(ctx context.Context, event *entities.TriggerEvent) error
	ListTriggerEvents(ctx context.Context, filter TriggerEventFilter) ([]entities.TriggerEvent, int64, error)
	DeleteTriggerEventsBefore(ctx context.Context, before time.Time) (int64, error)
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	Category string
	Priority string
	IsActive *bool
	BuiltIn  *bool
}

// TriggerEventFilter controls trigger event listing queries.
type TriggerEventFilter struct {
	RuleID     uint
	Suppressed *bool
	Limit      int
	Offset     int
}
