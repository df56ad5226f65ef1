package entities

import (
	"fmt"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// Rule priorities, ordered from least to most urgent. Priority orders rules
// and drives escalation on delivery failure; it never affects evaluation.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Rule categories classify rules for filtering and reporting only.
const (
	CategoryInventory   = "inventory"
	CategorySales       = "sales"
	CategorySupplyChain = "supply_chain"
	CategorySystem      = "system"
)

// Schedule frequencies decide when the trigger scheduler re-evaluates a rule.
// Immediate rules are evaluated only on metric-change events.
const (
	FrequencyImmediate = "immediate"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
)

// Throttle interval units.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// priorityRank maps priorities to sort order.
var priorityRank = map[string]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// AlertRule defines a user-configurable alerting rule. Conditions are ANDed
// against a metric snapshot; on an admitted trigger one notification is
// dispatched per channel x recipient pair.
//
// The engine owns TriggerCount, LastTriggeredAt and LastSeq exclusively;
// every other field is only mutated by admin edits.
type AlertRule struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1000;default:''" json:"description"`
	Category    string `gorm:"size:50;not null;index" json:"category"`
	RuleType    string `gorm:"size:50;default:''" json:"rule_type"`
	Priority    string `gorm:"size:20;not null;default:'medium'" json:"priority"`
	IsActive    bool   `gorm:"not null;index" json:"is_active"`
	BuiltIn     bool   `gorm:"not null;default:false" json:"built_in"`

	ScheduleFrequency string `gorm:"size:20;not null;default:'immediate'" json:"schedule_frequency"`

	ThrottleEnabled  bool   `gorm:"not null;default:false" json:"throttle_enabled"`
	ThrottleInterval int    `gorm:"not null;default:0" json:"throttle_interval"`
	ThrottleUnit     string `gorm:"size:20;default:'minutes'" json:"throttle_unit"`

	Channels   []string `gorm:"serializer:json" json:"channels"`
	Recipients []string `gorm:"serializer:json" json:"recipients"`

	// Engine-owned counters. LastSeq is the trigger sequence high-water
	// mark; it lives on the rule so sequences stay monotonic after trigger
	// history is pruned.
	TriggerCount    int64      `gorm:"not null;default:0" json:"trigger_count"`
	LastTriggeredAt *time.Time `json:"last_triggered_at"`
	LastSeq         int64      `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Conditions []AlertCondition `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"conditions"`
	Actions    []AlertAction    `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE" json:"actions"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}

// PriorityRank returns the numeric rank of the rule's priority for ordering.
// Unknown priorities rank lowest.
func (r *AlertRule) PriorityRank() int {
	return priorityRank[r.Priority]
}

// ThrottleWindowDuration converts the throttle interval and unit to a duration.
// Returns zero when throttling is disabled or misconfigured.
func (r *AlertRule) ThrottleWindowDuration() time.Duration {
	if !r.ThrottleEnabled || r.ThrottleInterval <= 0 {
		return 0
	}
	switch r.ThrottleUnit {
	case UnitHours:
		return time.Duration(r.ThrottleInterval) * time.Hour
	case UnitDays:
		return time.Duration(r.ThrottleInterval) * 24 * time.Hour
	default:
		return time.Duration(r.ThrottleInterval) * time.Minute
	}
}

// ConditionFields returns the set of snapshot field names the rule's
// conditions reference. Used by the scheduler's field index.
func (r *AlertRule) ConditionFields() []string {
	seen := make(map[string]struct{}, len(r.Conditions))
	fields := make([]string, 0, len(r.Conditions))
	for i := range r.Conditions {
		f := r.Conditions[i].Field
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields
}

// Validate checks the rule invariants enforced at write time. A rule with no
// conditions would fire on every snapshot, and an active rule without channels
// could never deliver anything, so both are rejected.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return errors.Newf(errors.CategoryValidation, "rule name is required")
	}
	if len(r.Conditions) == 0 {
		return errors.Newf(errors.CategoryValidation, "rule %q has no conditions and would fire on every snapshot", r.Name)
	}
	if r.IsActive && len(r.Channels) == 0 {
		return errors.Newf(errors.CategoryValidation, "active rule %q has no channels", r.Name)
	}
	if _, ok := priorityRank[r.Priority]; !ok {
		return errors.Newf(errors.CategoryValidation, "unknown priority %q", r.Priority)
	}
	switch r.ScheduleFrequency {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return errors.Newf(errors.CategoryValidation, "unknown schedule frequency %q", r.ScheduleFrequency)
	}
	if r.ThrottleEnabled {
		if r.ThrottleInterval <= 0 {
			return errors.Newf(errors.CategoryValidation, "throttle interval must be positive")
		}
		switch r.ThrottleUnit {
		case UnitMinutes, UnitHours, UnitDays:
		default:
			return errors.Newf(errors.CategoryValidation, "unknown throttle unit %q", r.ThrottleUnit)
		}
	}
	for i := range r.Channels {
		if !ValidChannel(r.Channels[i]) {
			return errors.Newf(errors.CategoryValidation, "unknown channel %q", r.Channels[i])
		}
	}
	for i := range r.Conditions {
		if err := r.Conditions[i].Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	return nil
}
