package entities

import (
	"strconv"

	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// Condition operators. Between is inclusive on both bounds and is the only
// operator that uses SecondValue.
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
	OperatorBetween     = "between"
)

// Operators lists all valid condition operators.
var Operators = []string{
	OperatorEquals,
	OperatorNotEquals,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorContains,
	OperatorNotContains,
	OperatorBetween,
}

// AlertCondition defines a single condition within an alert rule.
// All conditions in a rule use AND logic. Field is an opaque key into the
// metric snapshot; values are stored as strings and coerced at evaluation.
type AlertCondition struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RuleID      uint   `gorm:"not null;index" json:"rule_id"`
	Field       string `gorm:"size:100;not null" json:"field"`
	Operator    string `gorm:"size:20;not null" json:"operator"`
	Value       string `gorm:"size:500;not null" json:"value"`
	SecondValue string `gorm:"size:500;default:''" json:"second_value,omitempty"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name for GORM.
func (AlertCondition) TableName() string {
	return "alert_conditions"
}

// Validate checks the condition's structural invariants.
func (c *AlertCondition) Validate() error {
	if c.Field == "" {
		return errors.Newf(errors.CategoryValidation, "condition field is required")
	}
	if !validOperator(c.Operator) {
		return errors.Newf(errors.CategoryValidation, "unknown operator %q", c.Operator)
	}
	if c.Operator == OperatorBetween {
		if c.SecondValue == "" {
			return errors.Newf(errors.CategoryValidation, "between requires a second value")
		}
		lo, err1 := strconv.ParseFloat(c.Value, 64)
		hi, err2 := strconv.ParseFloat(c.SecondValue, 64)
		if err1 != nil || err2 != nil {
			return errors.Newf(errors.CategoryValidation, "between bounds must be numeric, got %q and %q", c.Value, c.SecondValue)
		}
		if lo > hi {
			return errors.Newf(errors.CategoryValidation, "between lower bound %v exceeds upper bound %v", lo, hi)
		}
	} else if c.SecondValue != "" {
		return errors.Newf(errors.CategoryValidation, "second value is only meaningful for between")
	}
	return nil
}

func validOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}
