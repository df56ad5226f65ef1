package alerting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// Snapshot maps metric field names to their current values. Values are
// numbers, strings, or enum-like strings.
type Snapshot map[string]any

// EvaluateConditions checks whether all conditions hold against the snapshot
// (AND logic). The returned error reports the first referenced field missing
// from the snapshot; the policy for such faults is fail closed, so matched is
// always false alongside a non-nil error. Evaluation is pure: identical
// conditions and snapshot always produce the identical result.
func EvaluateConditions(conditions []entities.AlertCondition, snapshot Snapshot) (bool, error) {
	for i := range conditions {
		cond := &conditions[i]
		value, ok := snapshot[cond.Field]
		if !ok {
			return false, errors.Newf(errors.CategoryEvaluation, "field %q missing from snapshot", cond.Field)
		}
		if !evaluateCondition(cond, value) {
			return false, nil
		}
	}
	return true, nil
}

func evaluateCondition(cond *entities.AlertCondition, value any) bool {
	switch cond.Operator {
	case entities.OperatorEquals:
		return valuesEqual(value, cond.Value)
	case entities.OperatorNotEquals:
		return !valuesEqual(value, cond.Value)
	case entities.OperatorContains:
		s, ok := value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(cond.Value))
	case entities.OperatorNotContains:
		// Only meaningful for strings; fail closed on other types.
		s, ok := value.(string)
		return ok && !strings.Contains(strings.ToLower(s), strings.ToLower(cond.Value))
	case entities.OperatorGreaterThan, entities.OperatorLessThan:
		return evaluateNumeric(cond.Operator, value, cond.Value)
	case entities.OperatorBetween:
		return evaluateBetween(value, cond.Value, cond.SecondValue)
	default:
		return false
	}
}

// valuesEqual compares numerically when both sides parse as numbers, so
// snapshot value 5 equals condition value "5.0". Otherwise it falls back to
// case-insensitive string comparison.
func valuesEqual(value any, condVal string) bool {
	if valFloat, err := toFloat64(value); err == nil {
		if condFloat, err := strconv.ParseFloat(condVal, 64); err == nil {
			return valFloat == condFloat
		}
	}
	return strings.EqualFold(fmt.Sprintf("%v", value), condVal)
}

// evaluateNumeric applies an ordering operator. Non-numeric values on either
// side fail closed.
func evaluateNumeric(operator string, value any, condVal string) bool {
	valFloat, err := toFloat64(value)
	if err != nil {
		return false
	}
	condFloat, err := strconv.ParseFloat(condVal, 64)
	if err != nil {
		return false
	}

	switch operator {
	case entities.OperatorGreaterThan:
		return valFloat > condFloat
	case entities.OperatorLessThan:
		return valFloat < condFloat
	default:
		return false
	}
}

// evaluateBetween checks lo <= value <= hi, inclusive on both bounds.
func evaluateBetween(value any, lo, hi string) bool {
	valFloat, err := toFloat64(value)
	if err != nil {
		return false
	}
	loFloat, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return false
	}
	hiFloat, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return false
	}
	return valFloat >= loFloat && valFloat <= hiFloat
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}
