package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

func TestEvaluateConditions_EmptyConditions(t *testing.T) {
	matched, err := EvaluateConditions(nil, Snapshot{FieldProductName: "Widget"})
	require.NoError(t, err)
	assert.True(t, matched, "empty conditions should match")
}

func TestEvaluateConditions_StringOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    string
		fieldVal any
		want     bool
	}{
		{"equals match", entities.OperatorEquals, "east", "east", true},
		{"equals case insensitive", entities.OperatorEquals, "east", "EAST", true},
		{"equals no match", entities.OperatorEquals, "east", "west", false},
		{"not_equals match", entities.OperatorNotEquals, "east", "west", true},
		{"not_equals no match", entities.OperatorNotEquals, "east", "east", false},
		{"contains match", entities.OperatorContains, "Widget", "Blue Widget Large", true},
		{"contains case insensitive", entities.OperatorContains, "widget", "Blue Widget Large", true},
		{"contains no match", entities.OperatorContains, "Gadget", "Blue Widget Large", false},
		{"contains non-string value", entities.OperatorContains, "42", 42, false},
		{"not_contains match", entities.OperatorNotContains, "Gadget", "Blue Widget Large", true},
		{"not_contains no match", entities.OperatorNotContains, "Widget", "Blue Widget Large", false},
		{"not_contains non-string value", entities.OperatorNotContains, "42", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []entities.AlertCondition{
				{Field: FieldWarehouse, Operator: tt.operator, Value: tt.value},
			}
			matched, err := EvaluateConditions(conds, Snapshot{FieldWarehouse: tt.fieldVal})
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestEvaluateConditions_NumericOperators(t *testing.T) {
	tests := []struct {
		name     string
		operator string
		value    string
		fieldVal any
		want     bool
	}{
		{"gt true", entities.OperatorGreaterThan, "90", 95.0, true},
		{"gt false", entities.OperatorGreaterThan, "90", 85.0, false},
		{"gt equal is false", entities.OperatorGreaterThan, "90", 90.0, false},
		{"lt true", entities.OperatorLessThan, "10", 5, true},
		{"lt false", entities.OperatorLessThan, "10", 15, false},
		{"lt equal is false", entities.OperatorLessThan, "10", 10, false},
		{"equals numeric", entities.OperatorEquals, "5.0", 5, true},
		{"int field", entities.OperatorGreaterThan, "50", 60, true},
		{"int64 field", entities.OperatorGreaterThan, "50", int64(60), true},
		{"string field coercion", entities.OperatorGreaterThan, "0.85", "0.95", true},
		{"float32 field", entities.OperatorGreaterThan, "0.50", float32(0.75), true},
		{"non-numeric field fails closed", entities.OperatorGreaterThan, "10", "lots", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []entities.AlertCondition{
				{Field: FieldStockQuantity, Operator: tt.operator, Value: tt.value},
			}
			matched, err := EvaluateConditions(conds, Snapshot{FieldStockQuantity: tt.fieldVal})
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestEvaluateConditions_Between(t *testing.T) {
	tests := []struct {
		name     string
		fieldVal any
		want     bool
	}{
		{"inside range", 50, true},
		{"at lower bound", 10, true},
		{"at upper bound", 100, true},
		{"below range", 9.99, false},
		{"above range", 100.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds := []entities.AlertCondition{
				{Field: FieldOrderValue, Operator: entities.OperatorBetween, Value: "10", SecondValue: "100"},
			}
			matched, err := EvaluateConditions(conds, Snapshot{FieldOrderValue: tt.fieldVal})
			require.NoError(t, err)
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestEvaluateConditions_AndLogic(t *testing.T) {
	conds := []entities.AlertCondition{
		{Field: FieldStockQuantity, Operator: entities.OperatorLessThan, Value: "10"},
		{Field: FieldWarehouse, Operator: entities.OperatorEquals, Value: "east"},
	}

	matched, err := EvaluateConditions(conds, Snapshot{
		FieldStockQuantity: 5,
		FieldWarehouse:     "EAST",
	})
	require.NoError(t, err)
	assert.True(t, matched, "all conditions hold")

	matched, err = EvaluateConditions(conds, Snapshot{
		FieldStockQuantity: 5,
		FieldWarehouse:     "west",
	})
	require.NoError(t, err)
	assert.False(t, matched, "one failing condition fails the rule")
}

func TestEvaluateConditions_MissingFieldFailsClosed(t *testing.T) {
	conds := []entities.AlertCondition{
		{Field: FieldStockQuantity, Operator: entities.OperatorLessThan, Value: "10"},
		{Field: FieldWarehouse, Operator: entities.OperatorEquals, Value: "east"},
	}

	matched, err := EvaluateConditions(conds, Snapshot{FieldStockQuantity: 5})
	assert.False(t, matched)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryEvaluation, errors.CategoryOf(err))
	assert.Contains(t, err.Error(), FieldWarehouse)
}

func TestEvaluateConditions_UnknownOperator(t *testing.T) {
	conds := []entities.AlertCondition{
		{Field: FieldStockQuantity, Operator: "matches", Value: "10"},
	}
	matched, err := EvaluateConditions(conds, Snapshot{FieldStockQuantity: 5})
	require.NoError(t, err)
	assert.False(t, matched, "unknown operator fails closed")
}
