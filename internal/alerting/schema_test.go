package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func TestGetSchema_AllCategoriesPresent(t *testing.T) {
	schema := GetSchema()
	names := make([]string, len(schema.Categories))
	for i, c := range schema.Categories {
		names[i] = c.Name
	}
	assert.ElementsMatch(t, []string{
		entities.CategoryInventory, entities.CategorySales,
		entities.CategorySupplyChain, entities.CategorySystem,
	}, names)
}

func TestGetSchema_AllOperatorsPresent(t *testing.T) {
	schema := GetSchema()
	names := make([]string, len(schema.Operators))
	for i, op := range schema.Operators {
		names[i] = op.Name
	}
	assert.ElementsMatch(t, entities.Operators, names)
}

func TestGetSchema_FieldsHaveValidOperators(t *testing.T) {
	schema := GetSchema()
	validOps := make(map[string]bool, len(entities.Operators))
	for _, op := range entities.Operators {
		validOps[op] = true
	}
	for _, cat := range schema.Categories {
		require.NotEmpty(t, cat.Fields, "category %s has no fields", cat.Name)
		for _, field := range cat.Fields {
			require.NotEmpty(t, field.Operators, "field %s in category %s has no operators", field.Name, cat.Name)
			for _, op := range field.Operators {
				assert.True(t, validOps[op], "invalid operator %q for field %s", op, field.Name)
			}
			switch field.Type {
			case "string":
				assert.NotContains(t, field.Operators, entities.OperatorBetween,
					"between is numeric-only, field %s", field.Name)
			case "number":
			default:
				t.Errorf("field %s has unknown type %q", field.Name, field.Type)
			}
		}
	}
}

func TestGetSchema_ChannelsAndVocabulary(t *testing.T) {
	schema := GetSchema()
	assert.ElementsMatch(t, entities.Channels, schema.Channels)
	assert.ElementsMatch(t, []string{
		entities.PriorityLow, entities.PriorityMedium,
		entities.PriorityHigh, entities.PriorityCritical,
	}, schema.Priorities)
	assert.ElementsMatch(t, []string{
		entities.FrequencyImmediate, entities.FrequencyDaily,
		entities.FrequencyWeekly, entities.FrequencyMonthly,
	}, schema.Frequencies)
}

func TestGetSchema_LabelsNotEmpty(t *testing.T) {
	schema := GetSchema()
	for _, cat := range schema.Categories {
		assert.NotEmpty(t, cat.Label, "category %s has empty label", cat.Name)
		for _, field := range cat.Fields {
			assert.NotEmpty(t, field.Label, "field %s has empty label", field.Name)
		}
	}
}
