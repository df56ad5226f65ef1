package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.NotEmpty(t, rules, "should have default rules")

	for i := range rules {
		rule := &rules[i]
		assert.True(t, rule.IsActive, "default rules should be active: %s", rule.Name)
		assert.True(t, rule.BuiltIn, "default rules should be marked built-in: %s", rule.Name)
		assert.NotEmpty(t, rule.Actions, "rule must have at least one action: %s", rule.Name)
		assert.NoError(t, rule.Validate(), "default rule must pass validation: %s", rule.Name)
	}
}

func TestDefaultRules_UniqueNames(t *testing.T) {
	rules := DefaultRules()
	names := make(map[string]bool, len(rules))
	for _, rule := range rules {
		assert.False(t, names[rule.Name], "duplicate rule name: %s", rule.Name)
		names[rule.Name] = true
	}
}
