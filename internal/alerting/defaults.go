package alerting

import (
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

// DefaultRules returns the built-in alert rules that ship with OpsDeck.
// These are seeded on first startup and can be restored via reset-defaults.
func DefaultRules() []entities.AlertRule {
	return []entities.AlertRule{
		{
			Name:              "Low stock",
			Description:       "Notifies when a product's stock falls below its reorder point",
			Category:          entities.CategoryInventory,
			RuleType:          "low_stock",
			Priority:          entities.PriorityHigh,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyImmediate,
			ThrottleEnabled:   true,
			ThrottleInterval:  4,
			ThrottleUnit:      entities.UnitHours,
			Channels:          []string{entities.ChannelInApp, entities.ChannelEmail},
			Recipients:        []string{"ops"},
			Conditions: []entities.AlertCondition{
				{Field: FieldStockQuantity, Operator: entities.OperatorLessThan, Value: "10", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "Low stock: {{product_name}}", TemplateMessage: "{{product_name}} at {{warehouse}} is down to {{stock_quantity}} units.", SortOrder: 0},
			},
		},
		{
			Name:              "Dead stock",
			Description:       "Notifies when a product has not moved for 90 days",
			Category:          entities.CategoryInventory,
			RuleType:          "dead_stock",
			Priority:          entities.PriorityLow,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyWeekly,
			ThrottleEnabled:   true,
			ThrottleInterval:  7,
			ThrottleUnit:      entities.UnitDays,
			Channels:          []string{entities.ChannelInApp},
			Recipients:        []string{"ops"},
			Conditions: []entities.AlertCondition{
				{Field: FieldDeadStockDays, Operator: entities.OperatorGreaterThan, Value: "90", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "Dead stock: {{product_name}}", TemplateMessage: "{{product_name}} has not moved in {{dead_stock_days}} days.", SortOrder: 0},
			},
		},
		{
			Name:              "Large order received",
			Description:       "Notifies when a single order exceeds 10,000 in value",
			Category:          entities.CategorySales,
			RuleType:          "large_order",
			Priority:          entities.PriorityMedium,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyImmediate,
			Channels:          []string{entities.ChannelInApp, entities.ChannelPush},
			Recipients:        []string{"sales"},
			Conditions: []entities.AlertCondition{
				{Field: FieldOrderValue, Operator: entities.OperatorGreaterThan, Value: "10000", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "Large order received", TemplateMessage: "An order worth {{order_value}} just came in.", SortOrder: 0},
			},
		},
		{
			Name:              "Supplier lead time breach",
			Description:       "Notifies when a supplier's lead time exceeds 21 days",
			Category:          entities.CategorySupplyChain,
			RuleType:          "lead_time_breach",
			Priority:          entities.PriorityHigh,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyDaily,
			ThrottleEnabled:   true,
			ThrottleInterval:  1,
			ThrottleUnit:      entities.UnitDays,
			Channels:          []string{entities.ChannelInApp, entities.ChannelEmail},
			Recipients:        []string{"procurement"},
			Conditions: []entities.AlertCondition{
				{Field: FieldLeadTimeDays, Operator: entities.OperatorGreaterThan, Value: "21", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "Lead time breach: {{supplier_name}}", TemplateMessage: "{{supplier_name}} lead time is {{lead_time_days}} days.", SortOrder: 0},
			},
		},
		{
			Name:              "On-time delivery rate low",
			Description:       "Notifies when a supplier's on-time rate drops below 80%",
			Category:          entities.CategorySupplyChain,
			RuleType:          "on_time_rate_low",
			Priority:          entities.PriorityMedium,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyWeekly,
			Channels:          []string{entities.ChannelInApp},
			Recipients:        []string{"procurement"},
			Conditions: []entities.AlertCondition{
				{Field: FieldOnTimeRate, Operator: entities.OperatorLessThan, Value: "80", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "On-time rate low: {{supplier_name}}", TemplateMessage: "{{supplier_name}} on-time delivery rate fell to {{on_time_rate}}%.", SortOrder: 0},
			},
		},
		{
			Name:              "Error rate spike",
			Description:       "Notifies when the platform error rate exceeds 5%",
			Category:          entities.CategorySystem,
			RuleType:          "error_rate_spike",
			Priority:          entities.PriorityCritical,
			IsActive:          true,
			BuiltIn:           true,
			ScheduleFrequency: entities.FrequencyImmediate,
			ThrottleEnabled:   true,
			ThrottleInterval:  15,
			ThrottleUnit:      entities.UnitMinutes,
			Channels:          []string{entities.ChannelInApp, entities.ChannelSMS},
			Recipients:        []string{"oncall"},
			Conditions: []entities.AlertCondition{
				{Field: FieldErrorRate, Operator: entities.OperatorGreaterThan, Value: "5", SortOrder: 0},
			},
			Actions: []entities.AlertAction{
				{TemplateTitle: "Error rate spike", TemplateMessage: "Platform error rate is at {{error_rate}}%.", SortOrder: 0},
			},
		},
	}
}
