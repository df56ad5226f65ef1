package alerting

import "github.com/opsdeck/opsdeck-go/internal/datastore/entities"

// Schema describes the full catalog of alertable categories, fields,
// operators and delivery channels for the rule builder UI.
type Schema struct {
	Categories  []CategorySchema `json:"categories"`
	Operators   []OperatorSchema `json:"operators"`
	Channels    []string         `json:"channels"`
	Priorities  []string         `json:"priorities"`
	Frequencies []string         `json:"frequencies"`
}

// CategorySchema describes a rule category and its available metric fields.
type CategorySchema struct {
	Name   string        `json:"name"`
	Label  string        `json:"label"`
	Fields []FieldSchema `json:"fields"`
}

// FieldSchema describes a metric field available for condition building.
type FieldSchema struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Type      string   `json:"type"` // "string" or "number"
	Unit      string   `json:"unit,omitempty"`
	Operators []string `json:"operators"`
}

// OperatorSchema describes an operator for the UI.
type OperatorSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"` // "string", "number", or "all"
}

// stringOperators are operators valid for string fields.
var stringOperators = []string{
	entities.OperatorEquals, entities.OperatorNotEquals,
	entities.OperatorContains, entities.OperatorNotContains,
}

// numericOperators are operators valid for numeric fields.
var numericOperators = []string{
	entities.OperatorEquals, entities.OperatorNotEquals,
	entities.OperatorGreaterThan, entities.OperatorLessThan,
	entities.OperatorBetween,
}

// GetSchema returns the full alerting schema for the UI.
func GetSchema() Schema {
	return Schema{
		Categories: []CategorySchema{
			{
				Name:  entities.CategoryInventory,
				Label: "Inventory",
				Fields: []FieldSchema{
					{Name: FieldStockQuantity, Label: "Stock Quantity", Type: "number", Unit: "units", Operators: numericOperators},
					{Name: FieldReorderPoint, Label: "Reorder Point", Type: "number", Unit: "units", Operators: numericOperators},
					{Name: FieldDeadStockDays, Label: "Days Without Movement", Type: "number", Unit: "days", Operators: numericOperators},
					{Name: FieldProductName, Label: "Product Name", Type: "string", Operators: stringOperators},
					{Name: FieldWarehouse, Label: "Warehouse", Type: "string", Operators: stringOperators},
				},
			},
			{
				Name:  entities.CategorySales,
				Label: "Sales",
				Fields: []FieldSchema{
					{Name: FieldRevenue, Label: "Revenue", Type: "number", Unit: "currency", Operators: numericOperators},
					{Name: FieldOrderCount, Label: "Order Count", Type: "number", Operators: numericOperators},
					{Name: FieldOrderValue, Label: "Order Value", Type: "number", Unit: "currency", Operators: numericOperators},
				},
			},
			{
				Name:  entities.CategorySupplyChain,
				Label: "Supply Chain",
				Fields: []FieldSchema{
					{Name: FieldLeadTimeDays, Label: "Lead Time", Type: "number", Unit: "days", Operators: numericOperators},
					{Name: FieldOnTimeRate, Label: "On-Time Delivery Rate", Type: "number", Unit: "%", Operators: numericOperators},
					{Name: FieldSupplierName, Label: "Supplier Name", Type: "string", Operators: stringOperators},
					{Name: FieldOpenPOCount, Label: "Open Purchase Orders", Type: "number", Operators: numericOperators},
				},
			},
			{
				Name:  entities.CategorySystem,
				Label: "System",
				Fields: []FieldSchema{
					{Name: FieldErrorRate, Label: "Error Rate", Type: "number", Unit: "%", Operators: numericOperators},
					{Name: FieldQueueDepth, Label: "Queue Depth", Type: "number", Operators: numericOperators},
				},
			},
		},
		Operators: []OperatorSchema{
			{Name: entities.OperatorEquals, Label: "equals", Type: "all"},
			{Name: entities.OperatorNotEquals, Label: "does not equal", Type: "all"},
			{Name: entities.OperatorGreaterThan, Label: "greater than", Type: "number"},
			{Name: entities.OperatorLessThan, Label: "less than", Type: "number"},
			{Name: entities.OperatorContains, Label: "contains", Type: "string"},
			{Name: entities.OperatorNotContains, Label: "does not contain", Type: "string"},
			{Name: entities.OperatorBetween, Label: "between", Type: "number"},
		},
		Channels: entities.Channels,
		Priorities: []string{
			entities.PriorityLow, entities.PriorityMedium,
			entities.PriorityHigh, entities.PriorityCritical,
		},
		Frequencies: []string{
			entities.FrequencyImmediate, entities.FrequencyDaily,
			entities.FrequencyWeekly, entities.FrequencyMonthly,
		},
	}
}
