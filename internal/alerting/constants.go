// Package alerting provides the rule evaluation engine: condition matching,
// per-rule throttling, and trigger scheduling.
package alerting

// Snapshot field names for the business metrics the dashboard feeds in.
// Rules may reference any field name; these are the ones the UI offers.
const (
	FieldStockQuantity = "stock_quantity"
	FieldReorderPoint  = "reorder_point"
	FieldDeadStockDays = "dead_stock_days"
	FieldProductName   = "product_name"
	FieldWarehouse     = "warehouse"

	FieldRevenue    = "revenue"
	FieldOrderCount = "order_count"
	FieldOrderValue = "order_value"

	FieldLeadTimeDays = "lead_time_days"
	FieldOnTimeRate   = "on_time_rate"
	FieldSupplierName = "supplier_name"
	FieldOpenPOCount  = "open_po_count"

	FieldErrorRate  = "error_rate"
	FieldQueueDepth = "queue_depth"
)
