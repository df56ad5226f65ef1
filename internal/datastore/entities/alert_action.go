package entities

// AlertAction holds the content templates rendered into dispatched
// notifications. Templates use {{field}} placeholders substituted from the
// triggering snapshot and rule metadata; empty templates fall back to a
// generated default.
type AlertAction struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	RuleID          uint   `gorm:"not null;index" json:"rule_id"`
	TemplateTitle   string `gorm:"size:500;default:''" json:"template_title"`
	TemplateMessage string `gorm:"size:2000;default:''" json:"template_message"`
	SortOrder       int    `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name for GORM.
func (AlertAction) TableName() string {
	return "alert_actions"
}
