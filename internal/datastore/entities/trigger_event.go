package entities

import "time"

// TriggerEvent is the immutable record of a rule firing. Seq increases
// monotonically per rule and gives triggers a total order for idempotent
// re-processing. Suppressed triggers are recorded but never dispatched.
type TriggerEvent struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	RuleID     uint      `gorm:"not null;index:idx_trigger_rule_seq,priority:1" json:"rule_id"`
	Seq        int64     `gorm:"not null;index:idx_trigger_rule_seq,priority:2,unique" json:"seq"`
	FiredAt    time.Time `gorm:"not null;index" json:"fired_at"`
	Snapshot   string    `gorm:"type:text;default:''" json:"snapshot"`
	Suppressed bool      `gorm:"not null;default:false" json:"suppressed"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (TriggerEvent) TableName() string {
	return "trigger_events"
}
