package entities

import "time"

// ThrottleWindow persists a rule's sliding suppression window so throttling
// stays correct across process restarts. One row per rule.
type ThrottleWindow struct {
	RuleID        uint      `gorm:"primaryKey" json:"rule_id"`
	WindowStart   time.Time `gorm:"not null" json:"window_start"`
	WindowDurSec  int64     `gorm:"not null" json:"window_dur_sec"`
	AdmittedCount int       `gorm:"not null;default:0" json:"admitted_count"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ThrottleWindow) TableName() string {
	return "throttle_windows"
}

// Duration returns the window length.
func (w *ThrottleWindow) Duration() time.Duration {
	return time.Duration(w.WindowDurSec) * time.Second
}

// Expired reports whether the window has fully elapsed at the given time.
func (w *ThrottleWindow) Expired(now time.Time) bool {
	return !now.Before(w.WindowStart.Add(w.Duration()))
}
