package entities

import "time"

// Delivery channels.
const (
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
	ChannelPush    = "push"
	ChannelWebhook = "webhook"
	ChannelInApp   = "in_app"
)

// Channels lists all valid delivery channels.
var Channels = []string{ChannelEmail, ChannelSMS, ChannelPush, ChannelWebhook, ChannelInApp}

// ValidChannel reports whether ch names a known delivery channel.
func ValidChannel(ch string) bool {
	for _, c := range Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Notification delivery statuses. Pending and Sent are transient; Bounced is
// retryable; Read and Failed are terminal.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusBounced   = "bounced"
	StatusFailed    = "failed"
)

// TerminalStatus reports whether a notification in this status can never
// transition again.
func TerminalStatus(status string) bool {
	return status == StatusRead || status == StatusFailed
}

// NotificationRecord tracks one notification through its delivery lifecycle.
// Created by the dispatch router, owned by the delivery tracker afterwards;
// append-only except for status, timestamps, failure reason and retry count.
type NotificationRecord struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	TriggerEventID string `gorm:"size:36;not null;index" json:"trigger_event_id"`
	RuleID         uint   `gorm:"not null;index" json:"rule_id"`
	RuleName       string `gorm:"size:255;default:''" json:"rule_name"`
	Category       string `gorm:"size:50;default:'';index" json:"category"`
	Priority       string `gorm:"size:20;default:'medium'" json:"priority"`
	Channel        string `gorm:"size:20;not null;index" json:"channel"`
	Recipient      string `gorm:"size:255;not null" json:"recipient"`
	Title          string `gorm:"size:500;default:''" json:"title"`
	Body           string `gorm:"type:text;default:''" json:"body"`

	Status        string     `gorm:"size:20;not null;index" json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	ReadAt        *time.Time `json:"read_at"`
	FailureReason string     `gorm:"size:1000;default:''" json:"failure_reason,omitempty"`
	RetryCount    int        `gorm:"not null;default:0" json:"retry_count"`
	Cost          float64    `gorm:"not null;default:0" json:"cost"`

	// ProviderID is the channel provider's identifier for this send, used to
	// correlate delivery callbacks.
	ProviderID string `gorm:"size:255;default:'';index" json:"provider_id,omitempty"`

	// PendingRead buffers a read receipt that arrived before the delivery
	// confirmation; it is applied once Delivered lands.
	PendingRead *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (NotificationRecord) TableName() string {
	return "notification_records"
}
