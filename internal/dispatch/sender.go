// Package dispatch fans admitted triggers out to delivery channels: it
// renders notification content, creates one tracked record per channel and
// recipient, and hands sends to per-channel providers through a bounded
// worker pool.
package dispatch

import (
	"context"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

// SendResult reports a provider's acceptance of a send.
type SendResult struct {
	// ProviderID is the provider-side identifier for the send, used to
	// correlate delivery callbacks. Empty when the provider has none.
	ProviderID string
}

// Sender is a per-channel delivery provider.
type Sender interface {
	// Send hands one notification to the provider. A nil error means the
	// provider accepted the send; delivery confirmation arrives later via
	// callbacks.
	Send(ctx context.Context, rec *entities.NotificationRecord) (SendResult, error)

	// Channel returns the delivery channel this sender handles.
	Channel() string
}

// Registry manages senders keyed by channel.
type Registry struct {
	senders map[string]Sender
}

// NewRegistry creates an empty sender registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[string]Sender)}
}

// Register registers a sender for its channel, replacing any previous one.
func (r *Registry) Register(sender Sender) {
	r.senders[sender.Channel()] = sender
}

// Get retrieves the sender for a channel.
func (r *Registry) Get(channel string) (Sender, bool) {
	sender, ok := r.senders[channel]
	return sender, ok
}

// Channels returns all registered channels.
func (r *Registry) Channels() []string {
	channels := make([]string, 0, len(r.senders))
	for ch := range r.senders {
		channels = append(channels, ch)
	}
	return channels
}
