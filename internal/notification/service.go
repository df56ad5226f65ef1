// Package notification provides the in-app notification center: a bounded
// in-memory store with subscriber streaming, serving the in_app delivery
// channel and delivery-failure escalations.
package notification

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// Type classifies a notification for the UI.
type Type string

const (
	TypeInfo       Type = "info"
	TypeAlert      Type = "alert"
	TypeEscalation Type = "escalation"
	TypeSystem     Type = "system"
)

// Priority mirrors alert rule priorities.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Notification is one in-app notification center entry.
type Notification struct {
	ID           string         `json:"id"`
	Type         Type           `json:"type"`
	Priority     Priority       `json:"priority"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Read         bool           `json:"read"`
	Acknowledged bool           `json:"acknowledged"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewNotification creates a notification with a fresh ID and timestamp.
func NewNotification(typ Type, priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ErrNotificationNotFound is returned for lookups of unknown IDs.
var ErrNotificationNotFound = errors.New("notification not found")

const (
	// defaultMaxNotifications bounds the in-memory store; the oldest entries
	// are evicted beyond this.
	defaultMaxNotifications = 1000
	// subscriberBufferSize is the per-subscriber channel capacity. Slow
	// subscribers miss broadcasts rather than blocking Create.
	subscriberBufferSize = 64
)

// ServiceConfig controls the in-memory store.
type ServiceConfig struct {
	MaxNotifications int
}

// DefaultServiceConfig returns the default configuration.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{MaxNotifications: defaultMaxNotifications}
}

// Service is the in-app notification center.
type Service struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
	subscribers   map[int]chan *Notification
	nextSubID     int
	config        *ServiceConfig
}

// NewService creates a notification service. A nil config selects defaults.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.MaxNotifications <= 0 {
		config.MaxNotifications = defaultMaxNotifications
	}
	return &Service{
		notifications: make(map[string]*Notification),
		subscribers:   make(map[int]chan *Notification),
		config:        config,
	}
}

// Create stores a new notification and broadcasts it to subscribers.
func (s *Service) Create(typ Type, priority Priority, title, message string) (*Notification, error) {
	return s.CreateWithMetadata(typ, priority, title, message, nil)
}

// CreateWithMetadata stores a new notification carrying extra context
// (rule ID, channel, record ID) and broadcasts it.
func (s *Service) CreateWithMetadata(typ Type, priority Priority, title, message string, metadata map[string]any) (*Notification, error) {
	if title == "" && message == "" {
		return nil, errors.Newf(errors.CategoryValidation, "notification needs a title or message")
	}
	n := NewNotification(typ, priority, title, message)
	n.Metadata = metadata

	s.mu.Lock()
	s.notifications[n.ID] = n
	s.evictLocked()
	subs := make([]chan *Notification, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- n:
		default:
			// Subscriber buffer full; drop rather than block.
		}
	}
	return n, nil
}

// evictLocked removes the oldest notifications beyond the store bound.
// Caller holds s.mu.
func (s *Service) evictLocked() {
	excess := len(s.notifications) - s.config.MaxNotifications
	if excess <= 0 {
		return
	}
	all := make([]*Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	for i := range excess {
		delete(s.notifications, all[i].ID)
	}
}

// Get returns a notification by ID.
func (s *Service) Get(id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

// List returns notifications newest first. A limit <= 0 returns all;
// unreadOnly filters to unread entries. The second return is the total count
// after filtering, before pagination.
func (s *Service) List(limit, offset int, unreadOnly bool) ([]*Notification, int) {
	s.mu.RLock()
	all := make([]*Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	total := len(all)
	if offset >= total {
		return nil, total
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks a notification as read.
func (s *Service) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

// MarkAcknowledged marks a notification as acknowledged (and read).
func (s *Service) MarkAcknowledged(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Acknowledged = true
	n.Read = true
	return nil
}

// Delete removes a notification.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(s.notifications, id)
	return nil
}

// Subscribe returns a channel receiving future notifications and an
// unsubscribe function. The channel is closed on unsubscribe.
func (s *Service) Subscribe() (<-chan *Notification, func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan *Notification, subscriberBufferSize)
	s.subscribers[id] = ch
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}
