package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/delivery"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/notification"
	"github.com/opsdeck/opsdeck-go/internal/stats"
)

// mockRuleRepo is an in-memory AlertRuleRepository.
type mockRuleRepo struct {
	mu     sync.Mutex
	rules  map[uint]*entities.AlertRule
	events map[uint][]entities.TriggerEvent
	nextID uint
	seqs   map[uint]int64
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{
		rules:  make(map[uint]*entities.AlertRule),
		events: make(map[uint][]entities.TriggerEvent),
		seqs:   make(map[uint]int64),
	}
}

func (m *mockRuleRepo) ListRules(_ context.Context, filter repository.AlertRuleFilter) ([]entities.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.AlertRule
	for _, rule := range m.rules {
		if filter.Category != "" && rule.Category != filter.Category {
			continue
		}
		if filter.Priority != "" && rule.Priority != filter.Priority {
			continue
		}
		if filter.IsActive != nil && rule.IsActive != *filter.IsActive {
			continue
		}
		if filter.BuiltIn != nil && rule.BuiltIn != *filter.BuiltIn {
			continue
		}
		out = append(out, *rule)
	}
	return out, nil
}

func (m *mockRuleRepo) GetRule(_ context.Context, id uint) (*entities.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, repository.ErrAlertRuleNotFound
	}
	cp := *rule
	return &cp, nil
}

func (m *mockRuleRepo) CreateRule(_ context.Context, rule *entities.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rule.ID = m.nextID
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *mockRuleRepo) UpdateRule(_ context.Context, rule *entities.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return repository.ErrAlertRuleNotFound
	}
	cp := *rule
	m.rules[rule.ID] = &cp
	return nil
}

func (m *mockRuleRepo) DeleteRule(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return repository.ErrAlertRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *mockRuleRepo) ToggleRule(_ context.Context, id uint, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return repository.ErrAlertRuleNotFound
	}
	rule.IsActive = active
	return nil
}

func (m *mockRuleRepo) GetActiveRules(ctx context.Context) ([]entities.AlertRule, error) {
	active := true
	return m.ListRules(ctx, repository.AlertRuleFilter{IsActive: &active})
}

func (m *mockRuleRepo) DeleteBuiltInRules(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rule := range m.rules {
		if rule.BuiltIn {
			delete(m.rules, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRuleRepo) CountRulesByName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rule := range m.rules {
		if rule.Name == name {
			n++
		}
	}
	return n, nil
}

func (m *mockRuleRepo) NextTriggerSeq(_ context.Context, ruleID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[ruleID]++
	return m.seqs[ruleID], nil
}

func (m *mockRuleRepo) RecordTrigger(_ context.Context, ruleID uint, at time.Time, suppressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[ruleID]
	if !ok {
		return repository.ErrAlertRuleNotFound
	}
	rule.TriggerCount++
	if !suppressed {
		t := at
		rule.LastTriggeredAt = &t
	}
	return nil
}

func (m *mockRuleRepo) SaveTriggerEvent(_ context.Context, event *entities.TriggerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.RuleID] = append(m.events[event.RuleID], *event)
	return nil
}

func (m *mockRuleRepo) ListTriggerEvents(_ context.Context, filter repository.TriggerEventFilter) ([]entities.TriggerEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.TriggerEvent
	for _, event := range m.events[filter.RuleID] {
		if filter.Suppressed != nil && event.Suppressed != *filter.Suppressed {
			continue
		}
		out = append(out, event)
	}
	return out, int64(len(out)), nil
}

func (m *mockRuleRepo) DeleteTriggerEventsBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// mockThrottleRepo is an in-memory ThrottleRepository.
type mockThrottleRepo struct {
	mu      sync.Mutex
	windows map[uint]*entities.ThrottleWindow
}

func newMockThrottleRepo() *mockThrottleRepo {
	return &mockThrottleRepo{windows: make(map[uint]*entities.ThrottleWindow)}
}

func (m *mockThrottleRepo) Get(_ context.Context, ruleID uint) (*entities.ThrottleWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[ruleID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *mockThrottleRepo) Put(_ context.Context, window *entities.ThrottleWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *window
	m.windows[window.RuleID] = &cp
	return nil
}

func (m *mockThrottleRepo) Delete(_ context.Context, ruleID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, ruleID)
	return nil
}

// mockNotificationRepo is an in-memory NotificationRepository.
type mockNotificationRepo struct {
	mu      sync.Mutex
	records map[string]*entities.NotificationRecord
}

func newMockNotificationRepo(recs ...*entities.NotificationRecord) *mockNotificationRepo {
	m := &mockNotificationRepo{records: make(map[string]*entities.NotificationRecord)}
	for _, rec := range recs {
		cp := *rec
		m.records[rec.ID] = &cp
	}
	return m
}

func (m *mockNotificationRepo) Create(_ context.Context, rec *entities.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) Get(_ context.Context, id string) (*entities.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotificationNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockNotificationRepo) GetByProviderID(_ context.Context, providerID string) (*entities.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ProviderID == providerID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotificationNotFound
}

func (m *mockNotificationRepo) Update(_ context.Context, rec *entities.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return repository.ErrNotificationNotFound
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) List(_ context.Context, filter repository.NotificationFilter) ([]entities.NotificationRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.NotificationRecord
	for _, rec := range m.records {
		if filter.Channel != "" && rec.Channel != filter.Channel {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Category != "" && rec.Category != filter.Category {
			continue
		}
		if filter.RuleID > 0 && rec.RuleID != filter.RuleID {
			continue
		}
		out = append(out, *rec)
	}
	total := int64(len(out))
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockNotificationRepo) ListStuckSent(_ context.Context, _ time.Time, _ int) ([]entities.NotificationRecord, error) {
	return nil, nil
}

func (m *mockNotificationRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	return nil, nil
}

func (m *mockNotificationRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// fixture bundles the controller under test with its backing mocks.
type fixture struct {
	echo      *echo.Echo
	ruleRepo  *mockRuleRepo
	notifRepo *mockNotificationRepo
	engine    *alerting.Engine
	bus       *alerting.SnapshotBus
	tracker   *delivery.Tracker
	notifier  *notification.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)

	ruleRepo := newMockRuleRepo()
	notifRepo := newMockNotificationRepo()
	throttle := alerting.NewThrottleController(newMockThrottleRepo(), log)
	engine := alerting.NewEngine(ruleRepo, throttle, nil, log)
	bus := alerting.NewSnapshotBus(16)
	bus.Subscribe(engine.HandleSnapshot)
	t.Cleanup(bus.Stop)
	notifier := notification.NewService(notification.DefaultServiceConfig())
	tracker := delivery.NewTracker(notifRepo, nil, notifier, delivery.Config{
		MaxRetries:     2,
		Timeout:        time.Minute,
		ScanInterval:   time.Hour,
		InitialBackoff: time.Millisecond,
	}, log)
	t.Cleanup(tracker.Stop)
	aggregator := stats.NewAggregator(notifRepo, time.Minute, log)

	e := echo.New()
	New(e, &Options{
		RuleRepo:         ruleRepo,
		NotificationRepo: notifRepo,
		Engine:           engine,
		Bus:              bus,
		Tracker:          tracker,
		Stats:            aggregator,
		Notifier:         notifier,
		Logger:           log,
	})

	return &fixture{
		echo:      e,
		ruleRepo:  ruleRepo,
		notifRepo: notifRepo,
		engine:    engine,
		bus:       bus,
		tracker:   tracker,
		notifier:  notifier,
	}
}

// request performs an HTTP request against the fixture's router.
func (f *fixture) request(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedRule(t *testing.T, rule *entities.AlertRule) *entities.AlertRule {
	t.Helper()
	require.NoError(t, f.ruleRepo.CreateRule(context.Background(), rule))
	require.NoError(t, f.engine.RefreshRules(context.Background()))
	return rule
}

func validRule(name string) *entities.AlertRule {
	return &entities.AlertRule{
		Name:              name,
		Category:          entities.CategoryInventory,
		Priority:          entities.PriorityHigh,
		IsActive:          true,
		ScheduleFrequency: entities.FrequencyImmediate,
		Channels:          []string{entities.ChannelEmail},
		Recipients:        []string{"ops@example.com"},
		Conditions: []entities.AlertCondition{
			{Field: "stock_quantity", Operator: entities.OperatorLessThan, Value: "10"},
		},
	}
}
