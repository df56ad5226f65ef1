package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/logger"
)

// ThrottleController maintains one sliding suppression window per rule.
// The first admission starts the window; attempts within the window interval
// are suppressed; the first attempt after the window has fully elapsed starts
// a new window. Windows are persisted so suppression survives restarts.
type ThrottleController struct {
	repo repository.ThrottleRepository
	log  logger.Logger

	mu      sync.Mutex
	windows map[uint]*entities.ThrottleWindow
}

// NewThrottleController creates a ThrottleController backed by the given
// repository.
func NewThrottleController(repo repository.ThrottleRepository, log logger.Logger) *ThrottleController {
	return &ThrottleController{
		repo:    repo,
		log:     log,
		windows: make(map[uint]*entities.ThrottleWindow),
	}
}

// Admit decides whether a fired rule may dispatch at the given time.
// Rules without throttling always admit. Calls inside an open window are
// suppressed; the first call at or after window expiry starts a new window
// and is admitted.
func (t *ThrottleController) Admit(ctx context.Context, rule *entities.AlertRule, now time.Time) (bool, error) {
	if !rule.ThrottleEnabled {
		return true, nil
	}
	interval := rule.ThrottleWindowDuration()
	if interval <= 0 {
		return true, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	window, err := t.loadWindowLocked(ctx, rule.ID)
	if err != nil {
		// Persistence trouble must not wedge alerting; fall back to the
		// in-memory view and keep going.
		t.log.Error("failed to load throttle window",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
		window = t.windows[rule.ID]
	}

	if window != nil && !window.Expired(now) {
		return false, nil
	}

	window = &entities.ThrottleWindow{
		RuleID:        rule.ID,
		WindowStart:   now,
		WindowDurSec:  int64(interval / time.Second),
		AdmittedCount: 1,
	}
	t.windows[rule.ID] = window
	if err := t.repo.Put(ctx, window); err != nil {
		t.log.Error("failed to persist throttle window",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
	}
	return true, nil
}

// loadWindowLocked returns the cached window, falling back to the repository
// on a cache miss. Caller holds t.mu.
func (t *ThrottleController) loadWindowLocked(ctx context.Context, ruleID uint) (*entities.ThrottleWindow, error) {
	if window, ok := t.windows[ruleID]; ok {
		return window, nil
	}
	window, err := t.repo.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if window != nil {
		t.windows[ruleID] = window
	}
	return window, nil
}

// Forget drops the rule's window from cache and storage. Called when a rule
// is deleted or its throttle reconfigured.
func (t *ThrottleController) Forget(ctx context.Context, ruleID uint) {
	t.mu.Lock()
	delete(t.windows, ruleID)
	t.mu.Unlock()
	if err := t.repo.Delete(ctx, ruleID); err != nil {
		t.log.Warn("failed to delete throttle window",
			logger.Uint64("rule_id", uint64(ruleID)),
			logger.Error(err))
	}
}
