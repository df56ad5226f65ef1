package alerting

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/observability/metrics"
)

const (
	// saveTriggerTimeout is the context deadline for persisting trigger
	// bookkeeping when a rule fires.
	saveTriggerTimeout = 3 * time.Second
	// cleanupTimeout is the context deadline for the periodic trigger
	// history deletion.
	cleanupTimeout = 5 * time.Second
	// cleanupInterval is how often the trigger cleanup goroutine runs.
	cleanupInterval = 1 * time.Hour
	// evalWorkers bounds how many rules one snapshot evaluates at once.
	evalWorkers = 8
)

// ActionFunc is called when a rule fires and the trigger is admitted by the
// throttle. Receives the rule, the persisted trigger event and the metric
// snapshot the rule matched against.
type ActionFunc func(rule *entities.AlertRule, trigger *entities.TriggerEvent, snapshot Snapshot)

// Engine evaluates metric snapshots against configured alert rules.
type Engine struct {
	repo       repository.AlertRuleRepository
	throttle   *ThrottleController
	actionFunc ActionFunc
	log        logger.Logger

	// Cached active rules plus an index from condition field name to the
	// rules referencing it. Refreshed on startup and rule mutations.
	rules      []entities.AlertRule
	fieldIndex map[string][]uint
	rulesMu    sync.RWMutex

	// Last known value per metric field. Snapshot events carry only the
	// fields that changed; the merged view is what conditions evaluate
	// against, and what scheduled re-evaluation uses.
	lastValues Snapshot
	valuesMu   sync.RWMutex

	// Per-rule evaluation locks so concurrent snapshots cannot interleave
	// the evaluate-throttle-record sequence for the same rule.
	flight   map[uint]*sync.Mutex
	flightMu sync.Mutex

	// Trigger history cleanup
	cleanupStop chan struct{}
}

// NewEngine creates a new alerting rules engine.
func NewEngine(repo repository.AlertRuleRepository, throttle *ThrottleController, actionFunc ActionFunc, log logger.Logger) *Engine {
	return &Engine{
		repo:       repo,
		throttle:   throttle,
		actionFunc: actionFunc,
		log:        log,
		fieldIndex: make(map[string][]uint),
		lastValues: make(Snapshot),
		flight:     make(map[uint]*sync.Mutex),
	}
}

// RefreshRules reloads active rules from the database and rebuilds the
// field index. Call this on startup and whenever rules are modified via API.
func (e *Engine) RefreshRules(ctx context.Context) error {
	rules, err := e.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}
	index := make(map[string][]uint)
	for i := range rules {
		for _, field := range rules[i].ConditionFields() {
			index[field] = append(index[field], rules[i].ID)
		}
	}
	e.rulesMu.Lock()
	e.rules = rules
	e.fieldIndex = index
	e.rulesMu.Unlock()
	return nil
}

// ActiveRules returns a copy of the cached active rules.
func (e *Engine) ActiveRules() []entities.AlertRule {
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	rules := make([]entities.AlertRule, len(e.rules))
	copy(rules, e.rules)
	return rules
}

// CurrentSnapshot returns a copy of the last known value for every metric
// field the engine has seen.
func (e *Engine) CurrentSnapshot() Snapshot {
	e.valuesMu.RLock()
	defer e.valuesMu.RUnlock()
	snapshot := make(Snapshot, len(e.lastValues))
	for k, v := range e.lastValues {
		snapshot[k] = v
	}
	return snapshot
}

// HandleSnapshot merges an incoming snapshot into the last-known values and
// evaluates every immediate rule whose conditions reference a field present in
// the event. Rules whose conditions touch none of the changed fields are
// skipped entirely. Evaluations fan out across a bounded worker pool so one
// slow rule's persistence cannot stall the rest; per-rule flight locks keep
// each rule's evaluate-throttle-record sequence serialized.
func (e *Engine) HandleSnapshot(event *SnapshotEvent) {
	if len(event.Fields) == 0 {
		return
	}

	e.valuesMu.Lock()
	for k, v := range event.Fields {
		e.lastValues[k] = v
	}
	e.valuesMu.Unlock()
	snapshot := e.CurrentSnapshot()

	e.rulesMu.RLock()
	touched := make(map[uint]bool)
	for field := range event.Fields {
		for _, ruleID := range e.fieldIndex[field] {
			touched[ruleID] = true
		}
	}
	rules := make([]entities.AlertRule, 0, len(touched))
	for i := range e.rules {
		if touched[e.rules[i].ID] {
			rules = append(rules, e.rules[i])
		}
	}
	e.rulesMu.RUnlock()

	var wg sync.WaitGroup
	sem := make(chan struct{}, evalWorkers)
	for i := range rules {
		rule := &rules[i]
		if rule.ScheduleFrequency != entities.FrequencyImmediate {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.evaluateRule(rule, snapshot, event.ReceivedAt)
		}()
	}
	wg.Wait()
}

// EvaluateRuleNow evaluates a single rule against the current merged
// snapshot, applying the full fire path (throttle, trigger bookkeeping,
// dispatch). Used by the scheduler for daily/weekly/monthly rules.
func (e *Engine) EvaluateRuleNow(rule *entities.AlertRule, now time.Time) {
	e.evaluateRule(rule, e.CurrentSnapshot(), now)
}

// TestEvaluate evaluates a rule's conditions against a sample snapshot
// without throttling, persistence or dispatch. Used by the test endpoint.
func (e *Engine) TestEvaluate(rule *entities.AlertRule, snapshot Snapshot) (bool, error) {
	return EvaluateConditions(rule.Conditions, snapshot)
}

func (e *Engine) evaluateRule(rule *entities.AlertRule, snapshot Snapshot, now time.Time) {
	mu := e.ruleLock(rule.ID)
	mu.Lock()
	defer mu.Unlock()

	matched, err := EvaluateConditions(rule.Conditions, snapshot)
	if err != nil {
		// Referenced field absent from the snapshot. The rule does not
		// match but this is not a rule failure, so log at debug only.
		e.log.Debug("rule evaluation incomplete",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
		return
	}
	if !matched {
		return
	}
	e.fireRule(rule, snapshot, now)
}

// ruleLock returns the single-flight mutex for a rule, creating it on first use.
func (e *Engine) ruleLock(ruleID uint) *sync.Mutex {
	e.flightMu.Lock()
	defer e.flightMu.Unlock()
	mu, ok := e.flight[ruleID]
	if !ok {
		mu = &sync.Mutex{}
		e.flight[ruleID] = mu
	}
	return mu
}

func (e *Engine) fireRule(rule *entities.AlertRule, snapshot Snapshot, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTriggerTimeout)
	defer cancel()

	admitted, err := e.throttle.Admit(ctx, rule, now)
	if err != nil {
		// Throttle state could not be read or written. Fail open so a
		// storage hiccup never silences an alert.
		e.log.Error("throttle check failed, admitting trigger",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
		admitted = true
	}

	seq, err := e.repo.NextTriggerSeq(ctx, rule.ID)
	if err != nil {
		e.log.Error("failed to allocate trigger sequence",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
		return
	}

	if err := e.repo.RecordTrigger(ctx, rule.ID, now, !admitted); err != nil {
		e.log.Error("failed to record trigger",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		e.log.Error("failed to marshal snapshot", logger.Error(err))
		snapshotJSON = []byte("{}")
	}
	trigger := &entities.TriggerEvent{
		ID:         uuid.NewString(),
		RuleID:     rule.ID,
		Seq:        seq,
		FiredAt:    now,
		Snapshot:   string(snapshotJSON),
		Suppressed: !admitted,
	}
	if err := e.repo.SaveTriggerEvent(ctx, trigger); err != nil {
		e.log.Error("failed to save trigger event",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Error(err))
	}

	if !admitted {
		metrics.TriggersTotal.WithLabelValues(rule.Category, "suppressed").Inc()
		e.log.Debug("trigger suppressed by throttle",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Int64("seq", seq))
		return
	}
	metrics.TriggersTotal.WithLabelValues(rule.Category, "admitted").Inc()

	if e.actionFunc != nil {
		e.actionFunc(rule, trigger, snapshot)
	}
}

// StartTriggerCleanup starts a background goroutine that periodically deletes
// trigger events older than retentionDays. A value of 0 disables cleanup.
func (e *Engine) StartTriggerCleanup(retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	// Stop any existing cleanup goroutine before starting a new one.
	e.stopCleanup()
	e.rulesMu.Lock()
	e.cleanupStop = make(chan struct{})
	stopCh := e.cleanupStop
	e.rulesMu.Unlock()
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cleanupTimeout)
				deleted, err := e.repo.DeleteTriggerEventsBefore(cleanupCtx, cutoff)
				cleanupCancel()
				if err != nil {
					e.log.Error("trigger event cleanup failed", logger.Error(err))
				} else if deleted > 0 {
					e.log.Info("trigger event cleanup completed",
						logger.Int64("deleted", deleted),
						logger.Int("retention_days", retentionDays))
				}
			case <-stopCh:
				return
			}
		}
	}()
}

// stopCleanup signals the cleanup goroutine to exit. Uses rulesMu to make
// the nil-check-then-close atomic, preventing double-close panics when
// Stop() and StartTriggerCleanup() race.
func (e *Engine) stopCleanup() {
	e.rulesMu.Lock()
	ch := e.cleanupStop
	e.cleanupStop = nil
	e.rulesMu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// Stop shuts down background goroutines (trigger cleanup).
func (e *Engine) Stop() {
	e.stopCleanup()
}
