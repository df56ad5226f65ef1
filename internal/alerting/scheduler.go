package alerting

import (
	"sync"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/logger"
)

const (
	// defaultSchedulerInterval is how often the scheduler wakes up to check
	// which scheduled rules are due.
	defaultSchedulerInterval = 1 * time.Minute
)

// Scheduler re-evaluates daily, weekly and monthly rules on their cadence.
// Immediate rules are evaluated by the engine as snapshots arrive; scheduled
// rules are evaluated here against the engine's last-known field values.
type Scheduler struct {
	engine *Engine
	log    logger.Logger

	interval time.Duration

	// Last evaluation time per rule, in memory. After a restart every
	// scheduled rule is due on the first tick, which is the behavior we
	// want: a rule cannot silently miss its window across restarts.
	lastRun map[uint]time.Time
	mu      sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a scheduler driving the given engine. An interval
// <= 0 selects the default.
func NewScheduler(engine *Engine, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSchedulerInterval
	}
	return &Scheduler{
		engine:   engine,
		log:      log,
		interval: interval,
		lastRun:  make(map[uint]time.Time),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler goroutine.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop signals the scheduler to exit and waits for the goroutine to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.Tick(now)
		case <-s.stopCh:
			return
		}
	}
}

// Tick evaluates every scheduled rule that is due at the given time.
// Exposed for tests; Start drives it from a ticker.
func (s *Scheduler) Tick(now time.Time) {
	for _, rule := range s.engine.ActiveRules() {
		if rule.ScheduleFrequency == entities.FrequencyImmediate {
			continue
		}
		if !s.due(&rule, now) {
			continue
		}
		s.markRun(rule.ID, now)
		s.log.Debug("evaluating scheduled rule",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.String("frequency", rule.ScheduleFrequency))
		s.engine.EvaluateRuleNow(&rule, now)
	}
}

func (s *Scheduler) due(rule *entities.AlertRule, now time.Time) bool {
	s.mu.Lock()
	last, seen := s.lastRun[rule.ID]
	s.mu.Unlock()
	if !seen {
		return true
	}
	return !now.Before(nextRun(rule.ScheduleFrequency, last))
}

func (s *Scheduler) markRun(ruleID uint, at time.Time) {
	s.mu.Lock()
	s.lastRun[ruleID] = at
	s.mu.Unlock()
}

// nextRun returns the earliest time a rule with the given frequency is due
// again after an evaluation at last. Monthly follows calendar months via
// AddDate, which normalizes end-of-month dates forward.
func nextRun(frequency string, last time.Time) time.Time {
	switch frequency {
	case entities.FrequencyDaily:
		return last.AddDate(0, 0, 1)
	case entities.FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case entities.FrequencyMonthly:
		return last.AddDate(0, 1, 0)
	default:
		return last
	}
}
