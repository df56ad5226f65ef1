package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func dailyRule(id uint) entities.AlertRule {
	rule := lowStockRule(id)
	rule.ScheduleFrequency = entities.FrequencyDaily
	return rule
}

func TestScheduler_EvaluatesDueRules(t *testing.T) {
	repo := newMockRepo(dailyRule(1))
	rec := &actionRecorder{}
	engine := newTestEngine(t, repo, rec)
	sched := NewScheduler(engine, time.Minute, testLogger())

	// Seed the engine's merged values through the snapshot path. The daily
	// rule is not evaluated there.
	engine.HandleSnapshot(&SnapshotEvent{Fields: Snapshot{FieldStockQuantity: 5}})
	require.Equal(t, 0, rec.count())

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sched.Tick(now)
	assert.Equal(t, 1, rec.count(), "rule is due on the first tick")

	sched.Tick(now.Add(time.Hour))
	assert.Equal(t, 1, rec.count(), "not due again within the same day")

	sched.Tick(now.AddDate(0, 0, 1))
	assert.Equal(t, 2, rec.count(), "due again a day later")
}

func TestScheduler_ImmediateRulesIgnored(t *testing.T) {
	repo := newMockRepo(lowStockRule(1))
	rec := &actionRecorder{}
	engine := newTestEngine(t, repo, rec)
	sched := NewScheduler(engine, time.Minute, testLogger())

	engine.HandleSnapshot(&SnapshotEvent{Fields: Snapshot{FieldStockQuantity: 5}})
	require.Equal(t, 1, rec.count())

	sched.Tick(time.Now())
	assert.Equal(t, 1, rec.count(), "immediate rules are not re-run by the scheduler")
}

func TestScheduler_StartStop(t *testing.T) {
	repo := newMockRepo()
	rec := &actionRecorder{}
	engine := newTestEngine(t, repo, rec)

	sched := NewScheduler(engine, 10*time.Millisecond, testLogger())
	sched.Start()
	sched.Stop()
	// Stop is idempotent.
	sched.Stop()
}

func TestNextRun(t *testing.T) {
	last := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		frequency string
		want      time.Time
	}{
		{"daily", entities.FrequencyDaily, last.AddDate(0, 0, 1)},
		{"weekly", entities.FrequencyWeekly, last.AddDate(0, 0, 7)},
		{"monthly", entities.FrequencyMonthly, last.AddDate(0, 1, 0)},
		{"immediate has no next run", entities.FrequencyImmediate, last},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRun(tt.frequency, last))
		})
	}
}
