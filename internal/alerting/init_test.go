package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
)

func TestSeedDefaultRules_EmptyRepo(t *testing.T) {
	repo := newMockRepo()
	err := seedDefaultRules(t.Context(), repo, testLogger())
	require.NoError(t, err)

	assert.Len(t, repo.rules, len(DefaultRules()))
}

func TestSeedDefaultRules_AlreadySeeded(t *testing.T) {
	// Pre-populate with all default rules so seeding finds them by name.
	defaults := DefaultRules()
	existing := make([]entities.AlertRule, len(defaults))
	for i := range defaults {
		existing[i] = defaults[i]
		existing[i].ID = uint(i + 1) //nolint:gosec // test, no overflow risk
	}
	repo := newMockRepo(existing...)
	err := seedDefaultRules(t.Context(), repo, testLogger())
	require.NoError(t, err)

	assert.Len(t, repo.rules, len(defaults))
}

func TestInitialize_SeedsAndCreatesEngine(t *testing.T) {
	repo := newMockRepo()
	bus := NewSnapshotBus(0)
	defer bus.Stop()

	engine, err := Initialize(repo, newMockThrottleRepo(), bus, nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, engine)
	defer engine.Stop()

	assert.Len(t, repo.rules, len(DefaultRules()))
}

func TestInitialize_SeedsOnlyMissingDefaults(t *testing.T) {
	custom := lowStockRule(1)
	custom.Name = "Custom Rule"
	repo := newMockRepo(custom)
	bus := NewSnapshotBus(0)
	defer bus.Stop()

	engine, err := Initialize(repo, newMockThrottleRepo(), bus, nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, engine)
	defer engine.Stop()

	// Custom rule kept plus all defaults seeded (none matched by name).
	assert.Len(t, repo.rules, 1+len(DefaultRules()))
}

func TestInitialize_SubscribesToSnapshotBus(t *testing.T) {
	repo := newMockRepo()
	bus := NewSnapshotBus(0)
	defer bus.Stop()

	engine, err := Initialize(repo, newMockThrottleRepo(), bus, nil, testLogger())
	require.NoError(t, err)
	defer engine.Stop()

	bus.mu.RLock()
	handlerCount := len(bus.handlers)
	bus.mu.RUnlock()
	assert.Equal(t, 1, handlerCount)
}
