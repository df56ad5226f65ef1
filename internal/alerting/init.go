package alerting

import (
	"context"

	"github.com/opsdeck/opsdeck-go/internal/conf"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/logger"
)

// Initialize creates and starts the alerting engine.
// It seeds default rules if they are missing, creates the throttle controller
// and engine with the given dispatch action, subscribes the engine to the
// snapshot bus, and loads the active rules. The action func is injected so
// this package never depends on the dispatch layer.
func Initialize(
	ruleRepo repository.AlertRuleRepository,
	throttleRepo repository.ThrottleRepository,
	bus *SnapshotBus,
	action ActionFunc,
	log logger.Logger,
) (*Engine, error) {
	ctx := context.Background()

	if err := seedDefaultRules(ctx, ruleRepo, log); err != nil {
		return nil, err
	}

	throttle := NewThrottleController(throttleRepo, log)
	engine := NewEngine(ruleRepo, throttle, action, log)

	if err := engine.RefreshRules(ctx); err != nil {
		return nil, err
	}

	bus.Subscribe(engine.HandleSnapshot)

	// Start periodic trigger history cleanup based on configured retention.
	if settings := conf.GetSettings(); settings != nil {
		engine.StartTriggerCleanup(settings.Alerting.HistoryRetentionDays)
	}

	log.Info("alerting engine initialized",
		logger.Int("rules_loaded", len(engine.rules)))

	return engine, nil
}

// seedDefaultRules ensures all built-in default rules exist. It checks by name
// so partial seeds from previous runs self-heal on restart.
func seedDefaultRules(ctx context.Context, repo repository.AlertRuleRepository, log logger.Logger) error {
	existing, err := repo.ListRules(ctx, repository.AlertRuleFilter{})
	if err != nil {
		return err
	}

	existingNames := make(map[string]struct{}, len(existing))
	for i := range existing {
		existingNames[existing[i].Name] = struct{}{}
	}

	defaults := DefaultRules()
	var created int
	for i := range defaults {
		if _, exists := existingNames[defaults[i].Name]; exists {
			continue
		}
		if err := repo.CreateRule(ctx, &defaults[i]); err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default alert rules", logger.Int("created", created))
	}
	return nil
}
