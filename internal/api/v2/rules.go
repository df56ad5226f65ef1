package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/logger"
)

// initRuleRoutes registers alert rule endpoints.
func (c *Controller) initRuleRoutes() {
	rules := c.Group.Group("/rules")

	rules.GET("/schema", c.GetRuleSchema)
	rules.GET("", c.ListRules)
	rules.POST("", c.CreateRule)
	rules.GET("/:id", c.GetRule)
	rules.PUT("/:id", c.UpdateRule)
	rules.DELETE("/:id", c.DeleteRule)
	rules.PATCH("/:id/toggle", c.ToggleRule)
	rules.POST("/:id/test", c.TestRule)
	rules.GET("/:id/triggers", c.ListRuleTriggers)
}

// GetRuleSchema returns the rule-building schema for the dashboard.
func (c *Controller) GetRuleSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema())
}

// ListRules returns alert rules, optionally filtered.
func (c *Controller) ListRules(ctx echo.Context) error {
	filter := repository.AlertRuleFilter{
		Category: ctx.QueryParam("category"),
		Priority: ctx.QueryParam("priority"),
	}
	if activeParam := ctx.QueryParam("active"); activeParam != "" {
		v := activeParam == "true"
		filter.IsActive = &v
	}

	rules, err := c.ruleRepo.ListRules(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert rules", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule returns a single alert rule by ID.
func (c *Controller) GetRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	rule, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to get alert rule", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, rule)
}

// CreateRule creates a new alert rule.
func (c *Controller) CreateRule(ctx echo.Context) error {
	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := rule.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	reqCtx := ctx.Request().Context()

	// Prevent duplicate names
	count, err := c.ruleRepo.CountRulesByName(reqCtx, rule.Name)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create alert rule", http.StatusInternalServerError)
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A rule with this name already exists"})
	}

	if err := c.ruleRepo.CreateRule(reqCtx, &rule); err != nil {
		if errors.CategoryOf(err) == errors.CategoryValidation {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.HandleError(ctx, err, "Failed to create alert rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	c.log.Info("alert rule created",
		logger.String("name", rule.Name),
		logger.Uint64("id", uint64(rule.ID)))

	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces an existing alert rule.
func (c *Controller) UpdateRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	reqCtx := ctx.Request().Context()

	existing, err := c.ruleRepo.GetRule(reqCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to get alert rule", http.StatusInternalServerError)
	}

	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := rule.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	// Trigger bookkeeping stays engine-owned.
	rule.TriggerCount = existing.TriggerCount
	rule.LastTriggeredAt = existing.LastTriggeredAt

	if err := c.ruleRepo.UpdateRule(reqCtx, &rule); err != nil {
		if errors.CategoryOf(err) == errors.CategoryValidation {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.HandleError(ctx, err, "Failed to update alert rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.JSON(http.StatusOK, rule)
}

// ToggleRule enables or disables an alert rule.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := c.ruleRepo.ToggleRule(ctx.Request().Context(), id, body.Active); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to toggle alert rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "active": body.Active})
}

// DeleteRule deletes an alert rule.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	if err := c.ruleRepo.DeleteRule(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete alert rule", http.StatusInternalServerError)
	}

	c.refreshEngine(ctx)

	return ctx.NoContent(http.StatusNoContent)
}

// TestRule evaluates a rule against a supplied snapshot without touching the
// throttle window or dispatching notifications. An empty body evaluates
// against the engine's last seen values.
func (c *Controller) TestRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	rule, err := c.ruleRepo.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to get alert rule", http.StatusInternalServerError)
	}

	var snapshot alerting.Snapshot
	if err := ctx.Bind(&snapshot); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid snapshot body"})
	}
	if len(snapshot) == 0 {
		snapshot = c.engine.CurrentSnapshot()
	}

	satisfied, evalErr := c.engine.TestEvaluate(rule, snapshot)
	resp := map[string]any{
		"rule_id":   rule.ID,
		"satisfied": satisfied,
	}
	if evalErr != nil {
		resp["evaluation_error"] = evalErr.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ListRuleTriggers returns a rule's trigger history, newest first.
func (c *Controller) ListRuleTriggers(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	limit, offset := parseLimitOffset(ctx, maxTriggersLimit)
	filter := repository.TriggerEventFilter{
		RuleID: id,
		Limit:  limit,
		Offset: offset,
	}
	if suppressedParam := ctx.QueryParam("suppressed"); suppressedParam != "" {
		v := suppressedParam == "true"
		filter.Suppressed = &v
	}

	events, total, err := c.ruleRepo.ListTriggerEvents(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list trigger events", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"triggers": events,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// refreshEngine refreshes the engine's rule cache after a rule mutation.
func (c *Controller) refreshEngine(ctx echo.Context) {
	if c.engine == nil {
		return
	}
	if err := c.engine.RefreshRules(ctx.Request().Context()); err != nil {
		c.log.Error("failed to refresh engine rules", logger.Error(err))
	}
}
