package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/errors"
)

// initHistoryRoutes registers notification history endpoints.
func (c *Controller) initHistoryRoutes() {
	c.Group.GET("/notifications", c.ListNotifications)
	c.Group.GET("/notifications/:id", c.GetNotification)
}

// ListNotifications returns notification history with filters and
// pagination, newest first.
func (c *Controller) ListNotifications(ctx echo.Context) error {
	limit, offset := parseLimitOffset(ctx, maxHistoryLimit)

	filter := repository.NotificationFilter{
		Channel:  ctx.QueryParam("channel"),
		Status:   ctx.QueryParam("status"),
		Category: ctx.QueryParam("category"),
		Limit:    limit,
		Offset:   offset,
	}
	if id, err := parseUintQuery(ctx, "rule_id"); err == nil {
		filter.RuleID = id
	}

	from, err := parseTimeParam(ctx, "from")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid from timestamp, use RFC 3339"})
	}
	to, err := parseTimeParam(ctx, "to")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid to timestamp, use RFC 3339"})
	}
	filter.From = from
	filter.To = to

	records, total, err := c.notificationRepo.List(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list notifications", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": records,
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetNotification returns a single notification record by ID.
func (c *Controller) GetNotification(ctx echo.Context) error {
	record, err := c.notificationRepo.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		return c.HandleError(ctx, err, "Failed to get notification", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, record)
}
