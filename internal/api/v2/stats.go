package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initStatsRoutes registers aggregate statistics endpoints.
func (c *Controller) initStatsRoutes() {
	c.Group.GET("/stats", c.GetStats)
	c.Group.GET("/stats/channels", c.GetChannelStats)
}

// GetStats returns the aggregate delivery snapshot, optionally bounded by
// from/to timestamps.
func (c *Controller) GetStats(ctx echo.Context) error {
	from, err := parseTimeParam(ctx, "from")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid from timestamp, use RFC 3339"})
	}
	to, err := parseTimeParam(ctx, "to")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid to timestamp, use RFC 3339"})
	}

	overview, err := c.stats.Overview(ctx.Request().Context(), from, to)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute stats", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, overview)
}

// GetChannelStats returns the per-channel delivery breakdown.
func (c *Controller) GetChannelStats(ctx echo.Context) error {
	channels, err := c.stats.Channels(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute channel stats", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"channels": channels})
}
