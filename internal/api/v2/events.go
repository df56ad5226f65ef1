package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/observability/metrics"
)

// initEventRoutes registers the metric snapshot ingestion endpoint.
func (c *Controller) initEventRoutes() {
	c.Group.POST("/events", c.IngestEvent, eventsRateLimiter())
}

// IngestEvent accepts a metric snapshot and publishes it to the alerting
// engine. The call returns once the snapshot is queued; evaluation is
// asynchronous.
func (c *Controller) IngestEvent(ctx echo.Context) error {
	var fields alerting.Snapshot
	if err := ctx.Bind(&fields); err != nil {
		metrics.SnapshotsIngestedTotal.WithLabelValues("invalid").Inc()
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid snapshot body"})
	}
	if len(fields) == 0 {
		metrics.SnapshotsIngestedTotal.WithLabelValues("invalid").Inc()
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Snapshot carries no fields"})
	}

	event := &alerting.SnapshotEvent{
		Fields:     fields,
		ReceivedAt: time.Now(),
	}
	if !c.bus.Publish(event) {
		metrics.SnapshotsIngestedTotal.WithLabelValues("dropped").Inc()
		c.log.Warn("snapshot dropped, event bus saturated")
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Event bus saturated, retry later"})
	}

	metrics.SnapshotsIngestedTotal.WithLabelValues("accepted").Inc()
	return ctx.JSON(http.StatusAccepted, map[string]any{
		"status": "accepted",
		"fields": len(fields),
	})
}
