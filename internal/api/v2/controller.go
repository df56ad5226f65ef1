// Package api implements the v2 HTTP API: snapshot ingestion, alert rule
// CRUD, delivery callbacks, notification history, the in-app inbox and
// aggregate statistics.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/delivery"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/notification"
	"github.com/opsdeck/opsdeck-go/internal/observability/metrics"
	"github.com/opsdeck/opsdeck-go/internal/stats"
)

const (
	maxHistoryLimit  = 200
	eventsRatePerSec = 20
	eventsRateBurst  = 40
	maxTriggersLimit = 200
	defaultPageLimit = 50
)

// Controller wires the HTTP API to the engine components.
type Controller struct {
	Group *echo.Group

	log              logger.Logger
	ruleRepo         repository.AlertRuleRepository
	notificationRepo repository.NotificationRepository
	engine           *alerting.Engine
	bus              *alerting.SnapshotBus
	tracker          *delivery.Tracker
	stats            *stats.Aggregator
	notifier         *notification.Service
}

// Options carries the controller's collaborators.
type Options struct {
	RuleRepo         repository.AlertRuleRepository
	NotificationRepo repository.NotificationRepository
	Engine           *alerting.Engine
	Bus              *alerting.SnapshotBus
	Tracker          *delivery.Tracker
	Stats            *stats.Aggregator
	Notifier         *notification.Service
	Logger           logger.Logger
}

// New registers all v2 routes on e and returns the controller.
func New(e *echo.Echo, opts *Options) *Controller {
	c := &Controller{
		Group:            e.Group("/api/v2"),
		log:              opts.Logger.With(logger.String("component", "api")),
		ruleRepo:         opts.RuleRepo,
		notificationRepo: opts.NotificationRepo,
		engine:           opts.Engine,
		bus:              opts.Bus,
		tracker:          opts.Tracker,
		stats:            opts.Stats,
		notifier:         opts.Notifier,
	}

	c.Group.Use(httpMetricsMiddleware)

	c.initEventRoutes()
	c.initRuleRoutes()
	c.initCallbackRoutes()
	c.initHistoryRoutes()
	c.initInboxRoutes()
	c.initStatsRoutes()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return c
}

// httpMetricsMiddleware records request counts and latency per route.
func httpMetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)
		status := ctx.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		labels := []string{ctx.Request().Method, ctx.Path(), strconv.Itoa(status)}
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// eventsRateLimiter bounds the snapshot ingestion rate per client IP.
func eventsRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(eventsRatePerSec),
			Burst: eventsRateBurst,
		},
	))
}

// HandleError logs err and replies with a sanitized message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	c.log.Error(message,
		logger.String("path", ctx.Path()),
		logger.Error(err))
	return ctx.JSON(code, map[string]string{"error": message})
}

// parseUintParam parses a uint route parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// parseUintQuery parses a uint query parameter.
func parseUintQuery(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.QueryParam(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// parseLimitOffset reads pagination query parameters, clamping limit to cap.
func parseLimitOffset(ctx echo.Context, maxLimit int) (limit, offset int) {
	limit = defaultPageLimit
	if v, err := strconv.Atoi(ctx.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(ctx.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// parseTimeParam reads an RFC 3339 query parameter; a missing value yields
// the zero time.
func parseTimeParam(ctx echo.Context, name string) (time.Time, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
