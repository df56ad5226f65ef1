package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	api "github.com/opsdeck/opsdeck-go/internal/api/v2"
	"github.com/opsdeck/opsdeck-go/internal/conf"
	"github.com/opsdeck/opsdeck-go/internal/datastore"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/delivery"
	"github.com/opsdeck/opsdeck-go/internal/dispatch"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/notification"
	"github.com/opsdeck/opsdeck-go/internal/stats"
)

const shutdownGrace = 10 * time.Second

func serve() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alerting engine and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	settings, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(os.Stdout,
		logger.ParseLevel(settings.Main.LogLevel),
		&logger.Options{JSON: settings.Main.LogJSON})

	db, err := datastore.Open(&settings.Database)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}

	ruleRepo := repository.NewAlertRuleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	throttleRepo := repository.NewThrottleRepository(db)

	notification.Initialize(notification.DefaultServiceConfig())
	notifier := notification.GetService()

	registry := dispatch.NewRegistry()
	if err := registerSenders(registry, &settings.Dispatch, notifier); err != nil {
		return err
	}

	// The tracker consumes the router for retries and the router reports
	// send outcomes to the tracker, so the resender is wired after both
	// exist.
	tracker := delivery.NewTracker(notificationRepo, nil, notifier, delivery.Config{
		MaxRetries:     settings.Delivery.MaxRetries,
		Timeout:        settings.Delivery.Timeout.Std(),
		ScanInterval:   settings.Delivery.ScanInterval.Std(),
		InitialBackoff: settings.Delivery.RetryBackoff.Std(),
		MaxBackoff:     settings.Delivery.RetryMaxBackoff.Std(),
	}, log)

	router := dispatch.NewRouter(notificationRepo, tracker, registry, dispatch.Options{
		Workers:   settings.Dispatch.Workers,
		QueueSize: settings.Dispatch.QueueSize,
	}, log)
	tracker.SetResender(router)
	tracker.Start()

	bus := alerting.NewSnapshotBus(settings.Alerting.EventBufferSize)
	engine, err := alerting.Initialize(ruleRepo, throttleRepo, bus, router.Dispatch, log)
	if err != nil {
		return fmt.Errorf("failed to initialize alerting engine: %w", err)
	}

	scheduler := alerting.NewScheduler(engine, settings.Alerting.SchedulerInterval.Std(), log)
	scheduler.Start()

	aggregator := stats.NewAggregator(notificationRepo, 0, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	api.New(e, &api.Options{
		RuleRepo:         ruleRepo,
		NotificationRepo: notificationRepo,
		Engine:           engine,
		Bus:              bus,
		Tracker:          tracker,
		Stats:            aggregator,
		Notifier:         notifier,
		Logger:           log,
	})

	addr := fmt.Sprintf("%s:%d", settings.HTTP.Host, settings.HTTP.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("server started", logger.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Error(err))
	}

	// Stop intake first so in-flight work drains cleanly behind it.
	bus.Stop()
	scheduler.Stop()
	engine.Stop()
	router.Stop()
	tracker.Stop()

	log.Info("shutdown complete")
	return nil
}

// registerSenders wires one sender per configured channel. Channels with no
// provider URL are skipped; dispatching to them fails the record with a
// useful reason instead of crashing at startup.
func registerSenders(registry *dispatch.Registry, settings *conf.DispatchSettings, notifier *notification.Service) error {
	type provider struct {
		channel string
		url     string
	}
	for _, p := range []provider{
		{"email", settings.EmailURL},
		{"sms", settings.SMSURL},
		{"push", settings.PushURL},
	} {
		if p.url == "" {
			continue
		}
		sender, err := dispatch.NewShoutrrrSender(p.channel, p.url)
		if err != nil {
			return fmt.Errorf("failed to configure %s sender: %w", p.channel, err)
		}
		registry.Register(sender)
	}
	registry.Register(dispatch.NewWebhookSender(settings.Webhook.Timeout.Std()))
	registry.Register(dispatch.NewInAppSender(notifier))
	return nil
}
