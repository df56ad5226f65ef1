package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck-go/internal/alerting"
	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/observability/metrics"
)

const (
	defaultWorkers   = 8
	defaultQueueSize = 256

	// sendTimeout bounds one provider handoff.
	sendTimeout = 30 * time.Second
	// recordTimeout bounds record persistence on the dispatch path.
	recordTimeout = 3 * time.Second
)

// ErrQueueFull is returned when the dispatch queue is saturated.
var ErrQueueFull = errors.New("dispatch queue full")

// Per-channel unit costs, tracked on each record for spend reporting.
var channelCosts = map[string]float64{
	entities.ChannelEmail:   0.001,
	entities.ChannelSMS:     0.05,
	entities.ChannelPush:    0.002,
	entities.ChannelWebhook: 0,
	entities.ChannelInApp:   0,
}

// StatusSink applies delivery lifecycle transitions for records the router
// hands off. Implemented by the delivery tracker.
type StatusSink interface {
	// MarkSent transitions a pending record to sent after the provider
	// accepted the handoff.
	MarkSent(ctx context.Context, recordID string, at time.Time, providerID string) error
	// MarkFailed transitions a record to failed with a reason.
	MarkFailed(ctx context.Context, recordID, reason string) error
}

// job is one queued provider handoff.
type job struct {
	record *entities.NotificationRecord
}

// Router fans an admitted trigger out to one notification per channel and
// recipient. Records are created pending, handed to per-channel senders by a
// fixed worker pool, and marked sent or failed through the status sink.
type Router struct {
	repo     repository.NotificationRepository
	sink     StatusSink
	registry *Registry
	log      logger.Logger

	jobs     chan job
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Options configures the router's worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

// NewRouter creates a dispatch router and starts its workers.
func NewRouter(repo repository.NotificationRepository, sink StatusSink, registry *Registry, opts Options, log logger.Logger) *Router {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	r := &Router{
		repo:     repo,
		sink:     sink,
		registry: registry,
		log:      log,
		jobs:     make(chan job, opts.QueueSize),
		stopCh:   make(chan struct{}),
	}
	metrics.DispatchQueueCapacity.Set(float64(opts.QueueSize))
	for range opts.Workers {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Dispatch implements the engine's action callback: it creates one pending
// record per channel and recipient of the fired rule and queues each for
// provider handoff. Queue saturation fails the affected record immediately
// instead of blocking the evaluation path.
func (r *Router) Dispatch(rule *entities.AlertRule, trigger *entities.TriggerEvent, snapshot alerting.Snapshot) {
	title, body := renderContent(rule, snapshot)

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	for _, channel := range rule.Channels {
		for _, recipient := range rule.Recipients {
			rec := &entities.NotificationRecord{
				ID:             uuid.NewString(),
				TriggerEventID: trigger.ID,
				RuleID:         rule.ID,
				RuleName:       rule.Name,
				Category:       rule.Category,
				Priority:       rule.Priority,
				Channel:        channel,
				Recipient:      recipient,
				Title:          title,
				Body:           body,
				Status:         entities.StatusPending,
				Cost:           channelCosts[channel],
			}
			if err := r.repo.Create(ctx, rec); err != nil {
				r.log.Error("failed to create notification record",
					logger.Uint64("rule_id", uint64(rule.ID)),
					logger.String("channel", channel),
					logger.Error(err))
				continue
			}
			if err := r.enqueue(rec); err != nil {
				r.failRecord(ctx, rec, "dispatch queue saturated")
				metrics.NotificationsDispatchedTotal.WithLabelValues(channel, "queue_full").Inc()
			}
		}
	}
}

// Resend queues an existing record for another provider handoff. Used by the
// bounce retry path.
func (r *Router) Resend(rec *entities.NotificationRecord) error {
	return r.enqueue(rec)
}

// enqueue queues a record for provider handoff without blocking. Jobs are
// rejected once the router is stopping.
func (r *Router) enqueue(rec *entities.NotificationRecord) error {
	select {
	case <-r.stopCh:
		return ErrQueueFull
	default:
	}
	select {
	case r.jobs <- job{record: rec}:
		metrics.DispatchQueueDepth.Set(float64(len(r.jobs)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains the queue and waits for in-flight sends to finish. Safe to
// call multiple times.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

func (r *Router) worker() {
	defer r.wg.Done()
	for {
		select {
		case j := <-r.jobs:
			metrics.DispatchQueueDepth.Set(float64(len(r.jobs)))
			r.send(j.record)
		case <-r.stopCh:
			// Drain queued jobs before exiting.
			for {
				select {
				case j := <-r.jobs:
					r.send(j.record)
				default:
					return
				}
			}
		}
	}
}

// send hands one record to its channel provider and records the outcome.
func (r *Router) send(rec *entities.NotificationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	sender, ok := r.registry.Get(rec.Channel)
	if !ok {
		r.failRecord(ctx, rec, "no sender for channel "+rec.Channel)
		metrics.NotificationsDispatchedTotal.WithLabelValues(rec.Channel, "rejected").Inc()
		return
	}

	start := time.Now()
	result, err := sender.Send(ctx, rec)
	metrics.SendDuration.WithLabelValues(rec.Channel).Observe(time.Since(start).Seconds())
	if err != nil {
		r.failRecord(ctx, rec, err.Error())
		metrics.NotificationsDispatchedTotal.WithLabelValues(rec.Channel, "rejected").Inc()
		return
	}

	if err := r.sink.MarkSent(ctx, rec.ID, time.Now(), result.ProviderID); err != nil {
		r.log.Error("failed to mark notification sent",
			logger.String("record_id", rec.ID),
			logger.Error(err))
		return
	}
	metrics.NotificationsDispatchedTotal.WithLabelValues(rec.Channel, "accepted").Inc()
}

func (r *Router) failRecord(ctx context.Context, rec *entities.NotificationRecord, reason string) {
	if err := r.sink.MarkFailed(ctx, rec.ID, reason); err != nil {
		r.log.Error("failed to mark notification failed",
			logger.String("record_id", rec.ID),
			logger.Error(err))
	}
}
