// Package delivery owns the per-notification delivery state machine. It
// consumes provider status callbacks, detects sends that never got a
// callback, retries bounced notifications with exponential backoff, and
// escalates permanent failures of critical rules.
package delivery

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/errors"
	"github.com/opsdeck/opsdeck-go/internal/logger"
	"github.com/opsdeck/opsdeck-go/internal/notification"
	"github.com/opsdeck/opsdeck-go/internal/observability/metrics"
)

const (
	transitionTimeout = 3 * time.Second
	scanBatchSize     = 200
	lockStripes       = 64
)

// Callback is a provider-side delivery status report. Providers identify the
// notification either by our record ID or by the provider ID they returned
// on send.
type Callback struct {
	RecordID   string    `json:"record_id"`
	ProviderID string    `json:"provider_id"`
	Status     string    `json:"status"` // delivered, read, bounced, failed
	Timestamp  time.Time `json:"timestamp"`
	Reason     string    `json:"reason"`
}

// Resender re-queues a notification for another provider handoff. Satisfied
// by the dispatch router.
type Resender interface {
	Resend(rec *entities.NotificationRecord) error
}

// Tracker applies delivery status transitions to notification records.
// Transitions for one record are serialized; terminal states (read, failed)
// are never left.
type Tracker struct {
	repo     repository.NotificationRepository
	resender Resender
	notifier *notification.Service
	cfg      Config
	log      logger.Logger

	// locks serializes transitions per record. Striped by record ID hash so
	// the set stays bounded regardless of record volume.
	locks [lockStripes]sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTracker creates a delivery tracker. The notifier may be nil when no
// in-app escalation surface is available.
func NewTracker(repo repository.NotificationRepository, resender Resender, notifier *notification.Service, cfg Config, log logger.Logger) *Tracker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultConfig().ScanInterval
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if log == nil {
		log = logger.NewSlogLogger(os.Stderr, logger.LogLevelInfo, nil)
	}
	return &Tracker{
		repo:     repo,
		resender: resender,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With(logger.String("component", "delivery")),
		stopCh:   make(chan struct{}),
	}
}

// SetResender installs the resender after construction. The tracker and the
// dispatch router reference each other, so one side is wired late. Must be
// called before Start.
func (t *Tracker) SetResender(r Resender) {
	t.resender = r
}

// Start launches the timeout scanner. Sent records with no callback within
// the configured window are treated as bounced and become eligible for
// retry.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.scanStuck(time.Now())
			case <-t.stopCh:
				return
			}
		}
	}()
}

// Stop halts the scanner and waits for pending retries to unwind. Safe to
// call multiple times.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	t.wg.Wait()
}

// MarkSent records a successful provider handoff. Valid from pending (first
// send) and bounced (retry re-entering sent).
func (t *Tracker) MarkSent(ctx context.Context, recordID string, at time.Time, providerID string) error {
	return t.withRecord(ctx, recordID, func(ctx context.Context, rec *entities.NotificationRecord) error {
		switch rec.Status {
		case entities.StatusPending, entities.StatusBounced:
		default:
			t.log.Debug("ignoring sent transition",
				logger.String("record_id", rec.ID),
				logger.String("status", rec.Status))
			return nil
		}
		sentAt := at
		rec.SentAt = &sentAt
		if providerID != "" {
			rec.ProviderID = providerID
		}
		if err := t.transition(ctx, rec, entities.StatusSent); err != nil {
			return err
		}
		// The in-app channel has no external provider to confirm delivery:
		// the inbox entry is visible the moment the send lands, so the
		// record is delivered right here. Without this the timeout scanner
		// would bounce every in-app notification.
		if rec.Channel == entities.ChannelInApp {
			return t.deliver(ctx, rec, sentAt)
		}
		return nil
	})
}

// MarkFailed records a permanent delivery failure.
func (t *Tracker) MarkFailed(ctx context.Context, recordID, reason string) error {
	return t.withRecord(ctx, recordID, func(ctx context.Context, rec *entities.NotificationRecord) error {
		return t.fail(ctx, rec, reason)
	})
}

// HandleCallback applies a provider delivery status callback. The record is
// resolved by record ID first, then by provider ID. Stale callbacks that
// would regress the state machine are dropped, not applied.
func (t *Tracker) HandleCallback(ctx context.Context, cb *Callback) error {
	rec, err := t.resolve(ctx, cb)
	if err != nil {
		return err
	}
	metrics.DeliveryCallbacksTotal.WithLabelValues(cb.Status).Inc()
	return t.withRecord(ctx, rec.ID, func(ctx context.Context, rec *entities.NotificationRecord) error {
		return t.applyCallback(ctx, rec, cb)
	})
}

func (t *Tracker) resolve(ctx context.Context, cb *Callback) (*entities.NotificationRecord, error) {
	if cb.RecordID != "" {
		return t.repo.Get(ctx, cb.RecordID)
	}
	if cb.ProviderID != "" {
		return t.repo.GetByProviderID(ctx, cb.ProviderID)
	}
	return nil, errors.Newf(errors.CategoryValidation, "callback carries neither record_id nor provider_id")
}

func (t *Tracker) applyCallback(ctx context.Context, rec *entities.NotificationRecord, cb *Callback) error {
	at := cb.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	switch cb.Status {
	case entities.StatusDelivered:
		if rec.Status != entities.StatusSent {
			t.logStale(rec, cb)
			return nil
		}
		return t.deliver(ctx, rec, at)

	case entities.StatusRead:
		switch rec.Status {
		case entities.StatusDelivered:
			rec.ReadAt = &at
			return t.transition(ctx, rec, entities.StatusRead)
		case entities.StatusSent:
			rec.PendingRead = &at
			return t.repo.Update(ctx, rec)
		default:
			t.logStale(rec, cb)
			return nil
		}

	case entities.StatusBounced:
		if rec.Status != entities.StatusSent {
			t.logStale(rec, cb)
			return nil
		}
		reason := cb.Reason
		if reason == "" {
			reason = "provider reported bounce"
		}
		return t.bounce(ctx, rec, reason)

	case entities.StatusFailed:
		if entities.TerminalStatus(rec.Status) {
			t.logStale(rec, cb)
			return nil
		}
		reason := cb.Reason
		if reason == "" {
			reason = "provider reported failure"
		}
		return t.fail(ctx, rec, reason)

	default:
		return errors.Newf(errors.CategoryValidation, "unknown callback status %q", cb.Status)
	}
}

// deliver applies the delivered transition and flushes a read receipt that
// raced ahead of the delivery confirmation.
func (t *Tracker) deliver(ctx context.Context, rec *entities.NotificationRecord, at time.Time) error {
	rec.DeliveredAt = &at
	if err := t.transition(ctx, rec, entities.StatusDelivered); err != nil {
		return err
	}
	if rec.PendingRead != nil {
		readAt := *rec.PendingRead
		rec.ReadAt = &readAt
		rec.PendingRead = nil
		return t.transition(ctx, rec, entities.StatusRead)
	}
	return nil
}

// bounce marks a transient failure and schedules a retry, or fails the
// record permanently once retries are exhausted.
func (t *Tracker) bounce(ctx context.Context, rec *entities.NotificationRecord, reason string) error {
	if rec.RetryCount >= t.cfg.MaxRetries {
		return t.fail(ctx, rec, fmt.Sprintf("%s (retries exhausted after %d attempts)", reason, rec.RetryCount))
	}

	rec.FailureReason = reason
	if err := t.transition(ctx, rec, entities.StatusBounced); err != nil {
		return err
	}

	attempt := rec.RetryCount
	rec.RetryCount++
	if err := t.repo.Update(ctx, rec); err != nil {
		return err
	}

	t.scheduleRetry(rec.ID, t.cfg.backoff(attempt))
	return nil
}

// scheduleRetry re-queues the record with the dispatch router after the
// backoff elapses. The wait aborts on Stop.
func (t *Tracker) scheduleRetry(recordID string, after time.Duration) {
	if t.resender == nil {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		select {
		case <-time.After(after):
		case <-t.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), transitionTimeout)
		defer cancel()

		rec, err := t.repo.Get(ctx, recordID)
		if err != nil {
			t.log.Error("retry lookup failed", logger.String("record_id", recordID), logger.Error(err))
			return
		}
		if rec.Status != entities.StatusBounced {
			return
		}

		metrics.DeliveryRetriesTotal.Inc()
		t.log.Info("retrying bounced notification",
			logger.String("record_id", rec.ID),
			logger.String("channel", rec.Channel),
			logger.Int("retry_count", rec.RetryCount))

		if err := t.resender.Resend(rec); err != nil {
			if ferr := t.MarkFailed(ctx, rec.ID, "retry rejected: "+err.Error()); ferr != nil {
				t.log.Error("failed to record retry rejection",
					logger.String("record_id", rec.ID), logger.Error(ferr))
			}
		}
	}()
}

// fail moves the record into the terminal failed state and escalates when
// the originating rule is critical.
func (t *Tracker) fail(ctx context.Context, rec *entities.NotificationRecord, reason string) error {
	if entities.TerminalStatus(rec.Status) {
		return nil
	}
	rec.FailureReason = reason
	if err := t.transition(ctx, rec, entities.StatusFailed); err != nil {
		return err
	}
	if rec.Priority == entities.PriorityCritical {
		t.escalate(rec)
	}
	return nil
}

func (t *Tracker) escalate(rec *entities.NotificationRecord) {
	metrics.EscalationsTotal.Inc()
	t.log.Warn("critical notification failed, escalating",
		logger.String("record_id", rec.ID),
		logger.Uint64("rule_id", uint64(rec.RuleID)),
		logger.String("channel", rec.Channel),
		logger.String("reason", rec.FailureReason))

	if t.notifier == nil {
		return
	}
	_, err := t.notifier.CreateWithMetadata(
		notification.TypeEscalation,
		notification.PriorityCritical,
		fmt.Sprintf("Delivery failed: %s", rec.RuleName),
		fmt.Sprintf("Could not deliver %s notification to %s: %s", rec.Channel, rec.Recipient, rec.FailureReason),
		map[string]any{
			"record_id": rec.ID,
			"rule_id":   rec.RuleID,
			"channel":   rec.Channel,
		},
	)
	if err != nil {
		t.log.Error("failed to create escalation notification",
			logger.String("record_id", rec.ID), logger.Error(err))
	}
}

// scanStuck bounces sent records whose delivery window elapsed without a
// callback.
func (t *Tracker) scanStuck(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), transitionTimeout)
	defer cancel()

	cutoff := now.Add(-t.cfg.Timeout)
	stuck, err := t.repo.ListStuckSent(ctx, cutoff, scanBatchSize)
	if err != nil {
		t.log.Error("timeout scan failed", logger.Error(err))
		return
	}

	for i := range stuck {
		rec := &stuck[i]
		err := t.withRecord(ctx, rec.ID, func(ctx context.Context, rec *entities.NotificationRecord) error {
			if rec.Status != entities.StatusSent {
				return nil
			}
			timeoutErr := errors.Newf(errors.CategoryDeliveryTimeout,
				"no delivery callback within %s", t.cfg.Timeout)
			return t.bounce(ctx, rec, timeoutErr.Error())
		})
		if err != nil {
			t.log.Error("failed to bounce stuck notification",
				logger.String("record_id", rec.ID), logger.Error(err))
		}
	}
}

// withRecord loads the record fresh and runs fn under its stripe lock so
// concurrent transitions for one record never interleave.
func (t *Tracker) withRecord(ctx context.Context, recordID string, fn func(context.Context, *entities.NotificationRecord) error) error {
	lock := t.lockFor(recordID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := t.repo.Get(ctx, recordID)
	if err != nil {
		return err
	}
	return fn(ctx, rec)
}

func (t *Tracker) lockFor(recordID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recordID))
	return &t.locks[h.Sum32()%lockStripes]
}

// transition persists a status change and records it in metrics.
func (t *Tracker) transition(ctx context.Context, rec *entities.NotificationRecord, to string) error {
	from := rec.Status
	rec.Status = to
	if err := t.repo.Update(ctx, rec); err != nil {
		rec.Status = from
		return err
	}
	metrics.DeliveryTransitionsTotal.WithLabelValues(from, to).Inc()
	t.log.Debug("delivery transition",
		logger.String("record_id", rec.ID),
		logger.String("from", from),
		logger.String("to", to))
	return nil
}

func (t *Tracker) logStale(rec *entities.NotificationRecord, cb *Callback) {
	t.log.Debug("dropping stale delivery callback",
		logger.String("record_id", rec.ID),
		logger.String("status", rec.Status),
		logger.String("callback_status", cb.Status))
}
