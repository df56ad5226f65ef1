// Package stats computes delivery statistics from notification history. It
// is a pure read model: nothing here mutates records, and results are
// cached briefly since the dashboard polls them.
package stats

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/opsdeck/opsdeck-go/internal/datastore/entities"
	"github.com/opsdeck/opsdeck-go/internal/datastore/repository"
	"github.com/opsdeck/opsdeck-go/internal/logger"
)

const (
	defaultCacheTTL = 30 * time.Second
	pageSize        = 500
)

// Overview is the aggregate delivery snapshot for a time range.
type Overview struct {
	Total int64 `json:"total"`

	// DeliveryRate is delivered-or-read over records that exited pending.
	DeliveryRate float64 `json:"delivery_rate"`
	// ReadRate is read over delivered-or-read.
	ReadRate float64 `json:"read_rate"`
	// AvgResponseSeconds is the mean delivered-minus-sent latency over
	// records carrying both timestamps.
	AvgResponseSeconds float64 `json:"avg_response_seconds"`

	TotalCost float64 `json:"total_cost"`

	ByStatus   map[string]int64 `json:"by_status"`
	ByChannel  map[string]int64 `json:"by_channel"`
	ByCategory map[string]int64 `json:"by_category"`
}

// ChannelStats is the per-channel delivery breakdown.
type ChannelStats struct {
	Channel      string  `json:"channel"`
	Total        int64   `json:"total"`
	Delivered    int64   `json:"delivered"`
	Read         int64   `json:"read"`
	Failed       int64   `json:"failed"`
	DeliveryRate float64 `json:"delivery_rate"`
	Cost         float64 `json:"cost"`
}

// Aggregator computes statistics over notification record history.
type Aggregator struct {
	repo  repository.NotificationRepository
	cache *gocache.Cache
	log   logger.Logger
}

// NewAggregator creates a stats aggregator. A ttl <= 0 selects the default
// cache window.
func NewAggregator(repo repository.NotificationRepository, ttl time.Duration, log logger.Logger) *Aggregator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Aggregator{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
		log:   log.With(logger.String("component", "stats")),
	}
}

// Overview returns the aggregate snapshot for records created inside
// [from, to]. Zero bounds leave that side of the range open.
func (a *Aggregator) Overview(ctx context.Context, from, to time.Time) (*Overview, error) {
	key := fmt.Sprintf("overview:%d:%d", from.Unix(), to.Unix())
	if cached, ok := a.cache.Get(key); ok {
		return cached.(*Overview), nil
	}

	acc := newAccumulator()
	err := a.scan(ctx, repository.NotificationFilter{From: from, To: to}, acc.add)
	if err != nil {
		return nil, err
	}

	overview := acc.overview()
	a.cache.SetDefault(key, overview)
	return overview, nil
}

// Channels returns the per-channel breakdown over all history.
func (a *Aggregator) Channels(ctx context.Context) ([]ChannelStats, error) {
	const key = "channels"
	if cached, ok := a.cache.Get(key); ok {
		return cached.([]ChannelStats), nil
	}

	acc := newAccumulator()
	if err := a.scan(ctx, repository.NotificationFilter{}, acc.add); err != nil {
		return nil, err
	}

	stats := acc.channels()
	a.cache.SetDefault(key, stats)
	return stats, nil
}

// scan pages through matching records and feeds each one to fn.
func (a *Aggregator) scan(ctx context.Context, filter repository.NotificationFilter, fn func(*entities.NotificationRecord)) error {
	filter.Limit = pageSize
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		records, _, err := a.repo.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("stats scan failed at offset %d: %w", offset, err)
		}
		for i := range records {
			fn(&records[i])
		}
		if len(records) < pageSize {
			return nil
		}
	}
}

// accumulator folds records into counters. Pending records count toward
// totals and cost but are excluded from every rate denominator.
type accumulator struct {
	total      int64
	cost       float64
	byStatus   map[string]int64
	byChannel  map[string]int64
	byCategory map[string]int64

	exitedPending   int64
	deliveredOrRead int64
	read            int64

	responseSum   time.Duration
	responseCount int64

	perChannel map[string]*channelAcc
}

type channelAcc struct {
	total         int64
	exitedPending int64
	delivered     int64
	read          int64
	failed        int64
	cost          float64
}

func newAccumulator() *accumulator {
	return &accumulator{
		byStatus:   make(map[string]int64),
		byChannel:  make(map[string]int64),
		byCategory: make(map[string]int64),
		perChannel: make(map[string]*channelAcc),
	}
}

func (a *accumulator) add(rec *entities.NotificationRecord) {
	a.total++
	a.cost += rec.Cost
	a.byStatus[rec.Status]++
	a.byChannel[rec.Channel]++
	if rec.Category != "" {
		a.byCategory[rec.Category]++
	}

	ch := a.perChannel[rec.Channel]
	if ch == nil {
		ch = &channelAcc{}
		a.perChannel[rec.Channel] = ch
	}
	ch.total++
	ch.cost += rec.Cost

	if rec.Status == entities.StatusPending {
		return
	}
	a.exitedPending++
	ch.exitedPending++

	switch rec.Status {
	case entities.StatusDelivered:
		a.deliveredOrRead++
		ch.delivered++
	case entities.StatusRead:
		a.deliveredOrRead++
		a.read++
		ch.delivered++
		ch.read++
	case entities.StatusFailed:
		ch.failed++
	}

	if rec.SentAt != nil && rec.DeliveredAt != nil && !rec.DeliveredAt.Before(*rec.SentAt) {
		a.responseSum += rec.DeliveredAt.Sub(*rec.SentAt)
		a.responseCount++
	}
}

func (a *accumulator) overview() *Overview {
	o := &Overview{
		Total:      a.total,
		TotalCost:  a.cost,
		ByStatus:   a.byStatus,
		ByChannel:  a.byChannel,
		ByCategory: a.byCategory,
	}
	o.DeliveryRate = ratio(a.deliveredOrRead, a.exitedPending)
	o.ReadRate = ratio(a.read, a.deliveredOrRead)
	if a.responseCount > 0 {
		o.AvgResponseSeconds = (a.responseSum / time.Duration(a.responseCount)).Seconds()
	}
	return o
}

func (a *accumulator) channels() []ChannelStats {
	out := make([]ChannelStats, 0, len(a.perChannel))
	for _, channel := range entities.Channels {
		ch, ok := a.perChannel[channel]
		if !ok {
			continue
		}
		out = append(out, ChannelStats{
			Channel:      channel,
			Total:        ch.total,
			Delivered:    ch.delivered,
			Read:         ch.read,
			Failed:       ch.failed,
			DeliveryRate: ratio(ch.delivered, ch.exitedPending),
			Cost:         ch.cost,
		})
	}
	return out
}

func ratio(num, denom int64) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
