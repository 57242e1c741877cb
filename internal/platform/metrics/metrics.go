// Package metrics はドメインイベントとアウトボックス中継の Prometheus メトリクスを提供します。
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
)

// Metrics はアプリケーションのメトリクスを保持します。
type Metrics struct {
	EventsPublished     *prometheus.CounterVec
	EventPublishErrors  prometheus.Counter
	OutboxRelayed       prometheus.Counter
	OutboxRelayFailures prometheus.Counter
	OutboxBatchDuration prometheus.Histogram
	OutboxPending       prometheus.Gauge
}

// New は reg にメトリクスを登録して Metrics を生成します。
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unifiedcontract_domain_events_published_total",
			Help: "Total number of domain events handed to the publisher, by event name",
		}, []string{"event"}),
		EventPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "unifiedcontract_domain_event_publish_errors_total",
			Help: "Total number of failed domain event publish calls",
		}),
		OutboxRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "unifiedcontract_outbox_relayed_total",
			Help: "Total number of outbox entries delivered to the broker",
		}),
		OutboxRelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "unifiedcontract_outbox_relay_failures_total",
			Help: "Total number of failed outbox relay batches",
		}),
		OutboxBatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "unifiedcontract_outbox_batch_duration_seconds",
			Help:    "Duration of a single outbox relay batch",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		OutboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unifiedcontract_outbox_batch_size",
			Help: "Number of entries fetched by the latest outbox relay batch",
		}),
	}
}

// ObserveBatch は中継バッチの所要時間を記録します。start はバッチ開始時刻です。
func (m *Metrics) ObserveBatch(start time.Time, fetched int) {
	m.OutboxBatchDuration.Observe(time.Since(start).Seconds())
	m.OutboxPending.Set(float64(fetched))
}

// InstrumentedPublisher は公開したイベント数をイベント名ごとに数える event.Publisher です。
type InstrumentedPublisher struct {
	next    event.Publisher
	metrics *Metrics
}

// InstrumentPublisher は next を計測付きでラップします。
func InstrumentPublisher(next event.Publisher, m *Metrics) *InstrumentedPublisher {
	return &InstrumentedPublisher{next: next, metrics: m}
}

// Publish は next に委譲し、成功したイベントを数えます。
func (p *InstrumentedPublisher) Publish(ctx context.Context, events ...event.Event) error {
	if err := p.next.Publish(ctx, events...); err != nil {
		p.metrics.EventPublishErrors.Inc()
		return err
	}
	for _, e := range events {
		p.metrics.EventsPublished.WithLabelValues(e.Name).Inc()
	}
	return nil
}
