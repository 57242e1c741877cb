package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector は pgxpool の統計値を Prometheus に公開します。
type PoolStatsCollector struct {
	stat func() *pgxpool.Stat

	acquired     *prometheus.Desc
	idle         *prometheus.Desc
	total        *prometheus.Desc
	max          *prometheus.Desc
	acquireCount *prometheus.Desc
	emptyAcquire *prometheus.Desc
	acquireWait  *prometheus.Desc
}

var _ prometheus.Collector = (*PoolStatsCollector)(nil)

// NewPoolStatsCollector は pool の統計を収集する Collector を生成します。
func NewPoolStatsCollector(pool *pgxpool.Pool) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("unifiedcontract", "db_pool", name), help, nil, nil)
	}
	return &PoolStatsCollector{
		stat:         pool.Stat,
		acquired:     desc("acquired_conns", "Connections currently acquired from the pool."),
		idle:         desc("idle_conns", "Idle connections in the pool."),
		total:        desc("total_conns", "Total connections owned by the pool."),
		max:          desc("max_conns", "Configured maximum pool size."),
		acquireCount: desc("acquire_total", "Successful connection acquisitions."),
		emptyAcquire: desc("empty_acquire_total", "Acquisitions that waited because the pool was empty."),
		acquireWait:  desc("acquire_duration_seconds_total", "Cumulative time spent acquiring connections."),
	}
}

// Describe は prometheus.Collector を実装します。
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquireCount
	ch <- c.emptyAcquire
	ch <- c.acquireWait
}

// Collect は prometheus.Collector を実装します。
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquire, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireWait, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
