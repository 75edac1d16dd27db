package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func poolGauge(name, help string, read func(*pgxpool.Stat) int32) func(*pgxpool.Pool) prometheus.GaugeFunc {
	return func(pool *pgxpool.Pool) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "afrimail",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(pool.Stat()))
		})
	}
}

var poolGauges = []func(*pgxpool.Pool) prometheus.GaugeFunc{
	poolGauge("db_acquired_conns", "Connections currently acquired from the pool", (*pgxpool.Stat).AcquiredConns),
	poolGauge("db_idle_conns", "Idle connections in the pool", (*pgxpool.Stat).IdleConns),
	poolGauge("db_total_conns", "Total connections held by the pool", (*pgxpool.Stat).TotalConns),
	poolGauge("db_max_conns", "Configured pool size ceiling", (*pgxpool.Stat).MaxConns),
}

// RegisterPgxPoolMetrics exposes connection pool statistics as gauges.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	for _, g := range poolGauges {
		prometheus.MustRegister(g(pool))
	}
}
