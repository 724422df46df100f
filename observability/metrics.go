// Package observability exposes the Prometheus collectors the reservehost
// registry records against as reserves tick.
package observability

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReserveMetrics bundles the collectors recorded against a single reserve
// registry. Call Reserve() once per process and share the result.
type ReserveMetrics struct {
	ticks           *prometheus.CounterVec
	tickErrors      *prometheus.CounterVec
	tickLatency     *prometheus.HistogramVec
	liquidityRate   *prometheus.GaugeVec
	variableRate    *prometheus.GaugeVec
	stableRate      *prometheus.GaugeVec
	liquidityIndex  *prometheus.GaugeVec
	accruedTreasury *prometheus.GaugeVec
}

var (
	reserveMetricsOnce sync.Once
	reserveRegistry    *ReserveMetrics
)

// Reserve returns the lazily-initialised reserve metrics registry.
func Reserve() *ReserveMetrics {
	reserveMetricsOnce.Do(func() {
		reserveRegistry = &ReserveMetrics{
			ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "ticks_total",
				Help:      "Total UpdateState/UpdateInterestRates actions segmented by reserve and outcome.",
			}, []string{"reserve", "outcome"}),
			tickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "tick_errors_total",
				Help:      "Count of failed reserve actions segmented by reserve and error reason.",
			}, []string{"reserve", "reason"}),
			tickLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "tick_duration_seconds",
				Help:      "Latency distribution for a full cache/updateState/updateInterestRates action.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"reserve"}),
			liquidityRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "liquidity_rate_ray",
				Help:      "Current supply-side liquidity rate, ray-scaled, as a float approximation.",
			}, []string{"reserve"}),
			variableRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "variable_borrow_rate_ray",
				Help:      "Current variable borrow rate, ray-scaled, as a float approximation.",
			}, []string{"reserve"}),
			stableRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "stable_borrow_rate_ray",
				Help:      "Current stable borrow rate, ray-scaled, as a float approximation.",
			}, []string{"reserve"}),
			liquidityIndex: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "liquidity_index_ray",
				Help:      "Current liquidity index, ray-scaled, as a float approximation.",
			}, []string{"reserve"}),
			accruedTreasury: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "reservecore",
				Subsystem: "reserve",
				Name:      "accrued_to_treasury_wad",
				Help:      "Scaled wad amount accrued to treasury, as a float approximation.",
			}, []string{"reserve"}),
		}
		prometheus.MustRegister(
			reserveRegistry.ticks,
			reserveRegistry.tickErrors,
			reserveRegistry.tickLatency,
			reserveRegistry.liquidityRate,
			reserveRegistry.variableRate,
			reserveRegistry.stableRate,
			reserveRegistry.liquidityIndex,
			reserveRegistry.accruedTreasury,
		)
	})
	return reserveRegistry
}

// ObserveTick records the outcome and latency of a reserve action.
func (m *ReserveMetrics) ObserveTick(reserve string, d time.Duration, err error) {
	if m == nil {
		return
	}
	label := labelReserve(reserve)
	outcome := "success"
	if err != nil {
		outcome = "error"
		reason := strings.TrimSpace(err.Error())
		if reason == "" {
			reason = "unknown"
		}
		m.tickErrors.WithLabelValues(label, reason).Inc()
	}
	m.ticks.WithLabelValues(label, outcome).Inc()
	m.tickLatency.WithLabelValues(label).Observe(d.Seconds())
}

// RecordRateSnapshot updates the rate and liquidity index gauges for a
// reserve. It does not touch the treasury gauge, which is recorded
// separately via RecordTreasury since it is not part of every
// observation.
func (m *ReserveMetrics) RecordRateSnapshot(reserve string, liquidityRate, variableRate, stableRate, liquidityIndex *big.Int) {
	if m == nil {
		return
	}
	label := labelReserve(reserve)
	m.liquidityRate.WithLabelValues(label).Set(bigToFloat(liquidityRate))
	m.variableRate.WithLabelValues(label).Set(bigToFloat(variableRate))
	m.stableRate.WithLabelValues(label).Set(bigToFloat(stableRate))
	m.liquidityIndex.WithLabelValues(label).Set(bigToFloat(liquidityIndex))
}

// RecordTreasury updates the accrued-to-treasury gauge for a reserve.
func (m *ReserveMetrics) RecordTreasury(reserve string, accruedToTreasury *big.Int) {
	if m == nil {
		return
	}
	m.accruedTreasury.WithLabelValues(labelReserve(reserve)).Set(bigToFloat(accruedToTreasury))
}

func labelReserve(reserve string) string {
	trimmed := strings.TrimSpace(reserve)
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	return f
}
