// Package metrics exposes Prometheus instrumentation for the lottery service.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nft_lottery"

// Metrics bundles the collectors registered on a dedicated registry so tests
// can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	RoundsOpened  prometheus.Counter
	Draws         prometheus.Counter
	TicketsSold   prometheus.Counter
	Refunds       prometheus.Counter
	PrizesAwarded *prometheus.CounterVec
	Mints         prometheus.Counter
	CurrentRound  prometheus.Gauge
	PoolSize      prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates and registers all lottery collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RoundsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_opened_total",
			Help:      "Number of rounds opened.",
		}),
		Draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Number of winning-number draws performed.",
		}),
		TicketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_sold_total",
			Help:      "Number of tickets purchased.",
		}),
		Refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Number of tickets refunded on lottery close.",
		}),
		PrizesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prizes_awarded_total",
			Help:      "Number of prizes awarded by tier.",
		}, []string{"tier"}),
		Mints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collectibles_minted_total",
			Help:      "Number of collectibles minted.",
		}),
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_round",
			Help:      "Round number of the most recently opened round.",
		}),
		PoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prize_pool_size",
			Help:      "Number of entries in the collectible prize pool.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.RoundsOpened, m.Draws, m.TicketsSold, m.Refunds, m.PrizesAwarded,
		m.Mints, m.CurrentRound, m.PoolSize, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// PrizeAwarded records one awarded prize of the given tier.
func (m *Metrics) PrizeAwarded(tier int) {
	m.PrizesAwarded.WithLabelValues(strconv.Itoa(tier)).Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, seconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
