// Package metrics exposes simulation and HTTP metrics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/talgya/polarsim/internal/engine"
)

var (
	// Simulation metrics, refreshed after every tick
	Tick = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polarsim_tick",
			Help: "Last completed simulation tick",
		},
	)

	Population = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polarsim_population",
			Help: "Number of humans",
		},
	)

	Ideology = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polarsim_ideology",
			Help: "Ideology mean and sample standard deviation",
		},
		[]string{"party", "stat"}, // party "all" for the whole population; stat "mean" or "sd"
	)

	AffectivePolarization = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polarsim_affective_polarization",
			Help: "Affective polarization mean and sample standard deviation",
		},
		[]string{"party", "stat"},
	)

	Diversity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polarsim_diversity",
			Help: "Mean normalized Shannon diversity of this tick's interactions",
		},
		[]string{"party", "source"}, // source "social" or "media"
	)

	HappyPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polarsim_happy_percent",
			Help: "Percentage of humans currently happy",
		},
		[]string{"party"},
	)

	PartisanGap = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polarsim_partisan_gap",
			Help: "Mean Republican ideology minus mean Democrat ideology",
		},
	)

	Backfires = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polarsim_backfires_total",
			Help: "Total interactions that backfired",
		},
	)

	Relocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polarsim_relocations_total",
			Help: "Total relocations by unhappy humans",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polarsim_tick_duration_seconds",
			Help:    "Wall time spent in one simulation step",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polarsim_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polarsim_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polarsim_rate_limit_hits_total",
			Help: "Total requests rejected by the admin rate limiter",
		},
	)
)

// Observe publishes one tick's metrics.
func Observe(m engine.Metrics) {
	Tick.Set(float64(m.Tick))
	Population.Set(float64(m.Population))
	PartisanGap.Set(m.PartisanGap)
	Backfires.Add(float64(m.Backfires))
	Relocations.Add(float64(m.Relocations))

	observeGroup("all", engine.PartyMetrics{
		Count:           m.Population,
		MeanIdeology:    m.MeanIdeology,
		SDIdeology:      m.SDIdeology,
		MeanAP:          m.MeanAP,
		SDAP:            m.SDAP,
		SocialDiversity: m.SocialDiversity,
		MediaDiversity:  m.MediaDiversity,
		HappyPercent:    m.HappyPercent,
	})
	for party, pm := range m.ByParty {
		observeGroup(party, pm)
	}
}

func observeGroup(party string, pm engine.PartyMetrics) {
	Ideology.WithLabelValues(party, "mean").Set(pm.MeanIdeology)
	Ideology.WithLabelValues(party, "sd").Set(pm.SDIdeology)
	AffectivePolarization.WithLabelValues(party, "mean").Set(pm.MeanAP)
	AffectivePolarization.WithLabelValues(party, "sd").Set(pm.SDAP)
	Diversity.WithLabelValues(party, "social").Set(pm.SocialDiversity)
	Diversity.WithLabelValues(party, "media").Set(pm.MediaDiversity)
	HappyPercent.WithLabelValues(party).Set(pm.HappyPercent)
}
