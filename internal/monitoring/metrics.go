package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Admission metrics
	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_verdicts_total",
			Help: "Total number of admission verdicts emitted",
		},
		[]string{"account", "decision"},
	)

	riskScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_gate_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"account"},
	)

	positionSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_position_size_fraction",
			Help: "Position size fraction of the latest admitted trade",
		},
		[]string{"account"},
	)

	// Guard metrics
	tradingAllowed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_trading_allowed",
			Help: "Whether the drawdown guard currently admits trading (1 or 0)",
		},
		[]string{"account"},
	)

	drawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_drawdown",
			Help: "Current decline from the running equity peak as a fraction",
		},
		[]string{"account"},
	)

	consecutiveLosses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_gate_consecutive_losses",
			Help: "Current consecutive losing trade count",
		},
		[]string{"account"},
	)

	// Anomaly metrics
	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_anomalies_total",
			Help: "Total number of market anomaly observations",
		},
		[]string{"kind", "severity"},
	)

	// Error metrics
	persistenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "risk_gate_persistence_failures_total",
			Help: "Total number of failed guard state saves",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_gate_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(verdictsTotal)
	prometheus.MustRegister(riskScore)
	prometheus.MustRegister(positionSize)
	prometheus.MustRegister(tradingAllowed)
	prometheus.MustRegister(drawdown)
	prometheus.MustRegister(consecutiveLosses)
	prometheus.MustRegister(anomaliesTotal)
	prometheus.MustRegister(persistenceFailures)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordVerdict records one admission ruling
func RecordVerdict(account, decision string, score, sizeFraction float64) {
	verdictsTotal.WithLabelValues(account, decision).Inc()
	riskScore.WithLabelValues(account).Observe(score)
	positionSize.WithLabelValues(account).Set(sizeFraction)
}

// UpdateGuard updates the drawdown guard gauges
func UpdateGuard(account string, allowed bool, dd float64, losses int) {
	v := 0.0
	if allowed {
		v = 1.0
	}
	tradingAllowed.WithLabelValues(account).Set(v)
	drawdown.WithLabelValues(account).Set(dd)
	consecutiveLosses.WithLabelValues(account).Set(float64(losses))
}

// RecordAnomaly records one anomaly observation
func RecordAnomaly(kind, severity string) {
	anomaliesTotal.WithLabelValues(kind, severity).Inc()
}

// RecordPersistenceFailure records a failed guard state save
func RecordPersistenceFailure() {
	persistenceFailures.Inc()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
