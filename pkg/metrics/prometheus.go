package metrics

import (
	"sync"
	"time"

	"HypeRadar/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.HistogramVec
	lastCycle     prometheus.Gauge
	alertLevels   *prometheus.GaugeVec
	dataQuality   *prometheus.CounterVec
	providerErrs  *prometheus.CounterVec
	persistErrs   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// New returns the process-wide recorder. Collectors register once.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			cycles: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "hyperadar_cycle_duration_seconds",
					Help:    "Duration of refresh cycles",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
				},
				[]string{"outcome"},
			),
			lastCycle: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "hyperadar_last_cycle_timestamp_seconds",
				Help: "Unix time of the last finished cycle",
			}),
			alertLevels: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "hyperadar_alert_tickers",
					Help: "Tickers per alert level in the last cycle",
				},
				[]string{"level"},
			),
			dataQuality: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hyperadar_data_quality_issues_total",
					Help: "Degraded inputs by signal and reason",
				},
				[]string{"signal", "reason"},
			),
			providerErrs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hyperadar_provider_errors_total",
					Help: "Provider call failures",
				},
				[]string{"provider", "kind"},
			),
			persistErrs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hyperadar_persist_errors_total",
					Help: "Persistence failures by operation",
				},
				[]string{"op"},
			),
			notifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hyperadar_notifications_total",
					Help: "Critical-alert notifications by channel and outcome",
				},
				[]string{"channel", "outcome"},
			),
		}
	})
	return recorder
}

func (r *Recorder) ObserveCycle(d time.Duration, outcome string) {
	r.cycles.WithLabelValues(outcome).Observe(d.Seconds())
	r.lastCycle.SetToCurrentTime()
}

func (r *Recorder) RecordAlertLevels(counts map[models.AlertLevel]int) {
	for _, l := range models.AlertLevels {
		r.alertLevels.WithLabelValues(string(l)).Set(float64(counts[l]))
	}
}

func (r *Recorder) RecordDataQuality(signal, reason string) {
	r.dataQuality.WithLabelValues(signal, reason).Inc()
}

func (r *Recorder) RecordProviderError(provider, kind string) {
	r.providerErrs.WithLabelValues(provider, kind).Inc()
}

func (r *Recorder) RecordPersistError(op string) {
	r.persistErrs.WithLabelValues(op).Inc()
}

func (r *Recorder) RecordNotification(channel, outcome string) {
	r.notifications.WithLabelValues(channel, outcome).Inc()
}

// Nop discards everything; used by tests and the scan command.
type Nop struct{}

func (Nop) ObserveCycle(time.Duration, string)          {}
func (Nop) RecordAlertLevels(map[models.AlertLevel]int) {}
func (Nop) RecordDataQuality(string, string)            {}
func (Nop) RecordProviderError(string, string)          {}
func (Nop) RecordPersistError(string)                   {}
func (Nop) RecordNotification(string, string)           {}
