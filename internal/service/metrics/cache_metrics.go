package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hyperadar",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "TTL cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	CacheRecompute = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hyperadar",
			Subsystem: "cache",
			Name:      "recompute_seconds",
			Help:      "Time spent recomputing a stale or empty entry",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"cache", "outcome"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(CacheLookups, CacheRecompute)
	})
}

// CacheObserver feeds TTL cache outcomes into Prometheus.
type CacheObserver struct{}

func NewCacheObserver() *CacheObserver {
	Register()
	return &CacheObserver{}
}

func (CacheObserver) CacheHit(name string)  { CacheLookups.WithLabelValues(name, "hit").Inc() }
func (CacheObserver) CacheMiss(name string) { CacheLookups.WithLabelValues(name, "miss").Inc() }

func (CacheObserver) Recompute(name string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CacheRecompute.WithLabelValues(name, outcome).Observe(took.Seconds())
}
