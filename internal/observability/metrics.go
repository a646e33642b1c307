package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	charactersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clanstats",
		Subsystem: "pipeline",
		Name:      "characters_selected",
		Help:      "Number of characters selected for the current run.",
	})
	rowsLoadedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clanstats",
		Subsystem: "pipeline",
		Name:      "rows_loaded_total",
		Help:      "Number of stat rows bulk-copied into the reporting table.",
	})
	loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clanstats",
		Subsystem: "pipeline",
		Name:      "load_duration_seconds",
		Help:      "Wall-clock duration of the bulk-load stage.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clanstats",
		Subsystem: "pipeline",
		Name:      "last_run_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful run.",
	})
)

func init() {
	prometheus.MustRegister(charactersGauge, rowsLoadedCounter, loadDuration, lastRunGauge)
}

// RecordCharactersSelected sets the working-set size for the current run.
func RecordCharactersSelected(count int) {
	charactersGauge.Set(float64(count))
}

// RecordRowsLoaded accounts for rows written and the time it took.
func RecordRowsLoaded(rows int64, elapsed time.Duration) {
	rowsLoadedCounter.Add(float64(rows))
	loadDuration.Observe(elapsed.Seconds())
}

// RecordRunCompleted updates the last-run watermark gauge.
func RecordRunCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastRunGauge.Set(float64(ts.Unix()))
}
