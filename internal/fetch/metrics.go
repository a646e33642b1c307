package fetch

import "github.com/prometheus/client_golang/prometheus"

var (
	fetchedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clanstats",
		Subsystem: "fetch",
		Name:      "characters_fetched_total",
		Help:      "Number of characters whose stats were fetched successfully.",
	})

	activitiesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clanstats",
		Subsystem: "fetch",
		Name:      "activities_fetched_total",
		Help:      "Number of activities returned across all fetched characters.",
	})

	errorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clanstats",
		Subsystem: "fetch",
		Name:      "errors_total",
		Help:      "Number of failed stats requests.",
	})

	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clanstats",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of the whole fetch stage.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(fetchedCounter, activitiesCounter, errorCounter, fetchDuration)
}

func recordFetched(activities int) {
	fetchedCounter.Inc()
	activitiesCounter.Add(float64(activities))
}

func recordFetchError() {
	errorCounter.Inc()
}
