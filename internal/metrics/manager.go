package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterLocalSaves     prometheus.Counter
	CounterSyncs          prometheus.Counter
	CounterSyncFailures   prometheus.Counter
	CounterPhotosUploaded prometheus.Counter
	CounterRestores       prometheus.Counter

	// gauges
	GaugeLifeSignal prometheus.Gauge

	// histograms
	HistSyncDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("gymtracker", "test_service", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymtracker", "test_service", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterLocalSaves := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "local_saves",
		Help:      "The total number of snapshots persisted to the local store",
	})
	counterSyncs := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "drive_syncs",
		Help:      "The total number of completed Drive syncs",
	})
	counterSyncFailures := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "drive_sync_failures",
		Help:      "The total number of failed Drive syncs",
	})
	counterPhotosUploaded := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "photos_uploaded",
		Help:      "Number of machine photos uploaded to Drive",
	})
	counterRestores := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "drive_restores",
		Help:      "Number of times the remote backup replaced local state",
	})

	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Binary signal, service alive or not",
	})

	histSyncDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "drive_sync_duration_seconds",
		Help:      "Drive sync duration",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	return &Manager{
		CounterLocalSaves:     counterLocalSaves,
		CounterSyncs:          counterSyncs,
		CounterSyncFailures:   counterSyncFailures,
		CounterPhotosUploaded: counterPhotosUploaded,
		CounterRestores:       counterRestores,
		GaugeLifeSignal:       gaugeLifeSignal,
		HistSyncDuration:      histSyncDuration,
	}
}
