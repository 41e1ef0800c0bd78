package metrics

import (
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsa_jobs_processed_total",
		Help: "Total number of analysis jobs processed, by final status",
	}, []string{"status"})

	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsa_analyses_total",
		Help: "Orchestrated analyses by provider and outcome (ok or error kind)",
	}, []string{"provider", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gsa_stage_duration_seconds",
		Help:    "Duration of each analysis pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	ProviderStagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsa_provider_stages_total",
		Help: "Provider invocation stage transitions",
	}, []string{"provider", "stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gsa_frames_sampled_total",
		Help: "Total number of frames sent to frame-based providers",
	})

	CreditOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsa_credit_operations_total",
		Help: "Credit ledger operations by result (reserved, refused, refunded, unmetered)",
	}, []string{"result"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gsa_active_workers",
		Help: "Number of workers currently processing a job",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gsa_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)

// ObserveProviderStage counts a provider stage transition.
func ObserveProviderStage(provider entity.ProviderName, stage entity.Stage) {
	ProviderStagesTotal.WithLabelValues(string(provider), string(stage)).Inc()
}
