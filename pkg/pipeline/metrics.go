package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	pipelineExecutions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_pipeline_executions_total",
		Help: "Total pipeline executions started.",
	})
	pipelineCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_pipeline_completed_total",
		Help: "Total pipeline executions that completed successfully.",
	})
	pipelineFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_pipeline_failed_total",
		Help: "Total pipeline executions that failed.",
	})
	pipelineCancellations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_pipeline_cancelled_total",
		Help: "Total pipeline executions that were cancelled.",
	})
	pipelineRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_pipeline_running",
		Help: "Number of pipelines currently executing.",
	})
	pipelineExecutionTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexuscore_pipeline_execution_time_ms",
		Help:    "Pipeline execution time in milliseconds.",
		Buckets: prometheus.DefBuckets,
	})
	stageExecutionTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexuscore_pipeline_stage_execution_time_ms",
		Help:    "Per-stage execution time in milliseconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	stageRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_pipeline_stage_retries_total",
		Help: "Total stage execution retries.",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(
		pipelineExecutions,
		pipelineCompletions,
		pipelineFailures,
		pipelineCancellations,
		pipelineRunning,
		pipelineExecutionTime,
		stageExecutionTime,
		stageRetries,
	)
}
