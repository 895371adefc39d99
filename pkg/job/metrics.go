package job

import "github.com/prometheus/client_golang/prometheus"

var (
	jobStarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_starts_total",
		Help: "Total number of jobs that entered Running.",
	})
	jobCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_completions_total",
		Help: "Total number of jobs that reached Completed.",
	})
	jobFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_failures_total",
		Help: "Total number of jobs that reached Failed.",
	})
	jobCancellations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_cancellations_total",
		Help: "Total number of jobs that reached Cancelled.",
	})
	jobTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_timeouts_total",
		Help: "Total number of jobs that reached TimedOut.",
	})
	jobResourceExceeded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexuscore_job_resource_exceeded_total",
		Help: "Total number of jobs that reached ResourceExceeded.",
	})
	jobRuntime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexuscore_job_runtime_seconds",
		Help:    "Wall-clock runtime of jobs from Running to a terminal state.",
		Buckets: prometheus.DefBuckets,
	})
	jobOutputDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_job_output_dropped_total",
		Help: "Total number of jobs whose output was truncated at output_limit, by stream.",
	}, []string{"stream"})
)

func init() {
	prometheus.MustRegister(
		jobStarts, jobCompletions, jobFailures, jobCancellations,
		jobTimeouts, jobResourceExceeded, jobRuntime, jobOutputDropped,
	)
}

func recordTerminal(status Status, runtime float64) {
	switch status {
	case Completed:
		jobCompletions.Inc()
	case Failed:
		jobFailures.Inc()
	case Cancelled:
		jobCancellations.Inc()
	case TimedOut:
		jobTimeouts.Inc()
	case ResourceExceeded:
		jobResourceExceeded.Inc()
	}
	if runtime >= 0 {
		jobRuntime.Observe(runtime)
	}
}
