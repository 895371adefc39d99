package asyncruntime

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksSpawned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_spawned_total",
		Help: "Total number of tasks spawned, by domain.",
	}, []string{"domain"})

	tasksCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_completed_total",
		Help: "Total number of tasks that completed successfully, by domain.",
	}, []string{"domain"})

	tasksFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_failed_total",
		Help: "Total number of tasks that returned an error or panicked, by domain.",
	}, []string{"domain"})

	tasksTimedOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_timed_out_total",
		Help: "Total number of tasks cancelled by their deadline, by domain.",
	}, []string{"domain"})

	tasksCancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_cancelled_total",
		Help: "Total number of tasks cancelled via context before completion, by domain.",
	}, []string{"domain"})

	tasksScheduled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuscore_asyncruntime_tasks_scheduled_total",
		Help: "Total number of tasks submitted via Schedule (delayed submission), by domain.",
	}, []string{"domain"})

	taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexuscore_asyncruntime_task_duration_seconds",
		Help:    "Task execution duration in seconds, by domain.",
		Buckets: prometheus.DefBuckets,
	}, []string{"domain"})

	activeTasksGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nexuscore_asyncruntime_active_tasks",
		Help: "Number of tasks currently running, by domain.",
	}, []string{"domain"})

	threadLoadGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_asyncruntime_thread_load",
		Help: "Most recently sampled worker-pool load, in [0,1].",
	})

	workerCountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexuscore_asyncruntime_worker_count",
		Help: "Current advisory worker-pool size.",
	})
)

func init() {
	prometheus.MustRegister(
		tasksSpawned, tasksCompleted, tasksFailed, tasksTimedOut,
		tasksCancelled, tasksScheduled, taskDuration, activeTasksGauge,
		threadLoadGauge, workerCountGauge,
	)
}
