package job

import "time"

// ResourceLimits bounds what a job's process tree may consume. A nil/zero
// field means the corresponding limit is not enforced.
type ResourceLimits struct {
	MaxCPUPercent     float64
	MaxMemoryBytes    uint64
	MaxOpenFiles      uint32
	MaxChildProcesses uint32
	MaxExecutionTime  time.Duration
	NiceValue         int
	CustomLimits      map[string]float64
}

// DefaultResourceLimits returns a ResourceLimits with nothing enforced.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{CustomLimits: make(map[string]float64)}
}

// ResourceStats is a point-in-time sample of a job's process tree.
type ResourceStats struct {
	CPUPercent        float64
	MemoryBytes       uint64
	DiskReadBytes     uint64
	DiskWriteBytes    uint64
	NetRxBytes        uint64
	NetTxBytes        uint64
	OpenFiles         uint32
	ThreadCount       uint32
	ChildProcessCount uint32
	PageFaults        uint64
	ContextSwitches   uint64
	LastUpdated       time.Time
}

// limitViolation classifies the outcome of a limit check: a deadline
// crossing routes to TimedOut, every other limit to ResourceExceeded.
type limitViolation int

const (
	noViolation limitViolation = iota
	violationResource
	violationDeadline
)

// check reports the first limit crossed, if any, and a human-readable
// reason suitable for Job.errorDetails.
func (l ResourceLimits) check(s ResourceStats, runtime time.Duration) (limitViolation, string) {
	if l.MaxCPUPercent > 0 && s.CPUPercent > l.MaxCPUPercent {
		return violationResource, "cpu limit exceeded"
	}
	if l.MaxMemoryBytes > 0 && s.MemoryBytes > l.MaxMemoryBytes {
		return violationResource, "memory limit exceeded"
	}
	if l.MaxOpenFiles > 0 && s.OpenFiles > l.MaxOpenFiles {
		return violationResource, "open file limit exceeded"
	}
	if l.MaxChildProcesses > 0 && s.ChildProcessCount > l.MaxChildProcesses {
		return violationResource, "child process limit exceeded"
	}
	if l.MaxExecutionTime > 0 && runtime > l.MaxExecutionTime {
		return violationDeadline, "max execution time exceeded"
	}
	return noViolation, ""
}
