// Package job implements the job controller: a process-backed state
// machine that takes a command from Pending through Running to one of its
// terminal states while a supervisor enforces resource limits and captures
// bounded output.
//
//	Submit ──► Queued ──► Starting ──► Running ──► Completed / Failed /
//	                                              Cancelled / TimedOut /
//	                                              ResourceExceeded
//
// A background poller samples the process tree (via gopsutil) on a fixed
// interval, updates JobResourceStats, and forces a transition to
// ResourceExceeded or TimedOut if a configured limit is crossed.
//
//	lim := job.DefaultResourceLimits()
//	lim.MaxMemoryBytes = 512 << 20
//	j := job.New(job.KindBackground, "sleep 30", job.WithLimits(lim))
//	sup := job.NewSupervisor(j, job.DefaultSupervisorConfig())
//	if err := sup.Start(ctx); err != nil { ... }
//	<-j.Done()
package job
