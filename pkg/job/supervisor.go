package job

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// SupervisorConfig tunes how a Supervisor polls and terminates its job.
type SupervisorConfig struct {
	// PollInterval is how often the process tree is sampled for
	// JobResourceStats and checked against ResourceLimits.
	PollInterval time.Duration
	// KillGrace bounds how long to wait after the stop signal before
	// escalating to SIGKILL.
	KillGrace time.Duration
}

// DefaultSupervisorConfig returns a 1s poll interval and a 5s kill grace.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{PollInterval: time.Second, KillGrace: 5 * time.Second}
}

// Supervisor drives a Job's process from Starting through to a terminal
// state, sampling resource usage and enforcing limits along the way.
type Supervisor struct {
	job    *Job
	cfg    SupervisorConfig
	logger zerolog.Logger

	mu         sync.Mutex
	cmd        *exec.Cmd
	forced     Status
	forcedWhy  string
	terminated bool
}

// NewSupervisor returns a Supervisor bound to j.
func NewSupervisor(j *Job, cfg SupervisorConfig) *Supervisor {
	return &Supervisor{
		job:    j,
		cfg:    cfg,
		logger: log.WithComponent("job").With().Str("job_id", j.ID().String()).Logger(),
	}
}

// Start transitions the job Pending -> Queued -> Starting, spawns the
// process, and returns once the job is Running (or has failed to start).
// Supervision (polling, idle/deadline checks, wait-for-exit) continues in
// background goroutines after Start returns.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.job.transition(Queued); err != nil {
		return err
	}
	if err := s.job.transition(Starting); err != nil {
		return err
	}

	fields := strings.Fields(s.job.command)
	if len(fields) == 0 {
		s.job.setErrorDetails("empty command")
		_ = s.job.transition(Failed)
		return fmt.Errorf("%w: empty command", ErrProcessSpawnFailed)
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	if s.job.workingDir != "" {
		cmd.Dir = s.job.workingDir
	}
	if len(s.job.env) > 0 {
		env := make([]string, 0, len(s.job.env))
		for k, v := range s.job.env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		s.job.setErrorDetails(err.Error())
		_ = s.job.transition(Failed)
		return fmt.Errorf("%w: %v", ErrProcessSpawnFailed, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		s.job.setErrorDetails(err.Error())
		_ = s.job.transition(Failed)
		return fmt.Errorf("%w: %v", ErrProcessSpawnFailed, err)
	}

	if err := cmd.Start(); err != nil {
		s.job.setErrorDetails(err.Error())
		_ = s.job.transition(Failed)
		return fmt.Errorf("%w: %v", ErrProcessSpawnFailed, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	s.job.setPID(cmd.Process.Pid)
	if err := s.job.transition(Running); err != nil {
		_ = s.terminate(Cancelled, "could not enter Running")
		return err
	}

	go s.drain("stdout", stdoutPipe, s.job.appendStdout)
	go s.drain("stderr", stderrPipe, s.job.appendStderr)
	go s.pollResources(ctx)
	go s.wait()

	return nil
}

func (s *Supervisor) drain(stream string, r io.Reader, sink func([]byte) bool) {
	buf := make([]byte, 32*1024)
	var warned bool
	for {
		n, err := r.Read(buf)
		if n > 0 {
			dropped := sink(bytes.Clone(buf[:n]))
			if dropped && !warned {
				warned = true
				jobOutputDropped.WithLabelValues(stream).Inc()
				s.logger.Warn().Str("stream", stream).Msg("job output truncated at output_limit")
			}
		}
		if err != nil {
			return
		}
	}
}

// pollResources samples the process tree at cfg.PollInterval and enforces
// limits and the idle timeout until the job reaches a terminal state.
func (s *Supervisor) pollResources(ctx context.Context) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.job.Done():
			return
		case <-ctx.Done():
			_ = s.terminate(Cancelled, "context cancelled")
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *Supervisor) sampleOnce() {
	pid := s.job.PID()
	if pid == nil {
		return
	}
	stats, err := sampleProcessTree(*pid)
	if err != nil {
		return
	}
	s.job.updateResourceStats(stats)

	if s.job.Status() != Running {
		return
	}

	if idle := s.job.idleTimeout; idle > 0 && !s.job.lastOutput().IsZero() {
		if time.Since(s.job.lastOutput()) > idle {
			_ = s.terminate(TimedOut, "idle timeout exceeded")
			return
		}
	}

	if violation, reason := s.job.limits.check(stats, s.job.Runtime()); violation != noViolation {
		target := ResourceExceeded
		if violation == violationDeadline {
			target = TimedOut
		}
		s.logger.Warn().Str("reason", reason).Msg("job limit violated")
		_ = s.terminate(target, reason)
	}
}

// terminate signals the process to stop, recording the status the wait
// goroutine should transition to once the process actually exits.
func (s *Supervisor) terminate(target Status, reason string) error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	s.terminated = true
	s.forced = target
	s.forcedWhy = reason
	cmd := s.cmd
	s.mu.Unlock()

	s.job.setErrorDetails(reason)
	if cmd == nil || cmd.Process == nil {
		return s.job.transition(target)
	}

	sig := syscall.Signal(s.job.stopSignal)
	_ = cmd.Process.Signal(sig)

	grace := s.cfg.KillGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	go func() {
		select {
		case <-s.job.Done():
		case <-time.After(grace):
			_ = cmd.Process.Kill()
		}
	}()
	return nil
}

// Cancel stops a running (or not-yet-started) job, transitioning it to
// Cancelled.
func (s *Supervisor) Cancel() error {
	s.mu.Lock()
	started := s.cmd != nil
	s.mu.Unlock()
	if !started {
		return s.job.transition(Cancelled)
	}
	return s.terminate(Cancelled, "cancelled by caller")
}

func (s *Supervisor) wait() {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil {
		return
	}

	err := cmd.Wait()

	s.mu.Lock()
	forced := s.forced
	s.mu.Unlock()

	var exitCode int
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err == nil {
		exitCode = 0
	} else {
		exitCode = -1
	}
	s.job.setExitCode(exitCode)

	target := forced
	if target == 0 && err == nil {
		target = Completed
	} else if target == 0 {
		target = Failed
	}

	if tErr := s.job.transition(target); tErr != nil {
		s.logger.Debug().Err(tErr).Msg("terminal transition rejected (already terminal)")
	}
}

// sampleProcessTree reads CPU/memory/IO/fd/thread counts for pid via
// gopsutil and adds the CPU and memory of its direct children, mirroring the per-process-then-aggregate shape
// the job controller this is grounded on uses.
func sampleProcessTree(pid int) (ResourceStats, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ResourceStats{}, err
	}

	stats := ResourceStats{LastUpdated: time.Now()}

	if cpu, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		stats.MemoryBytes = mem.RSS
	}
	if io, err := proc.IOCounters(); err == nil && io != nil {
		stats.DiskReadBytes = io.ReadBytes
		stats.DiskWriteBytes = io.WriteBytes
	}
	if fds, err := proc.NumFDs(); err == nil {
		stats.OpenFiles = uint32(fds)
	}
	if threads, err := proc.NumThreads(); err == nil {
		stats.ThreadCount = uint32(threads)
	}

	children, err := proc.Children()
	if err == nil {
		stats.ChildProcessCount = uint32(len(children))
		for _, child := range children {
			if cpu, err := child.CPUPercent(); err == nil {
				stats.CPUPercent += cpu
			}
			if mem, err := child.MemoryInfo(); err == nil && mem != nil {
				stats.MemoryBytes += mem.RSS
			}
		}
	}

	return stats, nil
}
