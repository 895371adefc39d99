package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusshell/nexuscore/pkg/asyncruntime"
)

const defaultOutputLimit = 1 << 20 // 1 MiB

// Option configures a Job at construction time.
type Option func(*Job)

func WithPriority(p Priority) Option { return func(j *Job) { j.priority = p } }
func WithLimits(l ResourceLimits) Option {
	return func(j *Job) { j.limits = l }
}
func WithOutputLimit(n int) Option { return func(j *Job) { j.outputLimit = n } }
func WithSaveOutput(save bool) Option {
	return func(j *Job) { j.saveOutput = save }
}
func WithIdleTimeout(d time.Duration) Option { return func(j *Job) { j.idleTimeout = d } }
func WithStopSignal(sig int) Option {
	return func(j *Job) { j.stopSignal = sig }
}
func WithWorkingDir(dir string) Option { return func(j *Job) { j.workingDir = dir } }
func WithUserID(id string) Option      { return func(j *Job) { j.userID = id } }
func WithLabel(key, value string) Option {
	return func(j *Job) { j.labels[key] = value }
}
func WithEnv(key, value string) Option {
	return func(j *Job) { j.env[key] = value }
}
func WithDomain(d asyncruntime.ExecutionDomain) Option {
	return func(j *Job) { j.domain = d }
}

// Job is a process-backed unit of work driven through the C2 state machine
// by a Supervisor. All exported accessors are safe for concurrent use.
type Job struct {
	id      uuid.UUID
	command string
	kind    Kind

	mu               sync.RWMutex
	priority         Priority
	status           Status
	createdAt        time.Time
	startedAt        *time.Time
	finishedAt       *time.Time
	pid              *int
	exitCode         *int
	errorDetails     string
	executionCount   uint32
	resourceStats    ResourceStats
	lastOutputAt     time.Time

	outMu  sync.Mutex
	stdout []byte
	stderr []byte

	workingDir  string
	env         map[string]string
	labels      map[string]string
	userID      string
	outputLimit int
	saveOutput  bool
	idleTimeout time.Duration
	limits      ResourceLimits
	stopSignal  int
	domain      asyncruntime.ExecutionDomain

	done chan struct{}
}

// New constructs a Pending job for the given kind and shell command line.
// Command parsing (splitting into a binary path plus arguments) is left to
// the Supervisor, which is the sole component that actually execs it.
func New(kind Kind, command string, opts ...Option) *Job {
	j := &Job{
		id:          uuid.New(),
		command:     command,
		kind:        kind,
		priority:    PriorityNormal,
		status:      Pending,
		createdAt:   time.Now(),
		env:         make(map[string]string),
		labels:      make(map[string]string),
		outputLimit: defaultOutputLimit,
		saveOutput:  true,
		stopSignal:  15, // SIGTERM
		domain:      asyncruntime.IO,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Job) ID() uuid.UUID                        { return j.id }
func (j *Job) Command() string                      { return j.command }
func (j *Job) Kind() Kind                            { return j.kind }
func (j *Job) Domain() asyncruntime.ExecutionDomain { return j.domain }
func (j *Job) CreatedAt() time.Time                 { return j.createdAt }

func (j *Job) Priority() Priority {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.priority
}

func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Done returns a channel closed once the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) StartedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.startedAt
}

func (j *Job) FinishedAt() *time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.finishedAt
}

// Runtime returns time since Running was entered, or since Running until
// FinishedAt if the job has already terminated. Returns 0 if never started.
func (j *Job) Runtime() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.startedAt == nil {
		return 0
	}
	end := time.Now()
	if j.finishedAt != nil {
		end = *j.finishedAt
	}
	return end.Sub(*j.startedAt)
}

func (j *Job) PID() *int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.pid
}

func (j *Job) ExitCode() *int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.exitCode
}

func (j *Job) ErrorDetails() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.errorDetails
}

func (j *Job) ExecutionCount() uint32 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.executionCount
}

func (j *Job) ResourceStats() ResourceStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.resourceStats
}

func (j *Job) Labels() map[string]string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make(map[string]string, len(j.labels))
	for k, v := range j.labels {
		out[k] = v
	}
	return out
}

func (j *Job) UserID() string { return j.userID }

func (j *Job) Stdout() []byte {
	j.outMu.Lock()
	defer j.outMu.Unlock()
	out := make([]byte, len(j.stdout))
	copy(out, j.stdout)
	return out
}

func (j *Job) Stderr() []byte {
	j.outMu.Lock()
	defer j.outMu.Unlock()
	out := make([]byte, len(j.stderr))
	copy(out, j.stderr)
	return out
}

// transition attempts to move the job to `to`, rejecting the move if it is
// not a legal edge from the current status. Terminal states close Done.
func (j *Job) transition(to Status) error {
	j.mu.Lock()
	from := j.status
	if !canTransition(from, to) {
		j.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	j.status = to
	now := time.Now()

	switch to {
	case Running:
		if j.startedAt == nil {
			j.startedAt = &now
		}
		if from != Running {
			j.executionCount++
		}
	case Completed, Failed, Cancelled, TimedOut, ResourceExceeded:
		if j.finishedAt == nil {
			j.finishedAt = &now
		}
	}
	runtime := -1.0
	if to.Terminal() && j.startedAt != nil {
		runtime = j.finishedAt.Sub(*j.startedAt).Seconds()
	}
	j.mu.Unlock()

	if to == Running && from != Running {
		jobStarts.Inc()
	}
	if to.Terminal() {
		recordTerminal(to, runtime)
		close(j.done)
	}
	return nil
}

func (j *Job) setErrorDetails(msg string) {
	j.mu.Lock()
	j.errorDetails = msg
	j.mu.Unlock()
}

func (j *Job) setPID(pid int) {
	j.mu.Lock()
	j.pid = &pid
	j.mu.Unlock()
}

func (j *Job) setExitCode(code int) {
	j.mu.Lock()
	j.exitCode = &code
	j.mu.Unlock()
}

func (j *Job) updateResourceStats(s ResourceStats) {
	j.mu.Lock()
	j.resourceStats = s
	j.mu.Unlock()
}

// appendStdout and appendStderr append to the job's stdout/stderr buffer up
// to outputLimit bytes, dropping
// the remainder and logging a one-shot warning via the returned bool.
func (j *Job) appendStdout(data []byte) (dropped bool) {
	return j.appendTo(&j.stdout, data)
}

func (j *Job) appendStderr(data []byte) (dropped bool) {
	return j.appendTo(&j.stderr, data)
}

func (j *Job) appendTo(buf *[]byte, data []byte) bool {
	if !j.saveOutput || len(data) == 0 {
		j.markOutputActivity()
		return false
	}
	j.outMu.Lock()
	defer j.outMu.Unlock()
	j.markOutputActivity()

	room := j.outputLimit - len(*buf)
	if room <= 0 {
		return true
	}
	if room < len(data) {
		*buf = append(*buf, data[:room]...)
		return true
	}
	*buf = append(*buf, data...)
	return false
}

func (j *Job) markOutputActivity() {
	j.mu.Lock()
	j.lastOutputAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) lastOutput() time.Time {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.lastOutputAt
}

// Summary returns a short single-line description, the Go analogue of the
// original controller's summary().
func (j *Job) Summary() string {
	return fmt.Sprintf("job %s: %q [%s] status=%s", j.id, j.command, j.kind, j.Status())
}

// Details returns a longer description including pid/exit code/runtime,
// the analogue of the original controller's details().
func (j *Job) Details() string {
	pid := "none"
	if p := j.PID(); p != nil {
		pid = fmt.Sprintf("%d", *p)
	}
	exit := "none"
	if c := j.ExitCode(); c != nil {
		exit = fmt.Sprintf("%d", *c)
	}
	return fmt.Sprintf("%s pid=%s exit_code=%s runtime=%s", j.Summary(), pid, exit, j.Runtime())
}
