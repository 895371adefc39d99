package pipeline

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// ExecutionMode selects how a Pipeline's stages are scheduled.
type ExecutionMode int

const (
	Sequential ExecutionMode = iota
	Pipelined
	Parallel
)

func (m ExecutionMode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Pipelined:
		return "pipelined"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Options configures a built Pipeline's execution.
type Options struct {
	ChannelBufferSize int
	Timeout           time.Duration // 0 = no overall timeout
	RetryFailedStages bool
	MaxRetries        int
	ExecutionMode     ExecutionMode
}

// DefaultOptions mirrors the reference executor's defaults.
func DefaultOptions() Options {
	return Options{
		ChannelBufferSize: 100,
		RetryFailedStages: true,
		MaxRetries:        3,
		ExecutionMode:     Pipelined,
	}
}

// StageMetrics records one stage's execution window.
type StageMetrics struct {
	StageName       string
	StartTime       time.Time
	EndTime         time.Time
	ExecutionTimeMs int64
	Success         bool
}

// Result is a pipeline's outcome.
type Result struct {
	StartTime          time.Time
	EndTime            time.Time
	ExecutionTimeMs    int64
	ProcessedDataBytes uint64
	StageMetrics       []StageMetrics
	Output             Data
	Status             string // "completed", "failed", "cancelled", "timed_out"
	Err                error
}

// Pipeline wraps an (optimized) Plan with an execution engine.
type Pipeline struct {
	id      string
	name    string
	plan    *Plan
	opts    Options
	logger  zerolog.Logger

	mu      sync.RWMutex
	state   string // "initial", "running", "completed", "failed", "cancelled"
	current string

	cancel context.CancelFunc
}

// Build constructs a Pipeline ready to Execute from an already-validated
// (and typically already-optimized) Plan.
func Build(plan *Plan, opts Options) *Pipeline {
	return &Pipeline{
		id:     plan.ID,
		name:   plan.Name,
		plan:   plan,
		opts:   opts,
		logger: log.WithPipelineID(plan.ID),
		state:  "initial",
	}
}

func (p *Pipeline) ID() string   { return p.id }
func (p *Pipeline) Name() string { return p.name }

// Snapshot returns a consistent view of the pipeline's current state.
func (p *Pipeline) Snapshot() (state, current string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state, p.current
}

func (p *Pipeline) setState(s string)   { p.mu.Lock(); p.state = s; p.mu.Unlock() }
func (p *Pipeline) setCurrent(s string) { p.mu.Lock(); p.current = s; p.mu.Unlock() }

// Cancel signals every running stage to stop. If the pipeline is not
// running it returns ErrCancellationFailed.
func (p *Pipeline) Cancel() error {
	p.mu.RLock()
	cancel := p.cancel
	p.mu.RUnlock()
	if cancel == nil {
		return fmt.Errorf("%w: pipeline not running", ErrCancellationFailed)
	}
	cancel()
	return nil
}

// Execute type-checks adjacent stages, then dispatches to the configured
// execution mode.
func (p *Pipeline) Execute(ctx context.Context) (*Result, error) {
	if len(p.plan.Stages) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrPipelineConstructionFailed)
	}
	if err := p.checkTypes(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if p.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, p.opts.Timeout)
	}
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	p.setState("running")
	pipelineExecutions.Inc()
	pipelineRunning.Inc()
	defer pipelineRunning.Dec()

	result := &Result{StartTime: time.Now(), StageMetrics: make([]StageMetrics, len(p.plan.Stages))}

	var err error
	switch p.opts.ExecutionMode {
	case Sequential:
		err = p.executeSequential(runCtx, result)
	case Pipelined:
		err = p.executePipelined(runCtx, result)
	case Parallel:
		err = p.executeParallel(runCtx, result)
	default:
		err = p.executeSequential(runCtx, result)
	}

	result.EndTime = time.Now()
	result.ExecutionTimeMs = result.EndTime.Sub(result.StartTime).Milliseconds()
	pipelineExecutionTime.Observe(float64(result.ExecutionTimeMs))

	switch {
	case err == nil:
		result.Status = "completed"
		p.setState("completed")
		pipelineCompletions.Inc()
	case runCtx.Err() == context.Canceled && ctx.Err() == nil:
		result.Status = "cancelled"
		p.setState("cancelled")
		pipelineCancellations.Inc()
		err = ErrCancellationFailed
	case runCtx.Err() == context.DeadlineExceeded:
		result.Status = "timed_out"
		p.setState("failed")
		pipelineFailures.Inc()
		err = ErrTimeout
	default:
		result.Status = "failed"
		p.setState("failed")
		pipelineFailures.Inc()
	}
	result.Err = err

	return result, err
}

// checkTypes verifies declared input/output DataKind compatibility between
// each stage and every stage that depends on it.
func (p *Pipeline) checkTypes() error {
	for _, s := range p.plan.Stages {
		for _, depName := range s.Dependencies {
			dep, ok := p.plan.stageByName(depName)
			if !ok {
				continue
			}
			if !compatible(dep.OutputType, s.InputType) {
				return fmt.Errorf("%w: stage %q output %s incompatible with stage %q input %s",
					ErrTypeMismatch, dep.Name, dep.OutputType, s.Name, s.InputType)
			}
		}
	}
	return nil
}

// executeSequential runs stages in topological order on the calling
// goroutine, feeding each stage's output to the next, with optional retry.
func (p *Pipeline) executeSequential(ctx context.Context, result *Result) error {
	order := p.plan.topoOrder()
	current := EmptyData()

	for i, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		stage, _ := p.plan.stageByName(name)
		p.setCurrent(name)

		start := time.Now()
		var (
			out Data
			err error
		)
		attempts := 0
		maxAttempts := 1
		if p.opts.RetryFailedStages {
			maxAttempts = p.opts.MaxRetries
		}
		for {
			attempts++
			out, err = runStage(ctx, stage, current)
			if err == nil {
				break
			}
			if attempts >= maxAttempts {
				break
			}
			stageRetries.WithLabelValues(stage.Name).Inc()
			p.logger.Warn().Str("stage", stage.Name).Int("attempt", attempts).Err(err).Msg("stage failed, retrying")
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		end := time.Now()
		result.StageMetrics[i] = StageMetrics{
			StageName:       stage.Name,
			StartTime:       start,
			EndTime:         end,
			ExecutionTimeMs: end.Sub(start).Milliseconds(),
			Success:         err == nil,
		}
		stageExecutionTime.WithLabelValues(stage.Kind.String()).Observe(float64(end.Sub(start).Milliseconds()))

		if err != nil {
			return fmt.Errorf("%w: stage %q: %v", ErrStageExecutionFailed, stage.Name, err)
		}
		current = out
	}
	result.Output = current
	return nil
}

// executePipelined runs every stage concurrently, connected by bounded
// channels forming the DAG edges; back-pressure comes from the channel.
func (p *Pipeline) executePipelined(ctx context.Context, result *Result) error {
	order := p.plan.topoOrder()
	bufSize := p.opts.ChannelBufferSize
	if bufSize <= 0 {
		bufSize = 1
	}

	outputs := make(map[string]chan Data, len(order))
	for _, name := range order {
		outputs[name] = make(chan Data, bufSize)
	}

	errCh := make(chan error, len(order))
	var wg sync.WaitGroup

	for i, name := range order {
		stage, _ := p.plan.stageByName(name)
		idx := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(outputs[stage.Name])

			var input Data
			if len(stage.Dependencies) == 0 {
				input = EmptyData()
			} else {
				select {
				case v, ok := <-outputs[stage.Dependencies[0]]:
					if !ok {
						errCh <- fmt.Errorf("%w: upstream %q closed without output", ErrDataTransferFailed, stage.Dependencies[0])
						return
					}
					input = v
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}

			start := time.Now()
			out, err := runStage(ctx, stage, input)
			end := time.Now()
			result.StageMetrics[idx] = StageMetrics{
				StageName: stage.Name, StartTime: start, EndTime: end,
				ExecutionTimeMs: end.Sub(start).Milliseconds(), Success: err == nil,
			}
			stageExecutionTime.WithLabelValues(stage.Kind.String()).Observe(float64(end.Sub(start).Milliseconds()))

			if err != nil {
				errCh <- fmt.Errorf("%w: stage %q: %v", ErrStageExecutionFailed, stage.Name, err)
				return
			}
			select {
			case outputs[stage.Name] <- out:
			case <-ctx.Done():
				errCh <- ctx.Err()
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	if len(order) > 0 {
		last, _ := p.plan.stageByName(order[len(order)-1])
		p.setCurrent(last.Name)
	}
	return nil
}

// executeParallel runs every stage concurrently, storing each stage's
// output in a shared map; a stage with a dependency polls that map with a
// short sleep until the dependency's output appears.
func (p *Pipeline) executeParallel(ctx context.Context, result *Result) error {
	order := p.plan.topoOrder()

	var mu sync.Mutex
	store := make(map[string]Data, len(order))

	errCh := make(chan error, len(order))
	var wg sync.WaitGroup

	for i, name := range order {
		stage, _ := p.plan.stageByName(name)
		idx := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			for _, dep := range stage.Dependencies {
				for {
					mu.Lock()
					_, ready := store[dep]
					mu.Unlock()
					if ready {
						break
					}
					select {
					case <-time.After(100 * time.Millisecond):
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				}
			}

			input := EmptyData()
			if len(stage.Dependencies) > 0 {
				mu.Lock()
				input = store[stage.Dependencies[0]]
				mu.Unlock()
			}

			start := time.Now()
			out, err := runStage(ctx, stage, input)
			end := time.Now()
			result.StageMetrics[idx] = StageMetrics{
				StageName: stage.Name, StartTime: start, EndTime: end,
				ExecutionTimeMs: end.Sub(start).Milliseconds(), Success: err == nil,
			}
			stageExecutionTime.WithLabelValues(stage.Kind.String()).Observe(float64(end.Sub(start).Milliseconds()))

			if err != nil {
				errCh <- fmt.Errorf("%w: stage %q: %v", ErrStageExecutionFailed, stage.Name, err)
				return
			}
			mu.Lock()
			store[stage.Name] = out
			mu.Unlock()
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	if len(order) > 0 {
		last := order[len(order)-1]
		p.setCurrent(last)
		mu.Lock()
		result.Output = store[last]
		mu.Unlock()
	}
	return nil
}

// runStage executes a single stage against input, dispatching on its Kind.
// Command/Pipe/Redirect/Subshell stages shell out via /bin/sh -c; Filter and
// Map apply a small, non-Turing-complete expression form (no bundled
// scripting engine, per the platform's stated non-goal) to Text/Rows data.
func runStage(ctx context.Context, s *StagePlan, input Data) (Data, error) {
	switch s.Kind {
	case KindCommand, KindPipe, KindRedirect, KindSubshell:
		return runCommandStage(ctx, s, input)
	case KindFilter:
		return runFilterStage(s, input)
	case KindMap:
		return runMapStage(s, input)
	case KindAggregate:
		return runAggregateStage(s, input)
	default:
		return input, nil
	}
}

func runCommandStage(ctx context.Context, s *StagePlan, input Data) (Data, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.Expr)
	if input.Kind == Text {
		cmd.Stdin = strings.NewReader(input.Text)
	} else if input.Kind == Bytes {
		cmd.Stdin = strings.NewReader(string(input.Bytes))
	}
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return Data{}, fmt.Errorf("exit %d: %s", ee.ExitCode(), strings.TrimSpace(string(ee.Stderr)))
		}
		return Data{}, err
	}
	return Data{Kind: Text, Text: string(out)}, nil
}

// runFilterStage keeps the Rows (or Text lines) that match every
// predicate. Each predicate is a plain substring test (see matchesOne):
// comparison operators such as ">" or "==" are not evaluated. AND-fused
// predicates (from the optimizer) are of the form "(p1) AND (p2)".
func runFilterStage(s *StagePlan, input Data) (Data, error) {
	preds := splitFusedAnd(s.Expr)

	switch input.Kind {
	case Rows:
		var kept [][]string
		for _, row := range input.Rows {
			if matchesAll(preds, row) {
				kept = append(kept, row)
			}
		}
		return Data{Kind: Rows, Rows: kept}, nil
	case Text:
		lines := strings.Split(input.Text, "\n")
		var kept []string
		for _, line := range lines {
			if matchesAllText(preds, line) {
				kept = append(kept, line)
			}
		}
		return Data{Kind: Text, Text: strings.Join(kept, "\n")}, nil
	default:
		return input, nil
	}
}

func splitFusedAnd(expr string) []string {
	if !strings.Contains(expr, ") AND (") {
		return []string{expr}
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")")
	return strings.Split(trimmed, ") AND (")
}

func matchesAllText(preds []string, line string) bool {
	for _, p := range preds {
		if !strings.Contains(line, strings.TrimSpace(p)) {
			return false
		}
	}
	return true
}

func matchesAll(preds []string, row []string) bool {
	for _, p := range preds {
		if !matchesOne(p, row) {
			return false
		}
	}
	return true
}

// matchesOne is a deliberately small predicate evaluator: substring
// containment against the joined row. A richer column-typed comparison
// language is out of scope (no bundled scripting engine).
func matchesOne(pred string, row []string) bool {
	return strings.Contains(strings.Join(row, " "), strings.TrimSpace(pred))
}

// runMapStage applies a "find=>replace" or "s/find/replace/" style
// transform to each line of Text, or passes Rows through the same
// substitution per-cell. Composed fusions ("e1 >> e2") apply sequentially.
func runMapStage(s *StagePlan, input Data) (Data, error) {
	exprs := strings.Split(s.Expr, " >> ")

	apply := func(v string) string {
		for _, e := range exprs {
			v = applyMapExpr(e, v)
		}
		return v
	}

	switch input.Kind {
	case Text:
		lines := strings.Split(input.Text, "\n")
		for i, l := range lines {
			lines[i] = apply(l)
		}
		return Data{Kind: Text, Text: strings.Join(lines, "\n")}, nil
	case Rows:
		out := make([][]string, len(input.Rows))
		for i, row := range input.Rows {
			newRow := make([]string, len(row))
			for j, cell := range row {
				newRow[j] = apply(cell)
			}
			out[i] = newRow
		}
		return Data{Kind: Rows, Rows: out}, nil
	default:
		return input, nil
	}
}

func applyMapExpr(expr, v string) string {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "s/") {
		parts := strings.SplitN(expr, "/", 3)
		if len(parts) == 3 {
			return strings.ReplaceAll(v, parts[1], strings.TrimSuffix(parts[2], "/"))
		}
	}
	if idx := strings.Index(expr, "=>"); idx >= 0 {
		from := strings.TrimSpace(expr[:idx])
		to := strings.TrimSpace(expr[idx+2:])
		return strings.ReplaceAll(v, from, to)
	}
	return v
}

func runAggregateStage(s *StagePlan, input Data) (Data, error) {
	switch input.Kind {
	case Rows:
		return Data{Kind: Text, Text: fmt.Sprintf("%d rows", len(input.Rows))}, nil
	case Text:
		return Data{Kind: Text, Text: fmt.Sprintf("%d lines", len(strings.Split(input.Text, "\n")))}, nil
	default:
		return input, nil
	}
}
