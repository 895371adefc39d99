package pipeline

import (
	"context"
	"testing"
	"time"
)

func buildSimplePlan(t *testing.T) *Plan {
	t.Helper()
	plan := NewPlan("p1").WithName("echo-pipeline")
	plan.AddStage(NewStagePlan("s1", KindCommand, "echo hello").WithTypes(Empty, Text))
	plan.AddStage(NewStagePlan("s2", KindCommand, "cat").WithDependencies("s1").WithTypes(Text, Text))
	if err := plan.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return plan
}

func TestPlanValidateDetectsCycle(t *testing.T) {
	plan := NewPlan("cyclic")
	plan.AddStage(NewStagePlan("a", KindCommand, "echo a").WithDependencies("b"))
	plan.AddStage(NewStagePlan("b", KindCommand, "echo b").WithDependencies("a"))
	if err := plan.Validate(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestPlanValidateDetectsUnknownDependency(t *testing.T) {
	plan := NewPlan("bad")
	plan.AddStage(NewStagePlan("a", KindCommand, "echo a").WithDependencies("missing"))
	if err := plan.Validate(); err == nil {
		t.Fatal("expected unknown-dependency error")
	}
}

func TestTopoOrderRespectsDependencies(t *testing.T) {
	plan := buildSimplePlan(t)
	order := plan.topoOrder()
	if len(order) != 2 || order[0] != "s1" || order[1] != "s2" {
		t.Fatalf("unexpected order: %v", order)
	}
}

// I3: start_time <= end_time, execution_time_ms reflects actual wall time.
func TestExecuteSequentialTimingMonotonic(t *testing.T) {
	plan := buildSimplePlan(t)
	p := Build(plan, Options{ExecutionMode: Sequential, MaxRetries: 1})
	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.EndTime.Before(result.StartTime) {
		t.Fatalf("end_time %v before start_time %v", result.EndTime, result.StartTime)
	}
	if result.ExecutionTimeMs < 0 {
		t.Fatalf("negative execution time: %d", result.ExecutionTimeMs)
	}
	if result.Status != "completed" {
		t.Fatalf("status = %q, want completed", result.Status)
	}
}

func TestExecutePipelinedRunsToCompletion(t *testing.T) {
	plan := buildSimplePlan(t)
	opts := DefaultOptions()
	p := Build(plan, opts)
	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != "completed" {
		t.Fatalf("status = %q, want completed", result.Status)
	}
}

func TestExecuteParallelRunsToCompletion(t *testing.T) {
	plan := buildSimplePlan(t)
	opts := DefaultOptions()
	opts.ExecutionMode = Parallel
	p := Build(plan, opts)
	result, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != "completed" {
		t.Fatalf("status = %q, want completed", result.Status)
	}
}

func TestExecuteFailingStageSurfacesError(t *testing.T) {
	plan := NewPlan("fail")
	plan.AddStage(NewStagePlan("s1", KindCommand, "exit 7"))
	p := Build(plan, Options{ExecutionMode: Sequential, MaxRetries: 1})
	result, err := p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Status != "failed" {
		t.Fatalf("status = %q, want failed", result.Status)
	}
}

func TestExecuteDoesNotRetryWhenRetryDisabled(t *testing.T) {
	plan := NewPlan("retry")
	plan.AddStage(NewStagePlan("s1", KindCommand, "exit 1"))
	p := Build(plan, Options{ExecutionMode: Sequential, RetryFailedStages: false, MaxRetries: 1})
	start := time.Now()
	_, err := p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("retries should not fire when RetryFailedStages is false")
	}
}

func TestExecuteTypeMismatchRejectedBeforeRunning(t *testing.T) {
	plan := NewPlan("mismatch")
	plan.AddStage(NewStagePlan("s1", KindCommand, "echo a").WithTypes(Empty, Rows))
	plan.AddStage(NewStagePlan("s2", KindCommand, "cat").WithDependencies("s1").WithTypes(KeyValue, Text))
	p := Build(plan, DefaultOptions())
	_, err := p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestExecuteOverallTimeout(t *testing.T) {
	plan := NewPlan("slow")
	plan.AddStage(NewStagePlan("s1", KindCommand, "sleep 2"))
	opts := Options{ExecutionMode: Sequential, MaxRetries: 1, Timeout: 100 * time.Millisecond}
	p := Build(plan, opts)
	_, err := p.Execute(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

// I9: cost(optimize(P, O)) <= cost(P), no duplicated stages, leaf outputs
// remain reachable.
func TestOptimizeNeverIncreasesCost(t *testing.T) {
	plan := NewPlan("cost-check")
	plan.AddStage(NewStagePlan("f1", KindFilter, "a>1"))
	plan.AddStage(NewStagePlan("f2", KindFilter, "b<2").WithDependencies("f1"))
	plan.AddStage(NewStagePlan("m1", KindMap, "x*2").WithDependencies("f2"))

	before := planCost(plan)

	opt := NewOptimizer(OptimizationOptions{Level: 3, EnableStageFusion: true, EnableParallelization: true, EnableDataLocality: true, EnableResourceAnnotation: true})
	optimized, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	after := planCost(optimized)

	if after > before {
		t.Fatalf("optimized cost %f > original cost %f", after, before)
	}

	seen := make(map[string]bool)
	for _, s := range optimized.Stages {
		if seen[s.Name] {
			t.Fatalf("duplicated stage name %q", s.Name)
		}
		seen[s.Name] = true
	}
}

// S3: Filter(a>1), Filter(b<2), Map(x*2) at level 1 -> 2 stages (fused
// Filter AND-combined, then Map), improvement_percent > 0.
func TestOptimizeLevel1FusesAdjacentFilters(t *testing.T) {
	plan := NewPlan("s3")
	plan.AddStage(NewStagePlan("f1", KindFilter, "a>1"))
	plan.AddStage(NewStagePlan("f2", KindFilter, "b<2").WithDependencies("f1"))
	plan.AddStage(NewStagePlan("m1", KindMap, "x*2").WithDependencies("f2"))

	opt := NewOptimizer(OptimizationOptions{Level: 1, EnableStageFusion: true})
	optimized, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if len(optimized.Stages) != 2 {
		t.Fatalf("stage count = %d, want 2", len(optimized.Stages))
	}

	var foundFused bool
	for _, s := range optimized.Stages {
		if s.Kind == KindFilter && s.Expr == "(a>1) AND (b<2)" {
			foundFused = true
		}
	}
	if !foundFused {
		t.Fatalf("expected fused AND-combined filter, stages: %+v", optimized.Stages)
	}

	improvement := optimized.Metadata["improvement_percent"]
	if improvement == "" || improvement == "0.00" {
		t.Fatalf("improvement_percent = %q, want > 0", improvement)
	}
}

func TestOptimizeLevel2AddsParallelism(t *testing.T) {
	plan := NewPlan("s2")
	plan.AddStage(NewStagePlan("c1", KindCommand, "grep a | grep b | grep c | grep d | grep e | grep f | grep g | grep h | grep i"))
	opt := NewOptimizer(OptimizationOptions{Level: 2, EnableParallelization: true})
	optimized, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := optimized.Stages[0].parallelism(); got != 2 {
		t.Fatalf("parallelism = %d, want 2", got)
	}
}

func TestOptimizeLevel3AnnotatesResourcesAndLocality(t *testing.T) {
	plan := NewPlan("s3full")
	plan.AddStage(NewStagePlan("sort1", KindCommand, "sort file.txt"))
	plan.AddStage(NewStagePlan("grep1", KindCommand, "grep x file.txt").WithDependencies("sort1"))

	opt := NewOptimizer(OptimizationOptions{
		Level: 3, EnableStageFusion: true, EnableParallelization: true,
		EnableDataLocality: true, EnableResourceAnnotation: true,
	})
	optimized, err := opt.Optimize(plan)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	for _, s := range optimized.Stages {
		if _, ok := s.Config["memory_limit"]; !ok {
			t.Fatalf("stage %q missing memory_limit annotation", s.Name)
		}
		if _, ok := s.Config["node_affinity"]; !ok {
			t.Fatalf("stage %q missing node_affinity annotation", s.Name)
		}
	}
}

func TestDataCompatibilityWildcard(t *testing.T) {
	if !compatible(Any, Text) {
		t.Fatal("Any should be compatible with Text")
	}
	if !compatible(Text, Any) {
		t.Fatal("Text should be compatible with Any")
	}
	if compatible(Text, Rows) {
		t.Fatal("Text should not be compatible with Rows")
	}
}
