/*
Package pipeline implements the pipeline planner/optimizer and executor: a DAG of Stages is built into a Plan, optionally optimized (stage
fusion, parallelization, locality tagging, resource annotation), then run
under one of three execution modes.

# Architecture

	Plan (DAG of StagePlans) ──optimize──► Plan' ──build──► Pipeline
	                                                            │
	                                    ┌───────────────────────┼───────────────────────┐
	                                    ▼                       ▼                       ▼
	                               Sequential              Pipelined               Parallel
	                           (topological, one           (bounded channel         (shared map,
	                            task, retry w/              per edge, back-         dependency
	                            backoff)                     pressure)               poll)

Cost model: cost(stage) = base[kind] * complexity * (0.7 + 0.3/parallelism).
Optimization levels gate passes: 1 = fusion, 2 = + parallelization, 3 = +
locality + resource annotation + final tuning.

	plan := pipeline.NewPlan("p1")
	plan.AddStage(pipeline.NewStagePlan("f1", pipeline.KindFilter, "a>1"))
	optimized, _ := pipeline.NewOptimizer(pipeline.DefaultOptimizationOptions()).Optimize(plan)
	p := pipeline.Build(optimized, pipeline.DefaultOptions())
	result, err := p.Execute(ctx)
*/
package pipeline
