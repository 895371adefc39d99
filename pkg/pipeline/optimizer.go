package pipeline

import (
	"sort"
	"strconv"
	"strings"
)

// OptimizationOptions gates each pass; level implies which passes run
// (1: fusion, 2: +parallelization, 3: +locality +resource annotation
// +final tuning), but individual passes can also be disabled outright.
type OptimizationOptions struct {
	Level                   int
	EnableStageFusion       bool
	EnableParallelization   bool
	EnableDataLocality      bool
	EnableResourceAnnotation bool
}

// DefaultOptimizationOptions returns level 1 with every pass enabled (the
// level gates which actually fire).
func DefaultOptimizationOptions() OptimizationOptions {
	return OptimizationOptions{
		Level:                    1,
		EnableStageFusion:        true,
		EnableParallelization:    true,
		EnableDataLocality:       true,
		EnableResourceAnnotation: true,
	}
}

// costFactors mirrors the base-cost-per-kind table.
var costFactors = map[StageKind]float64{
	KindCommand:   10,
	KindPipe:      5,
	KindFilter:    3,
	KindMap:       4,
	KindRedirect:  7,
	KindSubshell:  15,
	KindAggregate: 10,
	KindTransform: 10,
}

// stageCost implements cost(stage) = base[kind] * complexity * (0.7 +
// 0.3/parallelism), complexity = 1.5 + 0.5*|pipes| for commands, else 1.
func stageCost(s *StagePlan) float64 {
	base, ok := costFactors[s.Kind]
	if !ok {
		base = 10
	}

	complexity := 1.0
	if s.Kind == KindCommand {
		pipes := strings.Count(s.Expr, "|")
		complexity = 1.5 + 0.5*float64(pipes)
	}

	parallelism := float64(s.parallelism())
	parallelFactor := 1.0
	if parallelism > 1 {
		parallelFactor = 0.7 + 0.3/parallelism
	}

	return base * complexity * parallelFactor
}

// planCost sums stageCost over every stage in the plan.
func planCost(p *Plan) float64 {
	var total float64
	for _, s := range p.Stages {
		total += stageCost(s)
	}
	return total
}

// Optimizer applies optimization passes to a Plan per OptimizationOptions.
type Optimizer struct {
	opts OptimizationOptions
}

func NewOptimizer(opts OptimizationOptions) *Optimizer {
	return &Optimizer{opts: opts}
}

// Optimize rewrites plan per the configured level and records
// original/optimized cost and improvement percent in the result's metadata.
// It never mutates the input plan.
func (o *Optimizer) Optimize(plan *Plan) (*Plan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	originalCost := planCost(plan)
	result := plan.clone()

	if o.opts.Level >= 1 && o.opts.EnableStageFusion {
		result = fuseStages(result)
	}
	if o.opts.Level >= 2 && o.opts.EnableParallelization {
		result = parallelize(result)
	}
	if o.opts.Level >= 3 && o.opts.EnableDataLocality {
		result = annotateLocality(result)
	}
	if o.opts.Level >= 3 && o.opts.EnableResourceAnnotation {
		result = annotateResources(result)
	}
	if o.opts.Level >= 3 {
		result = finalTuning(result)
	}

	optimizedCost := planCost(result)
	improvement := 0.0
	if originalCost > 0 {
		improvement = (originalCost - optimizedCost) / originalCost * 100
	}
	result.setOptimizationMetadata(o.opts.Level, originalCost, optimizedCost, improvement)

	return result, nil
}

// canFuse reports whether two adjacent stages are fusion candidates: both
// Filter, both Map, or a simple echo|{grep,sed} command pair.
func canFuse(a, b *StagePlan) bool {
	switch {
	case a.Kind == KindFilter && b.Kind == KindFilter:
		return true
	case a.Kind == KindMap && b.Kind == KindMap:
		return true
	case a.Kind == KindCommand && b.Kind == KindCommand:
		return strings.Contains(a.Expr, "echo") &&
			(strings.Contains(b.Expr, "grep") || strings.Contains(b.Expr, "sed"))
	default:
		return false
	}
}

// fuseStage merges a into b (a feeds b) per the appropriate kind rule.
func fuseStage(a, b *StagePlan) *StagePlan {
	fused := NewStagePlan("fused_"+a.Name+"_"+b.Name, a.Kind, "")
	switch {
	case a.Kind == KindFilter:
		fused.Expr = "(" + a.Expr + ") AND (" + b.Expr + ")"
	case a.Kind == KindMap:
		fused.Expr = a.Expr + " >> " + b.Expr
	default:
		fused.Kind = KindCommand
		fused.Expr = a.Expr + " | " + b.Expr
	}
	for k, v := range a.Config {
		fused.Config["1_"+k] = v
	}
	for k, v := range b.Config {
		fused.Config["2_"+k] = v
	}
	deps := append([]string(nil), a.Dependencies...)
	deps = append(deps, b.Dependencies...)
	fused.Dependencies = deps
	fused.InputType = a.InputType
	fused.OutputType = b.OutputType
	return fused
}

type fusionCandidate struct {
	i, j      int
	reduction float64
}

// fuseStages finds every adjacent-pair fusion candidate, applies the
// highest cost-reduction ones first, and never reuses an index across two
// fusions (greedy, matching the reference optimizer).
func fuseStages(p *Plan) *Plan {
	stages := p.Stages
	if len(stages) <= 1 {
		return p
	}

	var candidates []fusionCandidate
	for i := 0; i < len(stages)-1; i++ {
		j := i + 1
		if !canFuse(stages[i], stages[j]) {
			continue
		}
		before := stageCost(stages[i]) + stageCost(stages[j])
		fused := fuseStage(stages[i], stages[j])
		after := stageCost(fused)
		candidates = append(candidates, fusionCandidate{i: i, j: j, reduction: before - after})
	}
	if len(candidates) == 0 {
		return p
	}

	sort.Slice(candidates, func(a, b int) bool { return candidates[a].reduction > candidates[b].reduction })

	fusedIdx := make(map[int]bool)
	rename := make(map[string]string)
	var newStages []*StagePlan
	for _, c := range candidates {
		if c.reduction <= 0 || fusedIdx[c.i] || fusedIdx[c.j] {
			continue
		}
		fused := fuseStage(stages[c.i], stages[c.j])
		rename[stages[c.i].Name] = fused.Name
		rename[stages[c.j].Name] = fused.Name
		newStages = append(newStages, fused)
		fusedIdx[c.i] = true
		fusedIdx[c.j] = true
	}
	for i, s := range stages {
		if !fusedIdx[i] {
			newStages = append(newStages, s)
		}
	}
	// point dependencies on fused-away stages at their fused replacement
	for _, s := range newStages {
		var deps []string
		for _, d := range s.Dependencies {
			if r, ok := rename[d]; ok {
				d = r
			}
			if d != s.Name {
				deps = append(deps, d)
			}
		}
		s.Dependencies = deps
	}

	out := NewPlan(p.ID).WithName(p.Name)
	out.Stages = newStages
	for k, v := range p.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func isParallelizable(s *StagePlan) bool {
	switch s.Kind {
	case KindFilter, KindMap:
		return true
	case KindCommand:
		return strings.Contains(s.Expr, "grep") || strings.Contains(s.Expr, "sort") || strings.Contains(s.Expr, "find")
	default:
		return false
	}
}

// determineParallelism derives a degree from estimated base cost: >100 -> 4,
// >50 -> 2, else 1.
func determineParallelism(s *StagePlan) int {
	cost := stageCost(s)
	switch {
	case cost > 100:
		return 4
	case cost > 50:
		return 2
	default:
		return 1
	}
}

func parallelize(p *Plan) *Plan {
	out := p.clone()
	for _, s := range out.Stages {
		if !isParallelizable(s) {
			continue
		}
		n := determineParallelism(s)
		if n <= 1 {
			continue
		}
		s.Config["parallelism"] = strconv.Itoa(n)
		s.Config["parallel_execution"] = "true"
	}
	return out
}

// annotateLocality assigns a node_affinity tag inherited from a stage's
// first dependency, or a freshly minted tag if it has none.
func annotateLocality(p *Plan) *Plan {
	out := p.clone()
	affinity := make(map[string]string, len(out.Stages))
	next := 0
	for _, s := range out.Stages {
		tag := ""
		for _, dep := range s.Dependencies {
			if t, ok := affinity[dep]; ok {
				tag = t
				break
			}
		}
		if tag == "" {
			tag = "node-" + strconv.Itoa(next)
			next++
		}
		affinity[s.Name] = tag
		s.Config["node_affinity"] = tag
	}
	return out
}

// annotateResources assigns heuristic memory/cpu limits by stage name/kind.
func annotateResources(p *Plan) *Plan {
	out := p.clone()
	for _, s := range out.Stages {
		switch s.Kind {
		case KindCommand:
			lower := strings.ToLower(s.Expr)
			switch {
			case strings.Contains(lower, "sort"):
				s.Config["memory_limit"] = "256000000"
				s.Config["cpu_limit"] = "0.8"
			case strings.Contains(lower, "grep"), strings.Contains(lower, "find"):
				s.Config["memory_limit"] = "64000000"
				s.Config["cpu_limit"] = "0.5"
			default:
				s.Config["memory_limit"] = "32000000"
				s.Config["cpu_limit"] = "0.2"
			}
		case KindFilter, KindMap:
			s.Config["memory_limit"] = "16000000"
			s.Config["cpu_limit"] = "0.1"
		}
	}
	return out
}

// finalTuning enforces the safety floors/ceilings: parallelism <= 4,
// memory_limit >= 8 MB.
func finalTuning(p *Plan) *Plan {
	out := p.clone()
	for _, s := range out.Stages {
		if s.parallelism() > 4 {
			s.Config["parallelism"] = "4"
		}
		if v, ok := s.Config["memory_limit"]; ok {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n < 8_000_000 {
				s.Config["memory_limit"] = "8000000"
			}
		}
	}
	return out
}
