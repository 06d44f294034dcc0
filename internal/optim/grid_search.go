package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/experiment"
)

// GridSearch evaluates every combination of parameter values and keeps the
// one minimising a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters for %d ranges: %w", len(params), len(ranges), dynamo.ErrInvalidParameter)
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Points is the number of runs a search takes.
func (g *GridSearch) Points() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search builds each point with build, runs it and reads metricName. Points
// that fail to build, or stop with errors, are skipped. The error is set
// when no point succeeded or ctx was canceled.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("no grid point produced %s: %w", metricName, dynamo.ErrUnstable)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		exp, err := build(current)
		if err != nil {
			return nil
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}
		val, ok := result.Metrics[metricName]
		if !ok || len(result.Errors) > 0 || math.IsNaN(val) {
			return nil
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, build, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// ConfigBuilder returns a build function applying the grid point to a copy
// of base with config.Set.
func ConfigBuilder(base *config.Config, build func(*config.Config) (*experiment.Experiment, error)) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.Set(name, v); err != nil {
				return nil, err
			}
		}
		return build(cfg)
	}
}
