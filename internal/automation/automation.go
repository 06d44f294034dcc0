package automation

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/experiment"
	"github.com/san-kum/longsim/internal/sim"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset, or a config file when Config is set,
// and overrides the turns, the seed and any parameter accepted by
// config.Set.
type ScenarioStep struct {
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Turns  int                `yaml:"turns"`
	Seed   int64              `yaml:"seed"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step       ScenarioStep
	Experiment *experiment.Experiment
	Result     *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps: %w", scenario.Name, dynamo.ErrInvalidParameter)
	}
	return &scenario, nil
}

// ResolveConfig builds the configuration of a step.
func (s ScenarioStep) ResolveConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q: %w", s.Preset, dynamo.ErrInvalidParameter)
		}
	default:
		cfg = config.DefaultConfig()
	}
	if s.Turns > 0 {
		cfg.Turns = s.Turns
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	for name, v := range s.Params {
		if err := cfg.Set(name, v); err != nil {
			return nil, err
		}
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, logger *log.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.ResolveConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Printf("step %d/%d: %s, %d turns", i+1, len(scenario.Steps), cfg.Name, cfg.Turns)

		exp, err := experiment.New(cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Experiment: exp, Result: result})
	}

	return results, nil
}

// ParameterSweep runs Base with Param set to NumSteps evenly spaced values.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min, Max float64
	NumSteps int
}

type SweepResult struct {
	Value      float64
	TurnsTaken int
	Metrics    map[string]float64
	Errors     []error
}

// Stable reports whether the run completed without errors.
func (r SweepResult) Stable() bool { return len(r.Errors) == 0 }

func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *log.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%d sweep steps: %w", sweep.NumSteps, dynamo.ErrInvalidParameter)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	values := analysis.Linspace(sweep.Min, sweep.Max, sweep.NumSteps)
	results := make([]SweepResult, 0, len(values))

	for i, v := range values {
		cfg := sweep.Base.Clone()
		if err := cfg.Set(sweep.Param, v); err != nil {
			return nil, err
		}
		exp, err := experiment.New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, SweepResult{
			Value:      v,
			TurnsTaken: result.TurnsTaken,
			Metrics:    result.Metrics,
			Errors:     result.Errors,
		})
		logger.Printf("sweep %d/%d: %s=%g", i+1, len(values), sweep.Param, v)
	}

	return results, nil
}

// MonteCarloConfig repeats Base over NumTrials seeds with the bunch length
// jittered uniformly by ±SigmaDtJitter (relative).
type MonteCarloConfig struct {
	Base          *config.Config
	NumTrials     int
	Seed          int64
	SigmaDtJitter float64
	// MaxLoss is the largest loss fraction of a stable trial.
	MaxLoss float64
}

type MonteCarloResult struct {
	TrialID  int
	Seed     int64
	SigmaDt  float64
	Metrics  map[string]float64
	Stable   bool
	Failures []error
}

// trialConfig derives the configuration of one trial from its seed only, so
// trials can be built concurrently and in any order.
func (cfg *MonteCarloConfig) trialConfig(seed int64) *config.Config {
	rng := rand.New(rand.NewSource(seed))
	c := cfg.Base.Clone()
	c.Seed = seed
	c.Beam.SigmaDt *= 1 + cfg.SigmaDtJitter*(2*rng.Float64()-1)
	return c
}

// RunMonteCarlo tracks every trial concurrently.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *log.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%d trials: %w", cfg.NumTrials, dynamo.ErrInvalidParameter)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	build := func(seed int64) (*sim.Simulator, error) {
		exp, err := experiment.New(cfg.trialConfig(seed), logger)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}

	runs, err := sim.NewEnsemble(build, cfg.NumTrials, cfg.Seed).Run(ctx, cfg.Base.SimConfig())
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		seed := cfg.Seed + int64(i)
		results[i] = MonteCarloResult{
			TrialID:  i,
			Seed:     seed,
			SigmaDt:  cfg.trialConfig(seed).Beam.SigmaDt,
			Metrics:  r.Metrics,
			Stable:   len(r.Errors) == 0 && r.Metrics["loss_fraction"] <= cfg.MaxLoss,
			Failures: r.Errors,
		}
	}
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
