package optim

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/experiment"
)

func quietBuild(cfg *config.Config) (*experiment.Experiment, error) {
	return experiment.New(cfg, log.New(io.Discard, "", 0))
}

func base() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Turns = 10
	cfg.Beam.Particles = 500
	return cfg
}

func TestNewGridSearch(t *testing.T) {
	if _, err := NewGridSearch([]string{"rf.voltage"}, nil); err == nil {
		t.Error("expected error for missing range")
	}
	g, err := NewGridSearch([]string{"rf.voltage", "beam.intensity"}, [][]float64{{1, 2, 3}, {4, 5}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Points() != 6 {
		t.Errorf("expected 6 points, got %d", g.Points())
	}
}

func TestSearchVisitsEveryPoint(t *testing.T) {
	g, _ := NewGridSearch([]string{"rf.voltage", "beam.intensity"}, [][]float64{{5e6, 6e6}, {1e9, 2e9}})
	visited := 0
	build := ConfigBuilder(base(), func(cfg *config.Config) (*experiment.Experiment, error) {
		visited++
		return quietBuild(cfg)
	})
	params, _, err := g.Search(context.Background(), build, "loss_fraction")
	if err != nil {
		t.Fatal(err)
	}
	if visited != 4 {
		t.Errorf("expected 4 builds, got %d", visited)
	}
	if len(params) != 2 {
		t.Errorf("expected both parameters in the optimum, got %v", params)
	}
}

func TestSearchFindsMinimum(t *testing.T) {
	// sigma_de_growth divides the largest spread by the first one.
	cfg := base()
	cfg.Beam.SigmaDE = 2e8
	g, _ := NewGridSearch([]string{"rf.voltage"}, [][]float64{{1e6, 6e6, 12e6}})
	params, best, err := g.Search(context.Background(), ConfigBuilder(cfg, quietBuild), "sigma_de_growth")
	if err != nil {
		t.Fatal(err)
	}
	if best < 1 {
		t.Errorf("growth ratio below one: %g", best)
	}
	if _, ok := params["rf.voltage"]; !ok {
		t.Errorf("voltage missing from %v", params)
	}
}

func TestSearchNoValidPoint(t *testing.T) {
	g, _ := NewGridSearch([]string{"rf.voltage"}, [][]float64{{6e6}})
	_, _, err := g.Search(context.Background(), ConfigBuilder(base(), quietBuild), "no_such_metric")
	if err == nil {
		t.Error("expected error when no point has the metric")
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g, _ := NewGridSearch([]string{"rf.voltage"}, [][]float64{{6e6}})
	_, _, err := g.Search(ctx, ConfigBuilder(base(), quietBuild), "loss_fraction")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
