package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/longsim/internal/dynamo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/san-kum/longsim/internal/sim"

// Simulator drives a Context turn by turn.
type Simulator struct {
	ctx       *Context
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	tracer    trace.Tracer
}

func New(c *Context) *Simulator {
	return &Simulator{
		ctx:       c,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// SetTracer replaces the global tracer.
func (s *Simulator) SetTracer(t trace.Tracer) { s.tracer = t }

// Context returns the simulated objects.
func (s *Simulator) Context() *Context { return s.ctx }

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if cfg.Turns <= 0 {
		return fmt.Errorf("turns must be positive, got %d: %w", cfg.Turns, dynamo.ErrInvalidParameter)
	}
	if cfg.SnapshotEvery < 0 || cfg.ProfileEvery < 0 {
		return fmt.Errorf("negative output period: %w", dynamo.ErrInvalidParameter)
	}
	return s.ctx.Validate()
}

// Run tracks cfg.Turns turns, or up to the end of the programs. Stage errors
// and non-finite coordinates stop the run and are reported in Result.Errors
// as *dynamo.SimulationError; the returned error is reserved for invalid
// configuration and cancellation.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	turns := min(cfg.Turns, s.ctx.Remaining())

	ctx, span := s.tracer.Start(ctx, "sim.Run", trace.WithAttributes(
		attribute.Int("turns", turns),
		attribute.Int("particles", s.ctx.Beam.Len()),
		attribute.Int64("seed", cfg.Seed),
	))
	defer span.End()

	capacity := turns + 1
	if cfg.SnapshotEvery > 1 {
		capacity = turns/cfg.SnapshotEvery + 2
	}
	result := &dynamo.Result{
		Snapshots: make([]dynamo.Snapshot, 0, capacity),
		Metrics:   make(map[string]float64),
		StageTime: make(map[string]float64),
		Errors:    make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	stages := s.ctx.Stages()
	result.Snapshots = append(result.Snapshots, s.ctx.Snapshot())

	for i := 0; i < turns; i++ {
		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "canceled")
			s.finish(result, span)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if err := s.step(stages, result.StageTime); err != nil {
			result.Errors = append(result.Errors, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			break
		}
		result.TurnsTaken++

		snap := s.ctx.Snapshot()
		if cfg.ValidateState && !snap.IsValid() {
			err := &dynamo.SimulationError{Turn: snap.Turn - 1, Stage: "tracker", Wrapped: dynamo.ErrUnstable}
			result.Errors = append(result.Errors, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			break
		}

		for _, m := range s.metrics {
			m.Observe(snap)
		}
		for _, obs := range s.observers {
			obs.OnTurn(snap)
		}
		if cfg.ProfileEvery > 0 && snap.Turn%cfg.ProfileEvery == 0 {
			s.notifyProfile()
		}
		if cfg.SnapshotEvery <= 1 || snap.Turn%cfg.SnapshotEvery == 0 || i == turns-1 {
			result.Snapshots = append(result.Snapshots, snap)
		}
	}

	s.finish(result, span)
	return result, nil
}

// step runs one turn and advances the RF counters.
func (s *Simulator) step(stages []dynamo.Stage, stageTime map[string]float64) error {
	turn := s.ctx.Turn()
	for _, st := range stages {
		start := time.Now()
		err := st.Track()
		stageTime[st.Name()] += time.Since(start).Seconds()
		if err != nil {
			return &dynamo.SimulationError{Turn: turn, Stage: st.Name(), Wrapped: err}
		}
	}
	s.ctx.Advance()
	return nil
}

func (s *Simulator) notifyProfile() {
	var (
		p      dynamo.Profile
		copied bool
	)
	for _, obs := range s.observers {
		po, ok := obs.(dynamo.ProfileObserver)
		if !ok {
			continue
		}
		if !copied {
			var has bool
			if p, has = s.ctx.Profile(); !has {
				return
			}
			copied = true
		}
		po.OnProfile(p)
	}
}

func (s *Simulator) finish(result *dynamo.Result, span trace.Span) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	span.SetAttributes(attribute.Int("turns_taken", result.TurnsTaken))
	for name, secs := range result.StageTime {
		span.SetAttributes(attribute.Float64("stage_seconds."+name, secs))
	}
}

// RunWithCallback tracks turn by turn and hands every snapshot to callback
// until it returns false, the programs end or ctx is canceled.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg dynamo.Config, callback func(dynamo.Snapshot) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}
	stages := s.ctx.Stages()
	stageTime := make(map[string]float64)
	turns := min(cfg.Turns, s.ctx.Remaining())

	for i := 0; i < turns; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if err := s.step(stages, stageTime); err != nil {
			return err
		}
		snap := s.ctx.Snapshot()
		if cfg.ValidateState && !snap.IsValid() {
			return &dynamo.SimulationError{Turn: snap.Turn - 1, Stage: "tracker", Wrapped: dynamo.ErrUnstable}
		}
		for _, obs := range s.observers {
			obs.OnTurn(snap)
		}
		if !callback(snap) {
			return nil
		}
	}
	return nil
}
