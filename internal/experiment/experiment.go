package experiment

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/config"
	"github.com/san-kum/longsim/internal/control"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/impedance"
	"github.com/san-kum/longsim/internal/metrics"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/sim"
	"github.com/san-kum/longsim/internal/slices"
	"github.com/san-kum/longsim/internal/storage"
	"github.com/san-kum/longsim/internal/tracker"
)

// Experiment is a configuration turned into a ready to run simulator.
type Experiment struct {
	cfg       *config.Config
	ctx       *sim.Context
	simulator *sim.Simulator
	registry  *Registry
	logger    *log.Logger
}

// New builds every component of cfg. The seed of cfg drives both the
// particle distribution and the RF phase noise.
func New(cfg *config.Config, logger *log.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Experiment{cfg: cfg, registry: NewRegistry(), logger: logger}
	if err := e.build(); err != nil {
		return nil, err
	}
	e.simulator = sim.New(e.ctx)
	for _, m := range metrics.All() {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) build() error {
	cfg := e.cfg
	r, err := e.buildRing()
	if err != nil {
		return fmt.Errorf("ring: %w", err)
	}
	c := &sim.Context{Ring: r, Logger: e.logger, TrackCuts: cfg.Slices.TrackCuts}

	for i, sec := range cfg.RF {
		p, err := e.buildRF(r, i, sec)
		if err != nil {
			return fmt.Errorf("rf section %d: %w", i, err)
		}
		c.RF = append(c.RF, p)
	}
	main := c.RF[0]

	if c.Beam, err = beam.New(cfg.Beam.Particles, cfg.Beam.Intensity); err != nil {
		return err
	}
	if err := beam.Distribute(cfg.Beam.Distribution, main, c.Beam, cfg.Beam.SigmaDt, cfg.Beam.SigmaDE, cfg.Seed); err != nil {
		return err
	}

	sp, err := e.registry.SliceParams(cfg.Slices)
	if err != nil {
		return err
	}
	sp.Logger = e.logger
	if c.Slicer, err = slices.New(c.Beam, main, sp); err != nil {
		return fmt.Errorf("slicer: %w", err)
	}
	if err := c.Slicer.Track(); err != nil {
		return err
	}

	if cfg.Noise.Feedback {
		c.Noise, err = control.NewNoiseFeedback(main, c.Slicer, control.NoiseFeedbackParams{
			BunchLength: cfg.Noise.BunchLength,
			Gain:        cfg.Noise.Gain,
			Factor:      cfg.Noise.Factor,
			UpdateEvery: cfg.Noise.UpdateEvery,
		})
		if err != nil {
			return fmt.Errorf("noise feedback: %w", err)
		}
	}

	lp := control.Params{
		Gain:              cfg.Loop.Gain,
		WindowCoefficient: cfg.Loop.WindowCoefficient,
		Delay:             cfg.Loop.Delay,
		Reference:         cfg.Loop.Reference,
		Logger:            e.logger,
	}
	if c.Loop, err = e.registry.GetLoop(main, c.Slicer, lp, cfg.Loop); err != nil {
		return fmt.Errorf("loop: %w", err)
	}

	var kicker tracker.Kicker
	if cfg.Impedance.Enabled() {
		if cfg.Impedance.Music {
			res := cfg.Impedance.FirstResonator()
			if res == nil {
				return fmt.Errorf("music needs a resonator: %w", dynamo.ErrInvalidParameter)
			}
			if c.Music, err = impedance.NewMusic(c.Beam, r.Charge(), res.R, 2*math.Pi*res.Fr, res.Q); err != nil {
				return err
			}
		} else {
			if c.Induced, err = e.buildInduced(c, main); err != nil {
				return fmt.Errorf("induced voltage: %w", err)
			}
			kicker = c.Induced
		}
	}

	solver, err := tracker.ParseSolver(cfg.Tracker.Solver)
	if err != nil {
		return err
	}
	sections := make([]*tracker.Section, len(c.RF))
	for i, p := range c.RF {
		tp := tracker.Params{
			Solver:      solver,
			Periodicity: cfg.Tracker.Periodicity,
			DEMax:       cfg.Tracker.DEMax,
			FastSin:     cfg.Tracker.FastSin,
			Logger:      e.logger,
		}
		if i == 0 {
			tp.Induced = kicker
		}
		if sections[i], err = tracker.New(p, c.Beam, tp); err != nil {
			return fmt.Errorf("tracker section %d: %w", i, err)
		}
	}
	if c.Tracker, err = tracker.NewFullRing(sections...); err != nil {
		return err
	}

	if cfg.Tracker.SeparatrixLoss {
		c.Extra = append(c.Extra, &separatrixCut{rf: main, beam: c.Beam, logger: e.logger})
	}

	e.ctx = c
	return c.Validate()
}

func (e *Experiment) buildRing() (*ring.Program, error) {
	rc := e.cfg.Ring
	particle, err := ring.NewParticle(rc.Particle, rc.Mass, rc.Charge)
	if err != nil {
		return nil, err
	}
	values := ring.LinearRamp(rc.Start, rc.End, e.cfg.Turns)
	momentum, err := ring.MomentumFrom(rc.Synchronous, values, particle, rc.BendingRadius)
	if err != nil {
		return nil, err
	}
	alpha := rc.Alpha
	if len(alpha) == 0 {
		alpha = []float64{1 / (rc.GammaT * rc.GammaT)}
	}

	n := len(rc.SectionLengths)
	p := ring.Params{
		Turns:          e.cfg.Turns,
		Particle:       particle,
		SectionLengths: rc.SectionLengths,
		Alpha:          make([][]float64, n),
		Momentum:       make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		p.Alpha[i] = alpha
		p.Momentum[i] = momentum
	}
	return ring.New(p)
}

func (e *Experiment) buildRF(r *ring.Program, section int, rc config.RFConfig) (*rf.Program, error) {
	n := len(rc.Systems)
	p := rf.Params{
		Section:   section,
		Harmonic:  make([][]float64, n),
		Voltage:   make([][]float64, n),
		PhiOffset: make([][]float64, n),
		Logger:    e.logger,
	}
	for i, s := range rc.Systems {
		p.Harmonic[i] = []float64{s.Harmonic}
		p.Voltage[i] = []float64{s.Voltage}
		if s.VoltageEnd != 0 {
			p.Voltage[i] = ring.LinearRamp(s.Voltage, s.VoltageEnd, r.Turns)
		}
		p.PhiOffset[i] = []float64{s.Phi}
	}
	if section == 0 && e.cfg.Noise.Amplitude > 0 {
		p.PhiNoise = [][]float64{PhaseNoise(r.Turns+1, e.cfg.Noise.Amplitude, e.cfg.Seed+1)}
	}
	return rf.New(r, p)
}

func (e *Experiment) buildInduced(c *sim.Context, main *rf.Program) (*impedance.Total, error) {
	ic := e.cfg.Impedance
	var engines []impedance.Engine
	for i, ec := range ic.EngineConfigs() {
		eng, err := e.buildEngine(c, ec)
		if err != nil {
			return nil, fmt.Errorf("engine %d: %w", i, err)
		}
		engines = append(engines, eng)
	}
	return impedance.NewTotal(c.Slicer, main, ic.TurnsMemory, engines...)
}

func (e *Experiment) buildEngine(c *sim.Context, ec config.EngineConfig) (impedance.Engine, error) {
	sources, err := e.registry.Sources(ec)
	if err != nil {
		return nil, err
	}
	charge := c.Ring.Charge()
	switch ec.Domain {
	case "", "time":
		return impedance.NewTimeDomain(c.Slicer, charge, sources...)
	case "frequency":
		return impedance.NewFreqDomain(c.Slicer, charge, impedance.FreqDomainParams{
			FreqResolution: ec.FreqResolution,
			Logger:         e.logger,
		}, sources...)
	default:
		return nil, fmt.Errorf("unknown domain %q: %w", ec.Domain, dynamo.ErrInvalidParameter)
	}
}

// PhaseNoise returns n samples of white Gaussian phase noise of rms
// amplitude sigma.
func PhaseNoise(n int, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}
	return out
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Context() *sim.Context         { return e.ctx }
func (e *Experiment) Simulator() *sim.Simulator     { return e.simulator }
func (e *Experiment) AddObserver(o dynamo.Observer) { e.simulator.AddObserver(o) }

// LoopName is the configured loop type.
func (e *Experiment) LoopName() string {
	if e.ctx.Loop == nil {
		return "none"
	}
	return e.ctx.Loop.Name()
}

// InducedNames lists the active collective effect engines.
func (e *Experiment) InducedNames() []string {
	var names []string
	if e.ctx.Induced != nil {
		for _, eng := range e.ctx.Induced.Engines {
			names = append(names, eng.Name())
		}
	}
	if e.ctx.Music != nil {
		names = append(names, e.ctx.Music.Name())
	}
	return names
}

// Metadata describes the experiment for the run store. Result dependent
// fields are filled in by Save.
func (e *Experiment) Metadata() storage.RunMetadata {
	solver := e.cfg.Tracker.Solver
	if solver == "" {
		solver = "simple"
	}
	return storage.RunMetadata{
		Preset:    e.cfg.Name,
		Seed:      e.cfg.Seed,
		Turns:     e.cfg.Turns,
		Particles: e.cfg.Beam.Particles,
		Solver:    solver,
		Loop:      e.LoopName(),
		Induced:   e.InducedNames(),
	}
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.cfg.SimConfig())
}

type separatrixCut struct {
	rf     *rf.Program
	beam   *beam.Ensemble
	logger *log.Logger
}

func (s *separatrixCut) Name() string { return "separatrix_loss" }

func (s *separatrixCut) Track() error {
	if n := tracker.LossSeparatrix(s.rf, s.beam); n > 0 {
		s.logger.Printf("turn %d: %d particles outside the separatrix", s.rf.Counter, n)
	}
	return nil
}
