package sim

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/control"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/impedance"
	"github.com/san-kum/longsim/internal/rf"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/slices"
	"github.com/san-kum/longsim/internal/tracker"
)

// Context owns every long lived object of one run. Optional components are
// nil when not used.
type Context struct {
	Ring *ring.Program
	// RF holds one program per ring section, in section order.
	RF   []*rf.Program
	Beam *beam.Ensemble

	Slicer *slices.Slicer
	// TrackCuts recentres the slicing window on the bunch every turn.
	TrackCuts bool

	Noise   *control.NoiseFeedback
	Loop    control.Loop
	Induced *impedance.Total
	Music   *impedance.Music

	// Extra stages run after the feedbacks and before tracking.
	Extra []dynamo.Stage

	Tracker *tracker.FullRing

	Logger *log.Logger
}

// Validate checks that the mandatory components exist and agree with each
// other.
func (c *Context) Validate() error {
	if c.Ring == nil || c.Beam == nil || c.Tracker == nil {
		return fmt.Errorf("context needs a ring, a beam and a tracker: %w", dynamo.ErrInvalidParameter)
	}
	if len(c.RF) != c.Ring.Sections {
		return fmt.Errorf("%d rf programs for %d sections: %w", len(c.RF), c.Ring.Sections, dynamo.ErrSectionMismatch)
	}
	if len(c.Tracker.Sections) != len(c.RF) {
		return fmt.Errorf("%d tracked sections for %d rf programs: %w", len(c.Tracker.Sections), len(c.RF), dynamo.ErrSectionMismatch)
	}
	if (c.Loop != nil || c.Noise != nil || c.Induced != nil) && c.Slicer == nil {
		return fmt.Errorf("feedback and induced voltage need a slicer: %w", dynamo.ErrInvalidParameter)
	}
	return nil
}

// Stages returns the per-turn pipeline in execution order.
func (c *Context) Stages() []dynamo.Stage {
	stages := make([]dynamo.Stage, 0, 8)
	if c.Slicer != nil {
		if c.TrackCuts {
			stages = append(stages, cutTracker{c.Slicer})
		}
		stages = append(stages, c.Slicer)
	}
	if c.Noise != nil {
		stages = append(stages, c.Noise)
	}
	if c.hasNoise() {
		stages = append(stages, phaseNoise{c})
	}
	if c.Loop != nil {
		stages = append(stages, c.Loop)
	}
	if c.Induced != nil {
		stages = append(stages, c.Induced)
	}
	if c.Music != nil {
		stages = append(stages, c.Music)
	}
	stages = append(stages, c.Extra...)
	return append(stages, c.Tracker)
}

// Turn is the turn the next Track will run.
func (c *Context) Turn() int { return c.RF[0].Counter }

// Remaining is the number of turns left in the programs.
func (c *Context) Remaining() int { return c.Ring.Turns - c.Turn() }

// Advance moves every RF program to the next turn.
func (c *Context) Advance() {
	for _, p := range c.RF {
		p.Advance()
	}
}

// Snapshot summarizes the bunch and the RF at the current counter. With a
// slicer it re-bins the particles first, so the profile held by the slicer
// afterwards is that of the snapshot.
func (c *Context) Snapshot() dynamo.Snapshot {
	st := c.Beam.Statistics()
	turn := c.Turn()
	s := dynamo.Snapshot{
		Turn:          turn,
		Time:          c.Ring.CycleTime[min(turn, c.Ring.Turns)],
		MeanDt:        st.MeanDt,
		SigmaDt:       st.SigmaDt,
		MeanDE:        st.MeanDE,
		SigmaDE:       st.SigmaDE,
		Emittance:     st.Emittance,
		BunchLength:   math.NaN(),
		BunchPosition: math.NaN(),
		Alive:         st.Alive,
		Lost:          st.Lost,
	}
	if c.Slicer != nil {
		// the stage profile predates tracking; bunch length must describe
		// the same particles as sigma_dt
		if err := c.Slicer.Track(); err == nil {
			if bl, bp, ok := c.Slicer.BunchLength(); ok {
				s.BunchLength, s.BunchPosition = bl, bp
			}
		}
	} else if st.Alive > 0 {
		s.BunchLength, s.BunchPosition = 4*st.SigmaDt, st.MeanDt
	}
	if c.Loop != nil {
		ls := c.Loop.State()
		s.PhiBeam, s.Dphi, s.DomegaRF = ls.PhiBeam, ls.Dphi, ls.DomegaRF
	}
	p := c.RF[0]
	idx := min(turn, p.Turns)
	s.OmegaRF = p.OmegaRF[0][idx]
	s.PhiRF = p.PhiRF[0][idx]
	return s
}

// Profile copies the current slice histogram, if there is a slicer.
func (c *Context) Profile() (dynamo.Profile, bool) {
	if c.Slicer == nil {
		return dynamo.Profile{}, false
	}
	h := c.Slicer.Profile()
	return dynamo.Profile{Turn: c.Turn(), Centers: h.Centers, Counts: h.Counts}, true
}

type cutTracker struct{ s *slices.Slicer }

func (cutTracker) Name() string { return "track_cuts" }

func (t cutTracker) Track() error {
	t.s.TrackCuts()
	return nil
}

func (c *Context) hasNoise() bool {
	for _, p := range c.RF {
		if len(p.PhiNoise) > 0 {
			return true
		}
	}
	return false
}

// phaseNoise adds the turn's RF phase noise, scaled by the noise feedback
// when there is one, so the phase loop measures against the noisy phase.
type phaseNoise struct{ c *Context }

func (phaseNoise) Name() string { return "phase_noise" }

func (n phaseNoise) Track() error {
	scale := 1.0
	if n.c.Noise != nil {
		scale = n.c.Noise.Scale()
	}
	for _, p := range n.c.RF {
		p.ApplyNoise(scale)
	}
	return nil
}
