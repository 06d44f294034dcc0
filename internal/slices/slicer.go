package slices

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/beam"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/rf"
)

// Units of the cut values given to New and SetCuts.
type Units int

const (
	Seconds Units = iota
	Radians
)

// Mode selects the deposition scheme.
type Mode int

const (
	// Hard counts each particle in the bin that contains it.
	Hard Mode = iota
	// Smooth shares each particle between the two nearest bin centres.
	Smooth
)

// Fit selects the profile measurement done on every Track.
type Fit int

const (
	FitNone Fit = iota
	FitGaussian
	FitFWHM
	FitRMS
)

// Params configures a Slicer. When both cuts are zero the window is derived
// from the particles: NSigma == 0 spans all particles plus 5% of their spread
// on each side, otherwise the window is mean ± NSigma·σ/2.
type Params struct {
	Slices   int
	CutLeft  float64
	CutRight float64
	NSigma   float64
	Units    Units
	Mode     Mode
	Fit      Fit
	Logger   *log.Logger
}

// Slicer bins the particle time coordinates into a uniform histogram every
// turn and measures the resulting profile.
type Slicer struct {
	Histogram

	// Outside is the number of alive particles outside the window at the
	// last Track.
	Outside int

	BlFWHM, BpFWHM   float64
	BlRMS, BpRMS     float64
	BlGauss, BpGauss float64

	Spectrum     []complex128
	SpectrumFreq []float64

	beam    *beam.Ensemble
	rf      *rf.Program
	mode    Mode
	fit     Fit
	version int
	pool    *bufferPool
	logger  *log.Logger
}

// New builds a slicer and its window. It does not bin the particles.
func New(b *beam.Ensemble, r *rf.Program, p Params) (*Slicer, error) {
	if p.Slices <= 0 {
		return nil, fmt.Errorf("%d slices: %w", p.Slices, dynamo.ErrSlices)
	}
	s := &Slicer{
		Histogram: Histogram{
			Edges:   make([]float64, p.Slices+1),
			Centers: make([]float64, p.Slices),
			Counts:  make([]float64, p.Slices),
		},
		beam:   b,
		rf:     r,
		mode:   p.Mode,
		fit:    p.Fit,
		pool:   newBufferPool(p.Slices),
		logger: p.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	nan := math.NaN()
	s.BlFWHM, s.BpFWHM, s.BlRMS, s.BpRMS, s.BlGauss, s.BpGauss = nan, nan, nan, nan, nan, nan

	left, right := p.CutLeft, p.CutRight
	if left == 0 && right == 0 {
		left, right = s.defaultCuts(p.NSigma)
	} else {
		left, right = s.toSeconds(left, p.Units), s.toSeconds(right, p.Units)
	}
	if err := s.SetCuts(left, right); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Slicer) Name() string { return "slicer" }

// Slices returns the number of bins.
func (s *Slicer) Slices() int { return len(s.Counts) }

// Version changes whenever the window moves, so that consumers caching
// quantities on the bin grid know to rebuild them.
func (s *Slicer) Version() int { return s.version }

// Beam returns the ensemble being sliced.
func (s *Slicer) Beam() *beam.Ensemble { return s.beam }

func (s *Slicer) toSeconds(cut float64, u Units) float64 {
	if u == Radians {
		return cut / s.rf.OmegaRF[0][s.rf.Counter]
	}
	return cut
}

func (s *Slicer) defaultCuts(nSigma float64) (float64, float64) {
	if nSigma == 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i, t := range s.beam.Dt {
			if s.beam.ID[i] == 0 {
				continue
			}
			lo = math.Min(lo, t)
			hi = math.Max(hi, t)
		}
		spread := hi - lo
		return lo - 0.05*spread, hi + 0.05*spread
	}
	st := s.beam.Statistics()
	return st.MeanDt - nSigma*st.SigmaDt/2, st.MeanDt + nSigma*st.SigmaDt/2
}

// SetCuts moves the window, in seconds, and rebuilds edges and centres.
func (s *Slicer) SetCuts(left, right float64) error {
	if !(left < right) {
		return fmt.Errorf("cut_left %g, cut_right %g: %w", left, right, dynamo.ErrCuts)
	}
	n := len(s.Counts)
	s.CutLeft, s.CutRight = left, right
	s.BinWidth = (right - left) / float64(n)
	copy(s.Edges, analysis.Linspace(left, right, n+1))
	for i := range s.Centers {
		s.Centers[i] = (s.Edges[i] + s.Edges[i+1]) / 2
	}
	s.version++
	return nil
}

// TrackCuts recentres the window on the mean particle time, keeping its width.
func (s *Slicer) TrackCuts() {
	st := s.beam.Statistics()
	if st.Alive == 0 {
		return
	}
	delta := st.MeanDt - 0.5*(s.CutLeft+s.CutRight)
	s.CutLeft += delta
	s.CutRight += delta
	for i := range s.Edges {
		s.Edges[i] += delta
	}
	for i := range s.Centers {
		s.Centers[i] += delta
	}
	s.version++
}

// Track rebuilds the histogram from the current particle coordinates and
// runs the configured profile measurement.
func (s *Slicer) Track() error {
	s.Outside = s.fill(s.beam.Dt, s.beam.ID)
	switch s.fit {
	case FitGaussian:
		s.BlGauss, s.BpGauss, _ = s.GaussianFit()
	case FitFWHM:
		s.BlFWHM, s.BpFWHM, _ = s.FWHM(0)
	case FitRMS:
		s.BlRMS, s.BpRMS, _ = s.RMS()
	}
	return nil
}

// Profile returns a copy of the current histogram.
func (s *Slicer) Profile() Histogram {
	return s.Histogram.Clone()
}

// BunchLength returns the bunch length and position of the configured fit,
// falling back to the rms values. ok is false when no measurement exists.
func (s *Slicer) BunchLength() (bl, bp float64, ok bool) {
	switch s.fit {
	case FitGaussian:
		bl, bp = s.BlGauss, s.BpGauss
	case FitFWHM:
		bl, bp = s.BlFWHM, s.BpFWHM
	default:
		bl, bp, ok = s.RMS()
		return bl, bp, ok
	}
	return bl, bp, !math.IsNaN(bl)
}
