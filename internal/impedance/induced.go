package impedance

import (
	"fmt"
	"log"
	"math"

	"github.com/san-kum/longsim/internal/analysis"
	"github.com/san-kum/longsim/internal/dynamo"
	"github.com/san-kum/longsim/internal/ring"
	"github.com/san-kum/longsim/internal/slices"
)

// Engine computes the voltage induced by the current profile. Voltage
// returns length samples on the grid Centers[0] + k·BinWidth; lengths
// beyond the number of slices extend the grid past the window.
type Engine interface {
	Name() string
	Voltage(length int) ([]float64, error)
}

// directLimit is the largest slices·length product convolved directly.
const directLimit = 1 << 20

// TimeDomain convolves the profile with the summed wake of its sources.
type TimeDomain struct {
	Sources []Source

	slicer  *slices.Slicer
	charge  float64
	wake    []float64
	length  int
	version int
}

// NewTimeDomain builds a time domain engine for particles of the given
// charge number.
func NewTimeDomain(s *slices.Slicer, charge float64, sources ...Source) (*TimeDomain, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("time domain engine without sources: %w", dynamo.ErrInvalidParameter)
	}
	return &TimeDomain{Sources: sources, slicer: s, charge: charge, version: -1}, nil
}

func (td *TimeDomain) Name() string { return "time_domain" }

// Process samples the wake on the bin grid. Voltage calls it whenever the
// window or requested length changed.
func (td *TimeDomain) Process(length int) {
	t := make([]float64, length)
	for k := range t {
		t[k] = float64(k) * td.slicer.BinWidth
	}
	td.wake = SumWake(td.Sources, t)
	td.length = length
	td.version = td.slicer.Version()
}

// Wake returns the sampled wake of the last Process.
func (td *TimeDomain) Wake() []float64 { return td.wake }

func (td *TimeDomain) Voltage(length int) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("voltage of length %d: %w", length, dynamo.ErrInvalidParameter)
	}
	if td.version != td.slicer.Version() || td.length != length {
		td.Process(length)
	}
	counts := td.slicer.Counts
	var conv []float64
	if len(counts)*length <= directLimit {
		conv = analysis.Convolve(td.wake, counts)
	} else {
		conv = analysis.FFTConvolve(td.wake, counts)
	}
	factor := -td.charge * ring.ElementaryCharge * td.slicer.Beam().Ratio
	out := make([]float64, length)
	for k := range out {
		out[k] = factor * conv[k]
	}
	return out, nil
}

// Rounding selects how the frequency resolution request is turned into an
// FFT length.
type Rounding int

const (
	RoundNearest Rounding = iota
	RoundUp
	RoundDown
)

// FreqDomainParams configures a FreqDomain engine. With FreqResolution zero
// the FFT length equals the number of slices.
type FreqDomainParams struct {
	FreqResolution float64
	Rounding       Rounding
	// SaveIndividual keeps the voltage of every source in Individual.
	SaveIndividual bool
	Logger         *log.Logger
}

// FreqDomain multiplies the profile spectrum by the summed impedance.
type FreqDomain struct {
	Sources []Source
	// Individual holds one voltage per source when SaveIndividual is set.
	Individual [][]float64

	slicer  *slices.Slicer
	charge  float64
	params  FreqDomainParams
	logger  *log.Logger
	nFFT    int
	version int
	freq    map[int][]float64
	total   map[int][]complex128
	single  map[int][][]complex128
}

func NewFreqDomain(s *slices.Slicer, charge float64, p FreqDomainParams, sources ...Source) (*FreqDomain, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("frequency domain engine without sources: %w", dynamo.ErrInvalidParameter)
	}
	if p.FreqResolution < 0 {
		return nil, fmt.Errorf("frequency resolution %g: %w", p.FreqResolution, dynamo.ErrInvalidParameter)
	}
	fd := &FreqDomain{
		Sources: sources,
		slicer:  s,
		charge:  charge,
		params:  p,
		logger:  p.Logger,
		version: -1,
	}
	if fd.logger == nil {
		fd.logger = log.Default()
	}
	fd.Process()
	return fd, nil
}

func (fd *FreqDomain) Name() string { return "frequency_domain" }

// NFFT returns the FFT length used for voltages within the window.
func (fd *FreqDomain) NFFT() int { return fd.nFFT }

// Frequencies returns the frequency grid of the window FFT.
func (fd *FreqDomain) Frequencies() []float64 { return fd.freq[fd.nFFT] }

// Impedance returns the summed impedance on the window FFT grid.
func (fd *FreqDomain) Impedance() []complex128 { return fd.total[fd.nFFT] }

// Process chooses the FFT length for the current window and drops every
// cached impedance grid.
func (fd *FreqDomain) Process() {
	n := fd.slicer.Slices()
	w := fd.slicer.BinWidth
	fd.nFFT = n
	if fd.params.FreqResolution > 0 {
		raw := 1 / (fd.params.FreqResolution * w)
		var target int
		switch fd.params.Rounding {
		case RoundUp:
			target = int(math.Ceil(raw))
		case RoundDown:
			target = int(math.Floor(raw))
		default:
			target = int(math.Round(raw))
		}
		fd.nFFT = analysis.NextRegular(target)
		if fd.nFFT < n {
			fd.logger.Printf("impedance: resolution %g Hz needs fewer points than %d slices, using %d", fd.params.FreqResolution, n, n)
			fd.nFFT = n
		}
	}
	if fd.nFFT < 2 {
		fd.nFFT = 2
	}
	fd.freq = make(map[int][]float64)
	fd.total = make(map[int][]complex128)
	fd.single = make(map[int][][]complex128)
	fd.version = fd.slicer.Version()
}

func (fd *FreqDomain) grid(n int) ([]float64, []complex128) {
	if f, ok := fd.freq[n]; ok {
		return f, fd.total[n]
	}
	f := analysis.RFFTFreq(n, fd.slicer.BinWidth)
	z := make([]complex128, len(f))
	var single [][]complex128
	for _, s := range fd.Sources {
		zs := s.Impedance(f)
		for i := range z {
			z[i] += zs[i]
		}
		if fd.params.SaveIndividual {
			single = append(single, zs)
		}
	}
	fd.freq[n] = f
	fd.total[n] = z
	fd.single[n] = single
	return f, z
}

func (fd *FreqDomain) Voltage(length int) ([]float64, error) {
	if length <= 0 {
		return nil, fmt.Errorf("voltage of length %d: %w", length, dynamo.ErrInvalidParameter)
	}
	if fd.version != fd.slicer.Version() {
		fd.Process()
	}
	n := fd.nFFT
	if length > n {
		n = analysis.NextRegular(length)
	}
	f, z := fd.grid(n)
	spec := analysis.RFFT(fd.slicer.Counts, n)
	factor := -fd.charge * ring.ElementaryCharge * fd.slicer.Beam().Ratio * f[1] * 2 * float64(len(spec)-1)

	out := fd.apply(spec, z, n, length, factor)
	if fd.params.SaveIndividual {
		fd.Individual = fd.Individual[:0]
		for _, zs := range fd.single[n] {
			fd.Individual = append(fd.Individual, fd.apply(spec, zs, n, length, factor))
		}
	}
	return out, nil
}

func (fd *FreqDomain) apply(spec, z []complex128, n, length int, factor float64) []float64 {
	prod := make([]complex128, len(spec))
	for i := range prod {
		prod[i] = z[i] * spec[i]
	}
	v := analysis.IRFFT(prod, n)
	out := make([]float64, length)
	for k := range out {
		out[k] = factor * v[k]
	}
	return out
}
