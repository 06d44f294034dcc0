// Package analysis provides the numerical building blocks shared by the
// tracking packages and the CLI:
//
//   - [RFFT], [IRFFT], [RFFTFreq]: real FFTs backed by go-dsp
//   - [NextRegular]: FFT-friendly lengths
//   - [Convolve], [FFTConvolve]: linear convolution
//   - [Trapz], [CumTrapz], [Interp], [Gradient]: quadrature and interpolation
//   - [DominantFrequency]: synchrotron frequency of a bunch position series
//   - [PhaseSpaceToASCII]: terminal rendering of the particle cloud
//
// FFT calls are serialized internally and are safe to use from several
// goroutines.
package analysis
