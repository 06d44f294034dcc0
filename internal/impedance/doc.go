// Package impedance computes collective induced voltages.
//
// A Source describes a wake field, either in time (Wake) or in frequency
// (Impedance): Resonators, InputTable and TravelingWaveCavity. Engines turn
// the slicer profile into a voltage on the bin grid, by convolution with the
// wake (TimeDomain) or by multiplying the profile spectrum with the
// impedance (FreqDomain). Total sums engines, optionally keeps the wake of
// previous turns and kicks the particles by linear interpolation. Music is a
// slice-free alternative for a single resonator.
//
// # Example
//
//	res, _ := impedance.NewResonators([]float64{5e6}, []float64{1e9}, []float64{1})
//	fd, _ := impedance.NewFreqDomain(slicer, 1, impedance.FreqDomainParams{}, res)
//	total, _ := impedance.NewTotal(slicer, rfProgram, 0, fd)
//	_ = total.Track()
//	total.Kick(ensemble)
package impedance
