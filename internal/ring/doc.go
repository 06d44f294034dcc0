// Package ring derives the per-turn kinematics of a synchrotron from its
// momentum program: relativistic beta and gamma, total energy, revolution
// period and the slip factor expansion eta_0, eta_1, eta_2 of every section.
//
//	prog, err := ring.New(ring.Params{
//		Turns:          2000,
//		Particle:       ring.Proton(),
//		SectionLengths: []float64{26658.883},
//		Alpha:          [][]float64{{1 / (55.759505 * 55.759505)}},
//		Momentum:       [][]float64{ring.LinearRamp(450e9, 460.005e9, 2000)},
//	})
package ring
