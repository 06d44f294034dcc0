// Package tracker advances the longitudinal coordinates of an ensemble
// through the RF stations of a ring.
//
// A Section applies the RF kick of all its systems, the acceleration kick
// and an optional collective kick at the current turn, then drifts the
// particles through the arc with the parameters of the next turn. FullRing
// chains sections and derives the potential well of the combined RF
// voltage. Hamiltonian, Separatrix and LossSeparatrix describe the single
// harmonic bucket of the first RF system.
//
// # Example
//
//	s, _ := tracker.New(rfProgram, ensemble, tracker.Params{Solver: tracker.Full})
//	for turn := 0; turn < rfProgram.Turns; turn++ {
//		_ = s.Track()
//		rfProgram.Advance()
//	}
package tracker
