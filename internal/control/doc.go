// Package control provides the beam based RF feedback loops.
//
// Every loop measures the beam phase from the slicer profile and writes a
// frequency correction into the RF program of the next turn:
//
//   - [LHC]: phase loop with optional synchro loop
//   - [LHCF]: phase loop with frequency loop
//   - [PSB]: sampled phase loop with radial loop
//   - [SPSRadial]: phase loop with radial steering
//
// [NoiseFeedback] is not a phase loop: it scales the RF phase noise applied
// by the tracker to hold the bunch length at a target.
//
// # Usage
//
//	loop, _ := control.NewLHC(rfProgram, slicer, control.Params{Gain: []float64{1 / 25e-6}}, 0)
//	// loop.Track is called each turn after slicing
//
// Loops implement GetParams and SetParam for live tuning.
package control
