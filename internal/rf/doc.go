// Package rf holds the RF program of a ring section: harmonic numbers,
// voltages and phases per RF system and per turn, the derived synchronous
// phase and synchrotron tune, and the turn counter shared by every stage.
//
// The phase loops in package control write the corrected OmegaRF, PhiRF and
// DphiRF of the next turn; everything else is read-only after New.
package rf
