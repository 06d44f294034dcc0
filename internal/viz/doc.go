// Package viz draws a running simulation in the terminal.
//
// The live view uses Bubble Tea and plots the longitudinal phase space on a
// braille [Canvas], with the separatrix of the main RF system, the energy
// spread history and the current line density beside it.
//
// # Key Bindings
//
//	Space - Pause/Resume tracking
//	R     - Rebuild at turn zero
//	S     - Toggle the separatrix
//	+/-   - Turns per frame
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// [App] adds a preset menu in front of the live view.
package viz
