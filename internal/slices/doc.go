// Package slices turns the particle time coordinates into a uniform slice
// histogram every turn.
//
// Binning is split over fixed-size particle chunks, each with its own
// partial histogram; partials are summed in chunk order, so the profile is
// identical for any worker count. From the profile the Slicer derives FWHM,
// rms and Gaussian-fit bunch lengths and the beam spectrum used by the
// frequency-domain induced voltage.
package slices
