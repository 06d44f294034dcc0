// Package beam holds the macro-particle ensemble: coordinates, weighted
// statistics, loss cuts and initial distributions.
package beam
