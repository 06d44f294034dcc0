// Package dynamo provides the core primitives shared by every stage of the
// turn-by-turn longitudinal tracking pipeline.
//
// The package defines the small set of types the other packages agree on:
//
//   - [Stage]: one step of the per-turn pipeline (slicing, feedback, induced voltage, tracking)
//   - [Snapshot]: the scalar per-turn record handed to observers and metrics
//   - [Observer] and [Metric]: consumers of snapshots
//   - [ParallelFor] and [ParallelChunks]: data-parallel loops over particles or grid points
//
// # Example
//
//	dynamo.ParallelFor(len(dt), 2048, func(start, end int) {
//		for i := start; i < end; i++ {
//			dt[i] += drift * dE[i]
//		}
//	})
//
// # Thread Safety
//
// Stages are NOT thread-safe. A turn runs its stages sequentially; only the
// loops inside a stage are split across goroutines.
package dynamo
