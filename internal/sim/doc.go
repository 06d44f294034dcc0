// Package sim runs the per-turn pipeline: slicing, feedbacks, induced
// voltage, tracking and the RF counter advance, and reports snapshots to
// observers and metrics.
package sim
