// Package pool runs jobs concurrently behind a counting admission gate.
//
// A Pool admits at most Capacity jobs at once. Submit blocks the producer
// while the pool is full, so a directory scan never runs ahead of the
// workers, and Wait is the join barrier that returns once every admitted job
// has finished. Each admitted job runs on its own goroutine; there is no queue.
//
// Job failures never escape the pool. They are recorded under the same mutex
// that guards the active count and are available from Failures and Stats.
package pool
