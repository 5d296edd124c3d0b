// Package orchestration runs the distributed sum: the per-rank round trip
// (broadcast, partition, local sum, gather, reduce), the strategies built on it,
// and the concurrent comparison of strategies. It decouples business logic from
// presentation via ProgressReporter and ResultPresenter interfaces.
package orchestration
