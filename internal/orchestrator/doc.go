// Package orchestrator drives an environment through its lifecycle.
//
// A run moves through the states not-started, resolving, fetching,
// provisioning and ready, strictly in that order. Any stage error moves
// the run to failed and records which stage it died in. The reached
// state is persisted after every transition, so `status` reflects
// reality even when a run was killed mid-flight.
//
// Runs are restartable: artifacts already in the cache are not fetched
// again and provisioning steps whose effect is present are skipped, so
// re-running `up` after a failure only does the remaining work.
package orchestrator
