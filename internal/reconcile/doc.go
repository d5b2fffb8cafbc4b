// Package reconcile compares remote datastore state against locally derived
// document boundaries and converges it.
//
// Verifier reads remote counts and small ordered samples and reports where
// they diverge from local truth. Updater drives the server-side batched
// validation RPC for each dataset until it reports no remaining rows or a
// run of consecutive failures trips the per-dataset circuit breaker.
// Datasets are reconciled one after another and calls within a dataset never
// overlap.
package reconcile
