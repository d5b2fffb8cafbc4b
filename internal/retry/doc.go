// Package retry holds the retry policy shared by load-file downloads and
// remote datastore calls.
//
// A Policy bundles the attempt budget, the per-error backoff schedule, and the
// predicate deciding which errors are worth another attempt. The loop itself
// is delegated to avast/retry-go so both callers get identical context
// handling and attempt accounting.
package retry
