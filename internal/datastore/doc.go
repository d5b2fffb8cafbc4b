// Package datastore talks to the remote document database through its
// PostgREST interface: dataset lookup, exact row counts, small ordered
// samples, and the batched validation RPC.
package datastore
