// Package objectstore fetches load files from remote object storage and keeps
// a local copy of each one.
//
// Two backends implement Fetcher: the Supabase storage REST API and Google
// Cloud Storage. Cache sits in front of either, serializing downloads per file
// with an advisory lock, retrying transient failures, and writing atomically
// so a partially downloaded load file is never parsed.
package objectstore
