// Package worker implements the poll loop that drives PowerSync.
//
// The Controller runs single-threaded cycles: read credentials, lazily
// establish a cloud session, fetch one usage snapshot, normalize it,
// persist it and emit it as a JSON line. Demo mode substitutes a synthetic
// generator for the cloud fetch; everything downstream is identical.
//
// Failures are classified into a small set of outcomes, each with a fixed
// cooldown: missing configuration waits quietly, an empty device account
// backs off discovery, repeated poll failures force the session to be
// rebuilt, and anything unrecognised gets a generic cooldown. The loop
// never exits on error; cancellation of its context is the only way out.
package worker
