// Package logging provides structured logging for the PowerSync worker.
//
// It wraps log/slog with level filtering, JSON/text formats, and default
// service/version fields. Logs go to stderr by default because stdout is
// the worker's data channel: every line written there is a JSON reading or
// status event for the HomeTracker Node.js consumer.
package logging
