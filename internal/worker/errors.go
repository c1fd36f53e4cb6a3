package worker

import "errors"

// Sentinel errors for the connection lifecycle.
var (
	// ErrNoDevices indicates a successful login whose account has no
	// metering units registered.
	ErrNoDevices = errors.New("no devices found on account")
)
