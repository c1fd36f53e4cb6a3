package emporia

import "errors"

// Domain-specific errors for Emporia cloud operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotAuthenticated is returned when a data call is made before a
	// successful Login.
	ErrNotAuthenticated = errors.New("emporia: not authenticated")

	// ErrLoginFailed is returned when the cloud rejects the credentials.
	ErrLoginFailed = errors.New("emporia: login failed")

	// ErrRequestFailed is returned when the cloud returns a non-success
	// status for a data call.
	ErrRequestFailed = errors.New("emporia: request failed")

	// ErrNoDeviceData is returned when a usage query succeeds but carries
	// no snapshot for the requested device.
	ErrNoDeviceData = errors.New("emporia: no device data in response")
)
