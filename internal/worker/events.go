package worker

import (
	"math"

	"github.com/tomstetson/HomeTracker/internal/power"
)

// Status values published on the output stream.
const (
	StatusWaitingForConfig = "waiting_for_config"
	StatusConnecting       = "connecting"
	StatusConnected        = "connected"
)

// Error identifiers published on the output stream.
const (
	errNoDevicesFound = "no_devices_found"
	errNoDeviceData   = "no_device_data"
	errTypePollError  = "poll_error"
)

// ReadingEvent is one normalized reading as published to the consumer.
// Values are rounded to 2 decimals at this boundary only; stored readings
// keep full precision.
type ReadingEvent struct {
	Type     string             `json:"type"`
	Demo     bool               `json:"demo,omitempty"`
	TS       int64              `json:"ts"`
	Total    float64            `json:"total"`
	PhaseA   *float64           `json:"phase_a"`
	PhaseB   *float64           `json:"phase_b"`
	Circuits map[string]float64 `json:"circuits"`
}

// StatusEvent reports a state transition of the poll loop.
type StatusEvent struct {
	Status    string `json:"status"`
	DeviceGID string `json:"device_gid,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrorEvent reports a failure. RetryIn carries the suggested retry delay
// in seconds when the loop is backing off.
type ErrorEvent struct {
	Error     string `json:"error"`
	Type      string `json:"type,omitempty"`
	DeviceGID string `json:"device_gid,omitempty"`
	RetryIn   int    `json:"retry_in,omitempty"`
}

// NewReadingEvent converts a stored reading into its published form.
//
// A phase value of exactly 0 is published as null, indistinguishable from
// an absent main leg. That coalescing matches the consumer's existing
// expectations, so it is preserved rather than tightened.
//
// Parameters:
//   - r: Normalized reading as stored
//   - demo: Marks the reading as synthetic
//
// Returns:
//   - ReadingEvent: Rounded, coalesced event ready for emission
func NewReadingEvent(r power.Reading, demo bool) ReadingEvent {
	circuits := make(map[string]float64, len(r.Circuits))
	for name, usage := range r.Circuits {
		circuits[name] = round2(usage)
	}

	return ReadingEvent{
		Type:     "reading",
		Demo:     demo,
		TS:       r.TS,
		Total:    round2(r.Total),
		PhaseA:   roundPhase(r.PhaseA),
		PhaseB:   roundPhase(r.PhaseB),
		Circuits: circuits,
	}
}

// roundPhase rounds a phase value for publishing, coalescing absent and
// zero values to nil.
func roundPhase(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	rounded := round2(*v)
	return &rounded
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
