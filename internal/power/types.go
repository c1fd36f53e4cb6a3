package power

// Channel identifiers reported by the Emporia Vue metering hardware.
// The mains are reported as merged channel numbers; everything else is an
// individual circuit CT clamp.
const (
	// ChannelTotal is the combined usage across all phases.
	ChannelTotal = "1,2,3"

	// ChannelPhaseA is the first main leg of the split-phase service.
	ChannelPhaseA = "1,2"

	// ChannelPhaseB is the second main leg.
	ChannelPhaseB = "3,4"
)

// Channel is one measurement stream from a device usage snapshot.
type Channel struct {
	// Num is the vendor channel identifier (e.g. "1,2,3" for the combined
	// mains, "5" for an individual circuit).
	Num string

	// Name is the user-assigned circuit label. Empty for unlabelled channels.
	Name string

	// Usage is the instantaneous draw in watts. Nil when the vendor omits
	// the value; treated as 0.
	Usage *float64
}

// Reading is the canonical normalized power snapshot stored in
// power_readings_raw and published on the output stream.
//
// Timestamps are expected to be non-decreasing across successive stored
// readings in normal operation, but this is not enforced.
type Reading struct {
	// TS is the reading time in seconds since the Unix epoch.
	TS int64

	// Total is the whole-home draw in watts.
	Total float64

	// PhaseA and PhaseB are the per-leg draws. Nil when the corresponding
	// main channel was absent from the payload.
	PhaseA *float64
	PhaseB *float64

	// Circuits maps circuit name to watts. Never nil, may be empty.
	Circuits map[string]float64
}

// LearningStatus is the singleton bookkeeping row consumed by the
// HomeTracker learning/alerting side.
type LearningStatus struct {
	// FirstReadingTS is the timestamp of the first stored reading.
	// Nil until the first reading lands; never changes afterwards.
	FirstReadingTS *int64

	// TotalReadings counts every stored reading, demo or live.
	TotalReadings int64

	// LastUpdated is the SQLite datetime of the most recent bump.
	LastUpdated string
}
