// Package power holds the PowerSync domain model: the normalized Reading,
// the channel classification rules for Emporia Vue usage snapshots, the
// SQLite persistence gateway, and the demo reading generator.
//
// The Reading shape and the power_config / power_readings_raw /
// power_learning_status tables are a shared contract with the HomeTracker
// Node.js process, which handles learning, alerts and the UI.
package power
