package mqtt

// topicPrefix is the root of the HomeTracker topic namespace.
const topicPrefix = "hometracker"

// Topics builds the topic strings the PowerSync mirror publishes to.
//
// The zero value is ready to use:
//
//	topic := mqtt.Topics{}.PowerReading()
type Topics struct{}

// PowerReading is the live reading stream, one message per poll cycle.
// Not retained; a late subscriber waits for the next cycle.
func (Topics) PowerReading() string {
	return topicPrefix + "/power/reading"
}

// PowerStatus carries worker state transitions and poll errors.
// Status messages are published retained so dashboards see the current
// state immediately on subscribe.
func (Topics) PowerStatus() string {
	return topicPrefix + "/power/status"
}

// SystemStatus carries the worker's online/offline lifecycle, including
// the Last Will message on unexpected disconnect.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}
