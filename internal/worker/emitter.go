package worker

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Emitter publishes poll loop events to a consumer.
//
// Every failure path in the loop ends in exactly one Emit call; emitters
// must not feed errors back into the poll state machine.
type Emitter interface {
	EmitReading(event ReadingEvent)
	EmitStatus(event StatusEvent)
	EmitError(event ErrorEvent)
}

// Logger is the logging interface emitters use for best-effort failures.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// JSONEmitter writes one JSON object per line to a writer, typically
// os.Stdout, where the HomeTracker Node.js process captures it. Each event
// is written and flushed as a single line.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
	log Logger
}

// NewJSONEmitter creates a line-oriented JSON emitter.
//
// Parameters:
//   - w: Destination stream (the worker passes os.Stdout)
//   - log: Logger for serialization failures
//
// Returns:
//   - *JSONEmitter: Emitter ready for use
func NewJSONEmitter(w io.Writer, log Logger) *JSONEmitter {
	return &JSONEmitter{
		enc: json.NewEncoder(w),
		log: log,
	}
}

// EmitReading implements Emitter.
func (e *JSONEmitter) EmitReading(event ReadingEvent) { e.emit(event) }

// EmitStatus implements Emitter.
func (e *JSONEmitter) EmitStatus(event StatusEvent) { e.emit(event) }

// EmitError implements Emitter.
func (e *JSONEmitter) EmitError(event ErrorEvent) { e.emit(event) }

// emit encodes one event as a single line. json.Encoder appends the
// newline; an unbuffered destination like os.Stdout needs no extra flush.
func (e *JSONEmitter) emit(event any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(event); err != nil {
		if e.log != nil {
			e.log.Error("emitting event", "error", err)
		}
	}
}

// MultiEmitter fans every event out to all wrapped emitters in order.
// The first emitter is conventionally the stdout stream; mirrors follow.
type MultiEmitter []Emitter

// EmitReading implements Emitter.
func (m MultiEmitter) EmitReading(event ReadingEvent) {
	for _, e := range m {
		e.EmitReading(event)
	}
}

// EmitStatus implements Emitter.
func (m MultiEmitter) EmitStatus(event StatusEvent) {
	for _, e := range m {
		e.EmitStatus(event)
	}
}

// EmitError implements Emitter.
func (m MultiEmitter) EmitError(event ErrorEvent) {
	for _, e := range m {
		e.EmitError(event)
	}
}

// MQTTPublisher is the slice of the MQTT client the mirror needs.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTEmitter mirrors events to an MQTT broker. Publishing is best-effort:
// a broker outage is logged and otherwise ignored so it can never stall
// the poll loop or count as a poll failure.
type MQTTEmitter struct {
	pub          MQTTPublisher
	readingTopic string
	statusTopic  string
	qos          byte
	log          Logger
}

// NewMQTTEmitter creates an MQTT mirror.
//
// Parameters:
//   - pub: Connected MQTT client
//   - readingTopic: Topic for reading events
//   - statusTopic: Topic for status and error events (retained)
//   - qos: QoS level for all publishes
//   - log: Logger for publish failures
//
// Returns:
//   - *MQTTEmitter: Emitter ready for use
func NewMQTTEmitter(pub MQTTPublisher, readingTopic, statusTopic string, qos byte, log Logger) *MQTTEmitter {
	return &MQTTEmitter{
		pub:          pub,
		readingTopic: readingTopic,
		statusTopic:  statusTopic,
		qos:          qos,
		log:          log,
	}
}

// EmitReading implements Emitter.
func (e *MQTTEmitter) EmitReading(event ReadingEvent) {
	e.publish(e.readingTopic, event, false)
}

// EmitStatus implements Emitter. Status messages are retained so a
// dashboard connecting later sees the current state.
func (e *MQTTEmitter) EmitStatus(event StatusEvent) {
	e.publish(e.statusTopic, event, true)
}

// EmitError implements Emitter.
func (e *MQTTEmitter) EmitError(event ErrorEvent) {
	e.publish(e.statusTopic, event, false)
}

func (e *MQTTEmitter) publish(topic string, event any, retained bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		if e.log != nil {
			e.log.Error("marshalling mqtt event", "error", err)
		}
		return
	}

	if err := e.pub.Publish(topic, payload, e.qos, retained); err != nil {
		if e.log != nil {
			e.log.Warn("mqtt mirror publish failed", "topic", topic, "error", err)
		}
	}
}

// ReadingWriter is the slice of the InfluxDB client the mirror needs.
type ReadingWriter interface {
	WriteReading(ts time.Time, total float64, phaseA, phaseB *float64, circuits map[string]float64)
}

// InfluxEmitter mirrors readings to InfluxDB for long-term dashboards.
// Status and error events are not mirrored; they are loop bookkeeping,
// not telemetry.
type InfluxEmitter struct {
	writer ReadingWriter
}

// NewInfluxEmitter creates an InfluxDB mirror.
func NewInfluxEmitter(writer ReadingWriter) *InfluxEmitter {
	return &InfluxEmitter{writer: writer}
}

// EmitReading implements Emitter.
func (e *InfluxEmitter) EmitReading(event ReadingEvent) {
	e.writer.WriteReading(time.Unix(event.TS, 0), event.Total, event.PhaseA, event.PhaseB, event.Circuits)
}

// EmitStatus implements Emitter.
func (e *InfluxEmitter) EmitStatus(StatusEvent) {}

// EmitError implements Emitter.
func (e *InfluxEmitter) EmitError(ErrorEvent) {}
