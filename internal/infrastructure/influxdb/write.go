package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes one normalized power reading.
//
// The reading is split into two measurements: "power" carries the mains
// values (total plus whichever phase legs were sampled), "circuit_power"
// carries one point per named circuit tagged by circuit name. Writes are
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - ts: Reading timestamp
//   - total: Whole-home power in watts
//   - phaseA: Phase A power, nil when the leg was not sampled
//   - phaseB: Phase B power, nil when the leg was not sampled
//   - circuits: Named branch circuits and their power draw
func (c *Client) WriteReading(ts time.Time, total float64, phaseA, phaseB *float64, circuits map[string]float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"total_watts": total,
	}
	if phaseA != nil {
		fields["phase_a_watts"] = *phaseA
	}
	if phaseB != nil {
		fields["phase_b_watts"] = *phaseB
	}

	c.writeAPI.WritePoint(write.NewPoint("power", nil, fields, ts))

	for name, watts := range circuits {
		point := write.NewPoint(
			"circuit_power",
			map[string]string{
				"circuit": name,
			},
			map[string]interface{}{
				"watts": watts,
			},
			ts,
		)
		c.writeAPI.WritePoint(point)
	}
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteReading.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//   - timestamp: The exact time for this data point
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
