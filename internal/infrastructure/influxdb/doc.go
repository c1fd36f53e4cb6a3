// Package influxdb provides the optional InfluxDB mirror for PowerSync.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, reading writes, and health monitoring.
//
// # Purpose
//
// SQLite remains the source of truth for readings; InfluxDB is a mirror
// for long-retention dashboards (Grafana) that would otherwise have to
// query the worker's database. Mirroring is best-effort: a write failure
// never affects the poll loop.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "hometracker",
//	    Bucket:  "power",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteReading(time.Now(), 842.5, &phaseA, &phaseB, circuits)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
package influxdb
