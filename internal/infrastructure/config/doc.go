// Package config loads PowerSync worker configuration.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. The environment layer exists because the
// HomeTracker supervisor launches the worker with only three variables
// (DB_PATH, POLL_INTERVAL, DEMO_MODE); the YAML file is for standalone
// deployments that also enable the MQTT or InfluxDB mirrors.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interval := cfg.PollInterval()
package config
