// Package influxdb provides time-series telemetry storage for Irrigation Core.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking batched writes of irrigation telemetry
//   - Fire event and recommendation outcome measurements
//   - Health monitoring
//
// # Data Model
//
// Measurements written by Core:
//
//	irrigation_fires            - valve actuations (tags: day, origin)
//	irrigation_recommendations  - prediction outcomes (tags: day)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    if errors.Is(err, influxdb.ErrDisabled) {
//	        // telemetry is optional
//	    }
//	}
//	defer client.Close()
//
//	client.WriteFireEvent("monday", 22.5, 0.9, "SCHEDULE_AI")
//
// InfluxDB is optional. When disabled, Connect returns ErrDisabled and
// callers run without telemetry.
package influxdb
