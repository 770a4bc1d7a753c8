package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteFireEvent records a valve actuation triggered by the scheduler.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - day: Day of week the fire occurred on (e.g., "monday")
//   - durationMinutes: Planned irrigation duration
//   - volumeM3: Planned water volume in cubic metres
//   - origin: Command origin tag (e.g., "SCHEDULE_AI")
//
// Example:
//
//	client.WriteFireEvent("monday", 22.5, 0.9, "SCHEDULE_AI")
func (c *Client) WriteFireEvent(day string, durationMinutes float64, volumeM3 float64, origin string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"irrigation_fires",
		map[string]string{
			"day":    day,
			"origin": origin,
		},
		map[string]interface{}{
			"duration_minutes": durationMinutes,
			"volume_m3":        volumeM3,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRecommendation records the outcome of a prediction request made
// during schedule ingestion.
//
// Parameters:
//   - day: Day of week the recommendation applies to
//   - durationMinutes: Recommended irrigation duration
//   - volumeM3: Recommended water volume
//   - fallback: Whether the fallback values were used because the
//     recommendation service failed
func (c *Client) WriteRecommendation(day string, durationMinutes float64, volumeM3 float64, fallback bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"irrigation_recommendations",
		map[string]string{
			"day": day,
		},
		map[string]interface{}{
			"duration_minutes": durationMinutes,
			"volume_m3":        volumeM3,
			"fallback":         fallback,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
