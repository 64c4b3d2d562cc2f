package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteMessageMetric records a message delivery event for a chat.
//
// This is the primary method for tracking message throughput.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - chatID: Chat identifier (e.g., "cht-4f2a91bc")
//   - sizeBytes: Message content size in bytes
//
// Example:
//
//	client.WriteMessageMetric("cht-4f2a91bc", 128)
func (c *Client) WriteMessageMetric(chatID string, sizeBytes int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"messages",
		map[string]string{
			"chat_id": chatID,
		},
		map[string]interface{}{
			"count":      1,
			"size_bytes": sizeBytes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAuthMetric records an authentication event.
//
// Used for tracking sign-in volume and failure rates. The outcome
// tag should be "success" or "failure"; user identity is deliberately
// not recorded for failures.
//
// Parameters:
//   - event: Auth event name (e.g., "signin", "signup", "token_verify")
//   - outcome: "success" or "failure"
func (c *Client) WriteAuthMetric(event string, outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"auth",
		map[string]string{
			"event":   event,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionMetric records the current realtime connection count.
//
// Called by the websocket hub when clients join or leave.
//
// Parameters:
//   - active: Number of currently connected websocket clients
func (c *Client) WriteConnectionMetric(active int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"connections",
		nil,
		map[string]interface{}{
			"active": active,
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
//	    map[string]string{"host": "parley-01"},
//	    map[string]interface{}{"goroutines": 42, "memory_mb": 128})
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
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
