// Package influxdb provides optional telemetry storage for Parley.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data for:
//   - Message throughput per chat
//   - Authentication success/failure rates
//   - Realtime connection counts
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "parley",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteMessageMetric("cht-4f2a91bc", 128)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// a callback. Connection and health check errors are returned directly.
//
// The integration is optional: when disabled in config, Connect returns
// ErrDisabled and callers run without telemetry.
package influxdb
