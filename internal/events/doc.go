// Package events fans Game Circle domain events out to optional sinks.
//
// A Bus accepts events from request handlers without blocking them: events
// are queued on a bounded channel and delivered serially by one goroutine to
// every configured Sink (MQTT, InfluxDB, WebSocket hub). A sink failure is
// logged and never reaches the caller; when the queue is full the event is
// dropped with a warning.
package events
