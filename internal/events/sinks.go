package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/mqtt"
)

// Publisher is the subset of the MQTT client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSink publishes each event as JSON on gamecircle/events/{type}.
type MQTTSink struct {
	pub Publisher
	qos byte
}

// NewMQTTSink creates a sink publishing at qos.
func NewMQTTSink(pub Publisher, qos byte) *MQTTSink {
	return &MQTTSink{pub: pub, qos: qos}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Send implements Sink.
func (s *MQTTSink) Send(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	return s.pub.Publish(mqtt.Topics{}.Event(e.Type), payload, s.qos, false)
}

// ActivityWriter is the subset of the InfluxDB client the activity sink needs.
type ActivityWriter interface {
	WriteActivity(eventType, action string, at time.Time)
}

// ActivitySink records one time-series point per event.
type ActivitySink struct {
	w ActivityWriter
}

// NewActivitySink creates a sink writing to w.
func NewActivitySink(w ActivityWriter) *ActivitySink {
	return &ActivitySink{w: w}
}

// Name implements Sink.
func (s *ActivitySink) Name() string { return "influxdb" }

// Send implements Sink. Write failures surface through the client's error callback.
func (s *ActivitySink) Send(_ context.Context, e Event) error {
	s.w.WriteActivity(e.Type, e.Action, e.Timestamp)
	return nil
}

// Broadcaster is the subset of the WebSocket hub the hub sink needs.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// HubSink pushes events to WebSocket clients subscribed to the event type.
type HubSink struct {
	b Broadcaster
}

// NewHubSink creates a sink broadcasting on b.
func NewHubSink(b Broadcaster) *HubSink {
	return &HubSink{b: b}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "websocket" }

// Send implements Sink.
func (s *HubSink) Send(_ context.Context, e Event) error {
	s.b.Broadcast(e.Type, e)
	return nil
}
