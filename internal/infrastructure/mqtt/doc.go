// Package mqtt connects Game Circle Core to an MQTT broker.
//
// Domain events are published to gamecircle/events/{type} so that other
// instances, dashboards and bots can follow activity without polling the API.
// Each API instance also subscribes to gamecircle/events/# and relays what it
// receives to its WebSocket clients.
//
// The client wraps paho.mqtt.golang and adds:
//   - Last Will and Testament on gamecircle/system/status for offline detection
//   - Auto-reconnect with subscription restoration
//   - Panic recovery and logging around message handlers
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.Event("game.created"), payload, 1, false)
package mqtt
