package mqtt

import "strings"

// Topic roots.
const (
	// TopicPrefix is the root of every Game Circle topic.
	TopicPrefix = "gamecircle"

	// TopicPrefixEvents is the root for domain events.
	TopicPrefixEvents = TopicPrefix + "/events"

	// TopicPrefixSystem is the root for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for Game Circle MQTT topics.
//
//	topic := mqtt.Topics{}.Event("game.ownership_changed")
//	// Returns: "gamecircle/events/game.ownership_changed"
type Topics struct{}

// Event returns the topic a domain event of the given type is published on.
func (Topics) Event(eventType string) string {
	return TopicPrefixEvents + "/" + eventType
}

// AllEvents returns the wildcard matching every domain event.
func (Topics) AllEvents() string {
	return TopicPrefixEvents + "/#"
}

// SystemStatus returns the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// EventTypeFromTopic extracts the event type from an event topic.
// It returns false for topics outside gamecircle/events/.
func EventTypeFromTopic(topic string) (string, bool) {
	eventType, ok := strings.CutPrefix(topic, TopicPrefixEvents+"/")
	if !ok || eventType == "" {
		return "", false
	}
	return eventType, true
}
