package events

import "time"

// Event types.
const (
	UserCreated          = "user.created"
	UserUpdated          = "user.updated"
	UserDeleted          = "user.deleted"
	UserLoggedIn         = "user.logged_in"
	GameCreated          = "game.created"
	GameUpdated          = "game.updated"
	GameDeleted          = "game.deleted"
	GameOwnershipChanged = "game.ownership_changed"
)

// Event is a domain event as published on every sink.
type Event struct {
	Type      string    `json:"type"`
	Action    string    `json:"action,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	EntityID  string    `json:"entity_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
