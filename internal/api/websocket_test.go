package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gamecircle-core/internal/events"
	"github.com/nerrad567/gamecircle-core/internal/game"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testWSConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func fakeClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
}

// ─── Hub ───────────────────────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := fakeClient(hub, events.GameOwnershipChanged)
	hub.Register(client)

	hub.Broadcast(events.GameOwnershipChanged, map[string]any{"entity_id": "gam-1"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != events.GameOwnershipChanged {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := fakeClient(hub, events.UserCreated)
	hub.Register(client)

	hub.Broadcast(events.GameCreated, map[string]any{"entity_id": "gam-1"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_Wildcard(t *testing.T) {
	hub := newTestHub(t)
	client := fakeClient(hub, wildcardChannel)
	hub.Register(client)

	hub.Broadcast(events.GameDeleted, nil)
	hub.Broadcast(events.UserDeleted, nil)

	if got := len(client.send); got != 2 {
		t.Errorf("wildcard client received %d messages, want 2", got)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)

	var gauge float64 = -1
	hub.onCountChange = func(v float64) { gauge = v }

	client := fakeClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 || gauge != 1 {
		t.Errorf("after register count = %d gauge = %v, want 1", hub.ClientCount(), gauge)
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call must not double-close
	if hub.ClientCount() != 0 || gauge != 0 {
		t.Errorf("after unregister count = %d gauge = %v, want 0", hub.ClientCount(), gauge)
	}
}

// ─── Full Connection ───────────────────────────────────────────────

// startWithHubSink runs a real listener with the event bus feeding the hub,
// the wiring used when MQTT is disabled.
func startWithHubSink(t *testing.T) *testEnv {
	t.Helper()

	hub := NewHub(testWSConfig(), testLogger())
	bus := events.NewBus(testLogger().Logger, 16, events.NewHubSink(hub))
	t.Cleanup(bus.Close)

	env := newTestEnv(t, func(d *Deps) {
		d.Hub = hub
		d.Events = bus
	})
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { env.srv.Close() }) //nolint:errcheck // Test cleanup
	return env
}

func dialWS(t *testing.T, env *testEnv, token string) *websocket.Conn {
	t.Helper()

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", token, nil)
	ticket, _ := decode[map[string]any](t, w)["ticket"].(string) //nolint:errcheck // empty ticket fails the dial

	ws, resp, err := websocket.DefaultDialer.Dial("ws://"+env.srv.Addr()+"/api/v1/ws?ticket="+ticket, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck // Test cleanup
	return ws
}

func readWS(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // read error reported below
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_OwnershipEvents(t *testing.T) {
	env := startWithHubSink(t)
	_, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	g := createGame(t, env, ann, "Chess")

	ws := dialWS(t, env, ann)
	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{events.GameOwnershipChanged}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if resp := readWS(t, ws); resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	env.do(t, http.MethodPost, "/games/"+g.ID+"/ownership", ann, nil)

	msg := readWS(t, ws)
	if msg.Type != WSTypeEvent || msg.EventType != events.GameOwnershipChanged {
		t.Fatalf("event = %+v", msg)
	}
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var evt struct {
		Action   string    `json:"action"`
		EntityID string    `json:"entity_id"`
		Data     game.Game `json:"data"`
	}
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if evt.Action != "removed" || evt.EntityID != g.ID || len(evt.Data.Owners) != 0 {
		t.Errorf("event payload = %+v", evt)
	}
}

func TestWebSocket_PingAndErrors(t *testing.T) {
	env := startWithHubSink(t)
	_, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	ws := dialWS(t, env, ann)

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p-1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readWS(t, ws); msg.Type != WSTypePong || msg.ID != "p-1" {
		t.Errorf("ping reply = %+v", msg)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, ws); msg.Type != WSTypeError {
		t.Errorf("invalid JSON reply = %+v", msg)
	}

	if err := ws.WriteJSON(WSMessage{Type: "launch", ID: "x-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, ws); msg.Type != WSTypeError || msg.ID != "x-1" {
		t.Errorf("unknown type reply = %+v", msg)
	}
}

func TestWebSocket_TicketRequired(t *testing.T) {
	env := startWithHubSink(t)

	for _, query := range []string{"", "?ticket=bogus"} {
		t.Run(query, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial("ws://"+env.srv.Addr()+"/api/v1/ws"+query, nil)
			if err == nil {
				t.Fatal("dial should fail without a valid ticket")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("response = %v, want 401", resp)
			}
		})
	}
}

func TestWebSocket_TicketIsSingleUse(t *testing.T) {
	env := startWithHubSink(t)
	_, ann := env.signupAndLogin(t, "Ann", "ann@x.com")

	w := env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", ann, nil)
	ticket, _ := decode[map[string]any](t, w)["ticket"].(string) //nolint:errcheck // checked by dial
	url := "ws://" + env.srv.Addr() + "/api/v1/ws?ticket=" + ticket

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	ws.Close() //nolint:errcheck // Test cleanup

	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil || !strings.Contains(err.Error(), "bad handshake") {
		t.Errorf("second dial err = %v, want bad handshake", err)
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	env := startWithHubSink(t)
	_, ann := env.signupAndLogin(t, "Ann", "ann@x.com")
	ws := dialWS(t, env, ann)

	send := func(msg WSMessage) WSMessage {
		t.Helper()
		if err := ws.WriteJSON(msg); err != nil {
			t.Fatalf("write %s: %v", msg.Type, err)
		}
		return readWS(t, ws)
	}

	if resp := send(WSMessage{Type: WSTypeSubscribe, ID: "bad"}); resp.Type != WSTypeError || resp.ID != "bad" {
		t.Errorf("subscribe without payload reply = %+v", resp)
	}

	channels := WSSubscribePayload{Channels: []string{events.GameCreated, events.GameDeleted}}
	if resp := send(WSMessage{Type: WSTypeSubscribe, ID: "s", Payload: channels}); resp.Type != WSTypeResponse {
		t.Fatalf("subscribe reply = %+v", resp)
	}
	drop := WSSubscribePayload{Channels: []string{events.GameCreated}}
	if resp := send(WSMessage{Type: WSTypeUnsubscribe, ID: "u", Payload: drop}); resp.Type != WSTypeResponse || resp.ID != "u" {
		t.Fatalf("unsubscribe reply = %+v", resp)
	}

	// Created is no longer delivered; the delete that follows is.
	g := createGame(t, env, ann, "Go")
	env.do(t, http.MethodDelete, "/games/"+g.ID, ann, nil)

	msg := readWS(t, ws)
	if msg.Type != WSTypeEvent || msg.EventType != events.GameDeleted {
		t.Errorf("first event = %+v, want %s", msg, events.GameDeleted)
	}
}
