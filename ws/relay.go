package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Realtime channel event names. A connected client emits send_message frames
// and every other connected client receives them as receive_message frames.
const (
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
)

// An Event is one frame on the realtime channel. The payload is forwarded
// verbatim; the relay never inspects it.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Relay forwards inbound message payloads to every other registered session.
// It is a pure fan-out layer: deliveries are best effort, are not persisted
// and are not addressed to the intended receiver specifically.
type Relay struct {
	Logger   *slog.Logger
	Registry *Registry
}

// OnMessage broadcasts the payload to every session except the origin. A
// failed delivery to one target is logged and skipped; it never reaches the
// origin and never aborts the rest of the fan-out.
func (rl *Relay) OnMessage(originID string, payload json.RawMessage) {
	frame, err := json.Marshal(Event{
		Event:   EventReceiveMessage,
		Payload: payload,
	})
	if err != nil {
		rl.Logger.Error("Could not encode relay frame", "error", err.Error())
		return
	}

	targets := rl.Registry.Others(originID)
	for _, s := range targets {
		if !s.enqueue(frame) {
			rl.Logger.Warn("Dropped frame for session", "session_id", s.ID)
		}
	}
	rl.Logger.Info("Relayed message", "origin", originID, "targets", len(targets))
}

// Handler upgrades HTTP requests to websocket sessions and runs their
// lifecycle against the relay.
type Handler struct {
	Logger *slog.Logger
	Relay  *Relay

	Upgrader websocket.Upgrader
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("Could not upgrade connection", "error", err.Error())
		return
	}

	s := newSession(conn)
	h.Relay.Registry.Add(s)
	h.Logger.Info("Session connected", "session_id", s.ID)

	go s.writePump()
	h.readPump(s)
}

// readPump consumes frames from the session until the connection drops, then
// unregisters the session exactly once.
func (h *Handler) readPump(s *Session) {
	defer func() {
		h.Relay.Registry.Remove(s.ID)
		_ = s.conn.Close()
		h.Logger.Info("Session disconnected", "session_id", s.ID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongDeadline))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			h.Logger.Warn("Discarded malformed frame", "session_id", s.ID)
			continue
		}
		if ev.Event != EventSendMessage {
			continue
		}
		h.Relay.OnMessage(s.ID, ev.Payload)
	}
}
