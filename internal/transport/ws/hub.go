// Package ws bridges the in-process Fan-out Bus to external clients
// over WebSocket for subscribe_events (spec §6) — the thin,
// out-of-core transport that the Bus itself stays agnostic to.
// Grounded on the teacher's sibling `serving` module's use of
// github.com/gorilla/websocket (this repo keeps that library but owns
// the handler, since the sibling module itself was not retrieved).
package ws

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/seawatch/trackwatch/internal/bus"
	"github.com/seawatch/trackwatch/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub upgrades HTTP connections and relays every Bus message to the
// resulting WebSocket as {kind, payload} JSON frames, per spec §6's
// subscribe_events shape.
type Hub struct {
	bus *bus.Bus
}

func NewHub(b *bus.Bus) *Hub {
	return &Hub{bus: b}
}

type eventFrame struct {
	Kind      bus.Kind  `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub.ID())

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// Drain client-initiated control frames (close/ping) on their own
	// goroutine so a client that never reads doesn't wedge the writer.
	go drainReads(conn)

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			if err := writeEvent(conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, msg bus.Message) error {
	frame := eventFrame{Kind: msg.Kind, SessionID: msg.SessionID, EmittedAt: msg.EmittedAt}
	switch msg.Kind {
	case bus.KindAlert:
		frame.Payload = msg.Alert
	case bus.KindTick:
		frame.Payload = msg.Tick
	case bus.KindError:
		if msg.Err != nil {
			frame.Payload = map[string]string{"error": msg.Err.Error()}
		}
	case bus.KindSummary:
		frame.Payload = msg.Summary
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

