package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/concert-seat-selection/internal/broadcast"
)

// WSHandler serves the live seat_update stream at GET /ws.  The subscription
// is registered before the handshake completes its greeting, so a client that
// pulls GET /api/seats right after connecting cannot both miss a transition
// and see a snapshot without it.
type WSHandler struct {
	Events *broadcast.Broadcaster
}

// NewWSHandler constructs a WSHandler.
func NewWSHandler(events *broadcast.Broadcaster) *WSHandler {
	if events == nil {
		panic("nil broadcaster passed to NewWSHandler")
	}
	return &WSHandler{Events: events}
}

// Live upgrades the connection and streams events until the peer goes away.
// The client_id query parameter is recorded for correlation only; it grants
// nothing.  Text frames carrying "ping" are answered with "pong".
func (h *WSHandler) Live(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		sub := h.Events.Subscribe(clientID)
		defer h.Events.Unsubscribe(sub)

		if err := websocket.JSON.Send(ws, echo.Map{"event": "connected", "client_id": clientID}); err != nil {
			return
		}

		// Reader goroutine: answers pings and detects the peer closing.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var msg string
				if err := websocket.Message.Receive(ws, &msg); err != nil {
					return
				}
				if msg == "ping" {
					if err := websocket.Message.Send(ws, "pong"); err != nil {
						return
					}
				}
			}
		}()

		for {
			select {
			case ev, ok := <-sub.C():
				if !ok {
					return
				}
				if err := websocket.JSON.Send(ws, ev); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}
