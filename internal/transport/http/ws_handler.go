package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mc-test-service/internal/app"
	"mc-test-service/internal/domain"
)

// WSHandler streams leaderboard snapshots to dashboard clients as answers
// come in, so the admin view updates without polling the log.
type WSHandler struct {
	hub      *app.LeaderboardHub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *app.LeaderboardHub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and forwards hub updates until the client
// disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[domain.Leaderboard], 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Drain inbound frames so close/ping handling works; clients have
	// nothing to say on this endpoint.
	go func() {
		defer close(readerDone)
		for {
			var discard json.RawMessage
			if err := conn.ReadJSON(&discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			select {
			case send <- outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: update}:
			case <-writerDone:
				return
			case <-readerDone:
				close(send)
				<-writerDone
				return
			}
		case <-readerDone:
			close(send)
			<-writerDone
			return
		case <-writerDone:
			return
		}
	}
}
