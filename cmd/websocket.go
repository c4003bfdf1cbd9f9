package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"qurylysBack/internal/models"
)

const (
	readLimit          = 1 << 20
	readDeadline       = 120 * time.Second
	writeDeadline      = 5 * time.Second
	pingInterval       = 15 * time.Second
	firstHelloDeadline = 30 * time.Second
)

type directEvent struct {
	userID int
	event  models.QuoteEvent
}

type unreg struct {
	userID int
	conn   *websocket.Conn
}

type Client struct {
	ID     int
	Socket *websocket.Conn
}

// EventHub pushes negotiation events to connected parties. All access to
// clients happens on the Run goroutine.
type EventHub struct {
	clients    map[int]*websocket.Conn
	direct     chan directEvent
	register   chan Client
	unregister chan unreg
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[int]*websocket.Conn),
		direct:     make(chan directEvent),
		register:   make(chan Client),
		unregister: make(chan unreg),
	}
}

// Publish delivers the event to the user's socket if one is connected.
// Offline users are skipped: events are a live feed, not a mailbox.
func (ws *EventHub) Publish(userID int, event models.QuoteEvent) {
	ws.direct <- directEvent{userID: userID, event: event}
}

func (ws *EventHub) Run() {
	for {
		select {
		case client := <-ws.register:
			if old, ok := ws.clients[client.ID]; ok && old != nil && old != client.Socket {
				_ = old.Close()
			}
			ws.clients[client.ID] = client.Socket
			log.Printf("WS register user=%d", client.ID)

		case u := <-ws.unregister:
			if cur, ok := ws.clients[u.userID]; ok && cur == u.conn {
				_ = cur.Close()
				delete(ws.clients, u.userID)
				log.Printf("WS unregister user=%d", u.userID)
			}

		case de := <-ws.direct:
			if conn, ok := ws.clients[de.userID]; ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteJSON(de.event); err != nil {
					log.Printf("event send error to=%d: %v", de.userID, err)
					_ = conn.Close()
					delete(ws.clients, de.userID)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
}

// WebSocketHandler upgrades the connection and subscribes the authenticated
// user to quote events. The identity comes from the JWT middleware, so no
// hello frame is trusted for it.
func (app *application) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok || userID == 0 {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	app.eventHub.register <- Client{ID: userID, Socket: conn}

	go pingLoop(app.eventHub, conn, userID)
	go drainSocket(conn, userID, app.eventHub)
}

func pingLoop(ws *EventHub, conn *websocket.Conn, uid int) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for range t.C {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			_ = writeClose(conn, websocket.CloseGoingAway, "ping error")
			ws.unregister <- unreg{userID: uid, conn: conn}
			return
		}
	}
}

// drainSocket keeps the read side alive for control frames. The events feed
// is server-to-client only; any data frame from the client is discarded.
func drainSocket(conn *websocket.Conn, userID int, hub *EventHub) {
	defer func() {
		hub.unregister <- unreg{userID: userID, conn: conn}
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, reason string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeDeadline),
	)
}
