package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 512
	sendBufSize       = 16
	maxMessagesPerSec = 10
)

// feedHello is the first text message a watcher receives
type feedHello struct {
	Type    string `json:"type"`
	Mode    string `json:"mode"`
	Arena   [2]int `json:"arena"`
	TickHz  int    `json:"tick_hz"`
	Encoded string `json:"encoding"`
}

type wsMessage struct {
	binary bool
	data   []byte
}

// Watcher is a read-only websocket connection on the spectator feed
type Watcher struct {
	hub        *FeedHub
	conn       *websocket.Conn
	send       chan wsMessage
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewWatcher creates a Watcher
func NewWatcher(hub *FeedHub, conn *websocket.Conn, remoteAddr string) *Watcher {
	return &Watcher{
		hub:        hub,
		conn:       conn,
		send:       make(chan wsMessage, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump keeps the connection alive. Watchers have nothing to say; a
// chatty one is disconnected.
func (w *Watcher) ReadPump() {
	defer func() {
		w.hub.TrackDisconnect(w.remoteAddr)
		select {
		case w.hub.unregister <- w:
		case <-w.hub.done:
		}
		w.conn.Close()
	}()

	w.conn.SetReadLimit(maxMessageSize)
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("feed: ws error: %v", err)
			}
			return
		}

		now := time.Now()
		if now.After(w.msgResetAt) {
			w.msgCount = 0
			w.msgResetAt = now.Add(time.Second)
		}
		w.msgCount++
		if w.msgCount > maxMessagesPerSec {
			log.Printf("feed: rate limit exceeded for %s, disconnecting", w.remoteAddr)
			return
		}
	}
}

// WritePump writes queued messages and pings to the connection
func (w *Watcher) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		w.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				w.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if msg.binary {
				kind = websocket.BinaryMessage
			}
			if err := w.conn.WriteMessage(kind, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON queues a text message
func (w *Watcher) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("feed: marshal error: %v", err)
		return
	}
	w.enqueue(wsMessage{data: data})
}

// SendBinary queues a binary frame
func (w *Watcher) SendBinary(data []byte) {
	w.enqueue(wsMessage{binary: true, data: data})
}

func (w *Watcher) enqueue(m wsMessage) {
	// send may already be closed by the hub
	defer func() { recover() }()
	select {
	case w.send <- m:
	default:
		// too slow, drop
	}
}
