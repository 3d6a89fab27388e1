package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures the spectator feed and leaderboard endpoints
func SetupRoutes(hub *FeedHub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("feed: upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		watcher := NewWatcher(hub, conn, ip)
		watcher.SendJSON(feedHello{
			Type:    "hello",
			Mode:    hub.game.Mode().String(),
			Arena:   [2]int{WorldWidth, WorldHeight},
			TickHz:  TickRate,
			Encoded: "msgpack",
		})
		select {
		case hub.register <- watcher:
		case <-hub.done:
			hub.TrackDisconnect(ip)
			conn.Close()
			return
		}

		go watcher.WritePump()
		go watcher.ReadPump()
	})

	mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "leaderboard disabled", http.StatusNotFound)
			return
		}
		mode := ModeSolo
		if m := r.URL.Query().Get("mode"); m != "" {
			var err error
			if mode, err = ParseMode(m); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		rows, err := hub.db.TopScores(mode, limit)
		if err != nil {
			log.Printf("leaderboard: query: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []ScoreRow{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	})

	return mux
}
