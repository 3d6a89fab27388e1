package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 100
)

// FeedHub fans render frames of the local game out to websocket watchers
type FeedHub struct {
	mu         sync.RWMutex
	watchers   map[*Watcher]bool
	register   chan *Watcher
	unregister chan *Watcher
	done       chan struct{} // closed when Run returns

	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	game *Game
	db   *DB
}

// NewFeedHub creates a hub streaming g. db may be nil.
func NewFeedHub(g *Game, db *DB) *FeedHub {
	return &FeedHub{
		watchers:   make(map[*Watcher]bool),
		register:   make(chan *Watcher, 16),
		unregister: make(chan *Watcher, 16),
		done:       make(chan struct{}),
		ipConns:    make(map[string]int),
		game:       g,
		db:         db,
	}
}

func (h *FeedHub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *FeedHub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *FeedHub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events and streams a frame every
// interval until ctx is done
func (h *FeedHub) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case w := <-h.register:
			h.mu.Lock()
			h.watchers[w] = true
			h.mu.Unlock()
		case w := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.watchers[w]; ok {
				delete(h.watchers, w)
				close(w.send)
			}
			h.mu.Unlock()
		case <-ticker.C:
			if h.WatcherCount() == 0 {
				continue
			}
			data, err := msgpack.Marshal(h.game.Frame())
			if err != nil {
				log.Printf("feed: marshal frame: %v", err)
				continue
			}
			h.Broadcast(data)
		}
	}
}

// Broadcast queues a binary frame on every watcher. Slow watchers miss it.
func (h *FeedHub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers {
		w.SendBinary(data)
	}
}

func (h *FeedHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers {
		delete(h.watchers, w)
		close(w.send)
	}
}

// WatcherCount returns the number of registered watchers
func (h *FeedHub) WatcherCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// TotalConns returns the tracked connection count
func (h *FeedHub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
