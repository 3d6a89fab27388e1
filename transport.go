package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultPort      = 25665
	SendInterval     = 100 * time.Millisecond
	peerRate         = 60 // datagrams per second accepted from one source
	peerBurst        = 30
	stopJoinTimeout  = 100 * time.Millisecond
	maxTrackedSource = 256
)

// source is what the receive task remembers about one remote address
type source struct {
	limiter  *rate.Limiter
	admitted bool
	rejected bool // a rejection was already reported
}

// Syncer moves snapshots and inputs between the game and a UDP socket.
// The host sends HostSnapshot to every admitted peer; a client sends
// ClientInput to the host.
type Syncer struct {
	game      *Game
	conn      net.PacketConn
	hostAddr  net.Addr
	sendEvery time.Duration

	sources map[string]*source // receive task only

	// OnJoin fires when a client is admitted, OnReject when its join is
	// refused. Both run on the receive task.
	OnJoin   func(addr net.Addr, ship ShipState)
	OnReject func(addr net.Addr, err error)

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Listen binds the socket. Hosts pass the well-known port, clients ":0".
func Listen(addr string) (net.PacketConn, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	log.Printf("sync: listening on %s", conn.LocalAddr())
	return conn, nil
}

// NewSyncer wires a bound socket to the game. hostAddr is nil on the host.
func NewSyncer(g *Game, conn net.PacketConn, hostAddr net.Addr, sendEvery time.Duration) *Syncer {
	if sendEvery <= 0 {
		sendEvery = SendInterval
	}
	return &Syncer{
		game:      g,
		conn:      conn,
		hostAddr:  hostAddr,
		sendEvery: sendEvery,
		sources:   make(map[string]*source),
		stop:      make(chan struct{}),
	}
}

// LocalAddr returns the bound address
func (s *Syncer) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Start launches the send and receive tasks
func (s *Syncer) Start() {
	s.wg.Add(2)
	go s.sendLoop()
	go s.recvLoop()
}

// Stop closes the socket and waits briefly for both tasks
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.conn.Close()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * stopJoinTimeout):
			log.Printf("sync: tasks did not exit within %v", 2*stopJoinTimeout)
		}
	})
}

func (s *Syncer) sendLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sendEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sendOnce()
		}
	}
}

// sendOnce captures under the game lock and writes outside it
func (s *Syncer) sendOnce() {
	var (
		msg   Message
		peers []net.Addr
	)
	if s.game.IsHost() {
		var snap HostSnapshot
		snap, peers = s.game.CaptureHostSnapshot()
		if len(peers) == 0 {
			return
		}
		msg = snap
	} else {
		if s.hostAddr == nil {
			return
		}
		msg = s.game.CaptureClientInput()
		peers = []net.Addr{s.hostAddr}
	}

	data, err := Encode(msg)
	if err != nil {
		log.Printf("sync: %v", err)
		return
	}
	for _, p := range peers {
		if _, err := s.conn.WriteTo(data, p); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("sync: send to %s: %v", p, err)
		}
	}
}

func (s *Syncer) recvLoop() {
	defer s.wg.Done()
	buf := make([]byte, MaxDatagramSize)

	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("sync: receive: %v", err)
			continue
		}
		s.handleDatagram(buf[:n], addr)
	}
}

// handleDatagram decodes one datagram and applies it to the game. Messages
// of the wrong direction are ignored.
func (s *Syncer) handleDatagram(b []byte, addr net.Addr) {
	src := s.sourceFor(addr)
	if src == nil || !src.limiter.Allow() {
		return
	}

	msg, err := Decode(b)
	if err != nil {
		log.Printf("sync: drop datagram from %s: %v", addr, err)
		return
	}

	isHost := s.game.IsHost()
	switch m := msg.(type) {
	case ClientInput:
		if !isHost {
			return
		}
		if err := s.game.AcceptClientInput(m, addr); err != nil {
			if src.rejected {
				return
			}
			src.rejected = true
			log.Printf("sync: reject %s: %v", addr, err)
			if s.OnReject != nil {
				s.OnReject(addr, err)
			}
			return
		}
		src.rejected = false
		if !src.admitted {
			src.admitted = true
			log.Printf("sync: peer %s joined as ship %d (%s)", addr, m.Ship.ID, m.Ship.Mode)
			if s.OnJoin != nil {
				s.OnJoin(addr, m.Ship)
			}
		}
	case HostSnapshot:
		if isHost {
			return
		}
		s.game.ApplyHostSnapshot(m)
	}
}

func (s *Syncer) sourceFor(addr net.Addr) *source {
	key := addr.String()
	if src, ok := s.sources[key]; ok {
		return src
	}
	if len(s.sources) >= maxTrackedSource {
		// forget sources that never got admitted
		for k, src := range s.sources {
			if !src.admitted {
				delete(s.sources, k)
			}
		}
		if len(s.sources) >= maxTrackedSource {
			return nil
		}
	}
	src := &source{limiter: rate.NewLimiter(peerRate, peerBurst)}
	s.sources[key] = src
	return src
}
