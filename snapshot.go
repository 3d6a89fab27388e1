package main

import (
	"errors"
	"fmt"
	"net"
)

var (
	ErrModeMismatch  = errors.New("peer declared a different game mode")
	ErrIdentityClash = errors.New("peer ship identity equals the host's")
	ErrDeadPeer      = errors.New("peer ship is already destroyed")
)

// IsHost reports whether this participant hosts the session
func (g *Game) IsHost() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isHost
}

// Peers returns the addresses snapshots are sent to
func (g *Game) Peers() []net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]net.Addr(nil), g.peers...)
}

func (g *Game) addPeer(addr net.Addr) {
	if addr == nil {
		return
	}
	key := addr.String()
	for _, p := range g.peers {
		if p.String() == key {
			return
		}
	}
	g.peers = append(g.peers, addr)
}

// CaptureHostSnapshot copies the shared state for broadcast, together with
// the peers it should go to
func (g *Game) CaptureHostSnapshot() (HostSnapshot, []net.Addr) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode == ModeCoop {
		g.ship.CoopScore = g.coopScore()
	}
	s := HostSnapshot{
		Mode:    g.mode,
		Tick:    g.tick,
		Bullets: make([]BulletState, 0, len(g.bullets)),
		Ships:   make([]ShipState, 0, len(g.remoteShips)),
		Host:    g.ship.ToState(),
	}
	if g.mode != ModeDeathmatch {
		s.Asteroids = make([]AsteroidState, 0, len(g.asteroids))
		for _, a := range g.asteroids {
			s.Asteroids = append(s.Asteroids, a.ToState())
		}
	}
	for _, b := range g.bullets {
		s.Bullets = append(s.Bullets, b.ToState())
	}
	for _, r := range g.remoteShips {
		s.Ships = append(s.Ships, r.ToState())
	}
	return s, append([]net.Addr(nil), g.peers...)
}

// CaptureClientInput copies the local ship and the bullets fired since the
// previous capture. Spectators send their ship only.
func (g *Game) CaptureClientInput() ClientInput {
	g.mu.Lock()
	defer g.mu.Unlock()

	in := ClientInput{Ship: g.ship.ToState()}
	if g.mode != ModeSpectate && !g.ship.Spectator {
		for _, b := range g.outgoing {
			in.Bullets = append(in.Bullets, b.ToState())
		}
	}
	g.outgoing = g.outgoing[:0]
	return in
}

// AcceptClientInput merges a client's ship and bullets into the host state.
// from is remembered as a snapshot destination once the peer is admitted.
func (g *Game) AcceptClientInput(in ClientInput, from net.Addr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	inc := in.Ship
	if inc.ID == g.ship.ID {
		return fmt.Errorf("ship %d: %w", inc.ID, ErrIdentityClash)
	}

	if s, ok := g.remoteShips[inc.ID]; ok {
		s.SetMotion(inc.Pos, inc.Vel)
		s.Direction = inc.Direction
		s.Score = inc.Score
		s.Health = inc.Health
		if inc.Destroyed {
			s.Destroy()
		}
		if s.IsDestroyed() {
			g.handleRemoteDeath(s)
		}
		if g.mode == ModeCoop {
			g.ship.CoopScore = g.coopScore()
		}
	} else {
		if inc.Mode != g.mode && inc.Mode != ModeSpectate && !inc.Spectator {
			return fmt.Errorf("ship %d declared %s, host runs %s: %w", inc.ID, inc.Mode, g.mode, ErrModeMismatch)
		}
		// only coop keeps the dead around, as spectators
		if inc.Destroyed && g.mode != ModeCoop {
			return fmt.Errorf("ship %d: %w", inc.ID, ErrDeadPeer)
		}
		s := shipFromState(inc)
		if s.IsDestroyed() && g.mode == ModeCoop {
			s = s.spectatorCopy()
		}
		g.remoteShips[inc.ID] = s
		if g.mode == ModeCoop {
			g.ship.CoopScore = g.coopScore()
		}
	}
	g.addPeer(from)

	for _, b := range in.Bullets {
		g.bullets = mergeBullet(g.bullets, b)
	}
	return nil
}

// handleRemoteDeath runs the death transition for a remote participant
func (g *Game) handleRemoteDeath(s *Ship) {
	switch g.mode {
	case ModeCoop:
		g.remoteShips[s.ID] = s.spectatorCopy()
	case ModeDeathmatch:
		delete(g.remoteShips, s.ID)
	}
}

// coopScore sums the host score and every remote participant's score
func (g *Game) coopScore() int {
	total := g.ship.Score
	for _, r := range g.remoteShips {
		total += r.Score
	}
	return total
}

// ApplyHostSnapshot reconciles the local view with the host's. Asteroids
// and remote ships are replaced wholesale; bullets merge by identity. The
// local ship is never overwritten.
func (g *Game) ApplyHostSnapshot(s HostSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode != ModeDeathmatch {
		asteroids := make([]*Asteroid, 0, len(s.Asteroids))
		for _, a := range s.Asteroids {
			asteroids = append(asteroids, asteroidFromState(a))
		}
		g.asteroids = asteroids
	}

	for _, b := range s.Bullets {
		g.bullets = mergeBullet(g.bullets, b)
	}

	ships := make(map[int]*Ship, len(s.Ships)+1)
	for _, st := range s.Ships {
		if st.ID != g.ship.ID {
			ships[st.ID] = shipFromState(st)
		}
	}
	if s.Host.ID != g.ship.ID {
		ships[s.Host.ID] = shipFromState(s.Host)
	}
	g.remoteShips = ships

	if g.mode == ModeCoop {
		g.ship.CoopScore = s.Host.CoopScore
	}
}
