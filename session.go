package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

var (
	ErrSpectatorHost = errors.New("spectators cannot host")
	ErrNoHostAddress = errors.New("joining requires a host address")
	ErrSessionActive = errors.New("session already running")
	ErrOfflineMode   = errors.New("mode needs a network session")
	ErrSoloNetworked = errors.New("solo games are not networked")
)

// StartOptions describes the session to start
type StartOptions struct {
	Mode        GameMode
	Host        bool
	Multiplayer bool
	HostAddr    string // client: where the host listens
	ListenAddr  string // host: defaults to the well-known port
	Username    string
	Color       int
	SendEvery   time.Duration
}

// SessionResult is handed to end listeners
type SessionResult struct {
	ID       string
	Mode     GameMode
	Username string
	Score    int
	Duration time.Duration
}

// Session wires a Game to its syncer and runs it from Start to Quit
type Session struct {
	ID   string
	Game *Game

	mu        sync.Mutex
	syncer    *Syncer
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	active    bool
	ended     bool

	onStarted []func(*Session)
	onEnded   []func(SessionResult)
	onSyncer  []func(*Syncer)
}

// NewSession creates an idle session around g
func NewSession(g *Game) *Session {
	s := &Session{Game: g}
	g.AddDeathListener(s.handleDeath)
	return s
}

// OnStarted registers a callback fired after a successful Start
func (s *Session) OnStarted(fn func(*Session)) {
	s.mu.Lock()
	s.onStarted = append(s.onStarted, fn)
	s.mu.Unlock()
}

// OnEnded registers a callback fired exactly once when the session ends
func (s *Session) OnEnded(fn func(SessionResult)) {
	s.mu.Lock()
	s.onEnded = append(s.onEnded, fn)
	s.mu.Unlock()
}

// OnSyncer registers a callback that can hook into the syncer of a
// multiplayer session before it starts
func (s *Session) OnSyncer(fn func(*Syncer)) {
	s.mu.Lock()
	s.onSyncer = append(s.onSyncer, fn)
	s.mu.Unlock()
}

func (s *Session) currentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ID
}

// Syncer returns the running syncer, nil for single player
func (s *Session) Syncer() *Syncer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncer
}

// Start initializes the game for opts, binds the socket when multiplayer and
// launches the simulation
func (s *Session) Start(opts StartOptions) error {
	if opts.Mode == ModeSpectate && opts.Host {
		return ErrSpectatorHost
	}
	multiplayer := opts.Multiplayer || opts.Host || opts.HostAddr != "" || opts.Mode == ModeSpectate
	switch {
	case opts.Mode == ModeSolo && multiplayer:
		return ErrSoloNetworked
	case opts.Mode != ModeSolo && !multiplayer:
		return fmt.Errorf("%s: %w", opts.Mode, ErrOfflineMode)
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.mu.Unlock()

	var syncer *Syncer
	if multiplayer {
		var err error
		if syncer, err = s.openSyncer(opts); err != nil {
			return err
		}
	}

	g := s.Game
	g.Initialize(opts.Mode, opts.Host, multiplayer)
	if opts.Username != "" {
		g.SetUsername(opts.Username)
	}
	if opts.Color != 0 && !g.SetColor(opts.Color) {
		log.Printf("session: ignoring color %d", opts.Color)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.ID = GenerateUUID()
	s.syncer = syncer
	s.cancel = cancel
	s.done = done
	s.startedAt = time.Now()
	s.active = true
	s.ended = false
	hooks := append([]func(*Syncer){}, s.onSyncer...)
	started := append([]func(*Session){}, s.onStarted...)
	s.mu.Unlock()

	g.Start()
	go func() {
		defer close(done)
		g.Run(ctx)
		s.end()
	}()
	if syncer != nil {
		for _, fn := range hooks {
			fn(syncer)
		}
		syncer.Start()
	}

	log.Printf("session: %s started (%s, host=%v, multiplayer=%v)", s.ID, opts.Mode, opts.Host, multiplayer)
	for _, fn := range started {
		fn(s)
	}
	return nil
}

func (s *Session) openSyncer(opts StartOptions) (*Syncer, error) {
	if opts.Host {
		addr := opts.ListenAddr
		if addr == "" {
			addr = fmt.Sprintf(":%d", DefaultPort)
		}
		conn, err := Listen(addr)
		if err != nil {
			return nil, err
		}
		return NewSyncer(s.Game, conn, nil, opts.SendEvery), nil
	}

	if opts.HostAddr == "" {
		return nil, ErrNoHostAddress
	}
	hostAddr, err := net.ResolveUDPAddr("udp", opts.HostAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve host %s: %w", opts.HostAddr, err)
	}
	conn, err := Listen(":0")
	if err != nil {
		return nil, err
	}
	return NewSyncer(s.Game, conn, hostAddr, opts.SendEvery), nil
}

// Quit stops the simulation and the network tasks. Safe to call more than
// once and from any goroutine.
func (s *Session) Quit() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.Game.Stop()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopJoinTimeout):
			log.Printf("session: simulation did not stop within %v", stopJoinTimeout)
		}
	}
	s.end()
}

// Wait blocks until the simulation task has exited
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// end releases the network and fires the end listeners once per Start
func (s *Session) end() {
	s.mu.Lock()
	if !s.active || s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.active = false
	syncer := s.syncer
	ls := append([]func(SessionResult){}, s.onEnded...)
	res := SessionResult{
		ID:       s.ID,
		Mode:     s.Game.Mode(),
		Score:    s.Game.FinalScore(),
		Duration: time.Since(s.startedAt),
	}
	s.mu.Unlock()

	if syncer != nil {
		syncer.Stop()
	}
	res.Username = s.Game.Frame().Ship.Username

	log.Printf("session: %s ended, %s score %d", res.ID, res.Mode, res.Score)
	for _, fn := range ls {
		fn(res)
	}
}

// handleDeath applies the mode's death behavior. Solo games stop from the
// simulation task itself.
func (s *Session) handleDeath() {
	switch s.Game.Mode() {
	case ModeCoop:
		s.Game.Spectate()
	case ModeDeathmatch:
		go s.Quit()
	}
}
