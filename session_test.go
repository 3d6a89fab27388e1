package main

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastSession() *Session {
	g := NewGame(NewRand(1))
	g.SetTickDuration(time.Millisecond)
	return NewSession(g)
}

func waitResult(t *testing.T, ch <-chan SessionResult) SessionResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("session never ended")
	}
	return SessionResult{}
}

func TestSoloDeathEndsSession(t *testing.T) {
	s := fastSession()
	ended := make(chan SessionResult, 4)
	s.OnEnded(func(r SessionResult) { ended <- r })

	if err := s.Start(StartOptions{Mode: ModeSolo, Username: "ace"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	g := s.Game
	g.mu.Lock()
	g.ship.Grace = 0
	g.ship.Score = 4
	g.asteroids = append(g.asteroids, exposedAsteroid(1, g.ship.Pos, AsteroidSmall))
	g.mu.Unlock()

	res := waitResult(t, ended)
	if res.Mode != ModeSolo || res.Username != "ace" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.ID == "" {
		t.Error("result should carry the session id")
	}
	if res.Score < 4 {
		t.Errorf("expected score of at least 4, got %d", res.Score)
	}

	s.Quit()
	select {
	case <-ended:
		t.Error("end listeners must fire once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQuitIsIdempotent(t *testing.T) {
	s := fastSession()
	var n int32
	s.OnEnded(func(SessionResult) { atomic.AddInt32(&n, 1) })

	if err := s.Start(StartOptions{Mode: ModeSolo}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(StartOptions{Mode: ModeSolo}); !errors.Is(err, ErrSessionActive) {
		t.Errorf("expected ErrSessionActive, got %v", err)
	}
	s.Quit()
	s.Quit()
	s.Wait()

	if got := atomic.LoadInt32(&n); got != 1 {
		t.Errorf("expected 1 end notification, got %d", got)
	}
	if s.Game.IsRunning() {
		t.Error("game should be stopped after Quit")
	}
}

func TestSessionRestarts(t *testing.T) {
	s := fastSession()
	if err := s.Start(StartOptions{Mode: ModeSolo}); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := s.currentID()
	s.Quit()

	if err := s.Start(StartOptions{Mode: ModeSolo}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Quit()
	if s.currentID() == first {
		t.Error("each start gets a fresh session id")
	}
}

func TestSpectatorCannotHost(t *testing.T) {
	s := fastSession()
	err := s.Start(StartOptions{Mode: ModeSpectate, Host: true})
	if !errors.Is(err, ErrSpectatorHost) {
		t.Errorf("expected ErrSpectatorHost, got %v", err)
	}
	if s.Game.IsRunning() {
		t.Error("a rejected start must not run the game")
	}
}

func TestStartNetworkMismatch(t *testing.T) {
	s := fastSession()
	for _, mode := range []GameMode{ModeCoop, ModeDeathmatch} {
		if err := s.Start(StartOptions{Mode: mode}); !errors.Is(err, ErrOfflineMode) {
			t.Errorf("%s offline: expected ErrOfflineMode, got %v", mode, err)
		}
	}
	if err := s.Start(StartOptions{Mode: ModeSolo, Host: true}); !errors.Is(err, ErrSoloNetworked) {
		t.Errorf("expected ErrSoloNetworked, got %v", err)
	}
	if s.Game.IsRunning() {
		t.Error("a rejected start must not run the game")
	}
}

func TestClientNeedsHostAddress(t *testing.T) {
	s := fastSession()
	err := s.Start(StartOptions{Mode: ModeCoop, Multiplayer: true})
	if !errors.Is(err, ErrNoHostAddress) {
		t.Errorf("expected ErrNoHostAddress, got %v", err)
	}
}

func TestMultiplayerHostBindsSyncer(t *testing.T) {
	s := fastSession()
	hooked := make(chan *Syncer, 1)
	s.OnSyncer(func(sy *Syncer) { hooked <- sy })

	err := s.Start(StartOptions{Mode: ModeCoop, Host: true, Multiplayer: true, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Quit()

	select {
	case sy := <-hooked:
		if sy != s.Syncer() {
			t.Error("hook should see the session's syncer")
		}
		if sy.LocalAddr() == nil {
			t.Error("syncer should be bound")
		}
	default:
		t.Fatal("syncer hooks run during Start")
	}
	if !s.Game.IsHost() {
		t.Error("game should be the host")
	}
}

func TestDeathmatchDeathQuits(t *testing.T) {
	s := fastSession()
	ended := make(chan SessionResult, 1)
	s.OnEnded(func(r SessionResult) { ended <- r })

	err := s.Start(StartOptions{Mode: ModeDeathmatch, Host: true, Multiplayer: true, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	g := s.Game
	g.mu.Lock()
	g.ship.Score = 9
	g.ship.Destroy()
	g.mu.Unlock()

	res := waitResult(t, ended)
	if res.Score != 0 {
		t.Errorf("deathmatch reports no score, got %d", res.Score)
	}
}

func TestCoopDeathSpectates(t *testing.T) {
	s := fastSession()
	err := s.Start(StartOptions{Mode: ModeCoop, Host: true, Multiplayer: true, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Quit()

	g := s.Game
	g.mu.Lock()
	g.ship.Destroy()
	g.mu.Unlock()

	waitFor(t, "spectator ship", func() bool { return g.Frame().Ship.Spectator })
	if !g.IsRunning() {
		t.Error("coop keeps running after the local ship dies")
	}
}
