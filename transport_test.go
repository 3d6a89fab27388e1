package main

import (
	"net"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) net.PacketConn {
	t.Helper()
	conn, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLoopbackCoopSync(t *testing.T) {
	host := NewGame(NewRand(1))
	host.Initialize(ModeCoop, true, true)
	client := NewGame(NewRand(2))
	client.ship.ID = (host.ship.ID + 1) % IdentitySpace
	client.Initialize(ModeCoop, false, true)

	hostConn := listenLoopback(t)
	clientConn := listenLoopback(t)

	hs := NewSyncer(host, hostConn, nil, 10*time.Millisecond)
	cs := NewSyncer(client, clientConn, hostConn.LocalAddr(), 10*time.Millisecond)
	joined := make(chan ShipState, 1)
	hs.OnJoin = func(_ net.Addr, s ShipState) { joined <- s }
	hs.Start()
	cs.Start()
	defer hs.Stop()
	defer cs.Stop()

	select {
	case s := <-joined:
		if s.ID != client.ship.ID {
			t.Errorf("expected client ship %d to join, got %d", client.ship.ID, s.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("client never joined")
	}

	waitFor(t, "host ship on the client", func() bool {
		for _, s := range client.Frame().Ships {
			if s.ID == host.ship.ID {
				return true
			}
		}
		return false
	})
	if len(host.Peers()) != 1 {
		t.Errorf("expected 1 peer on the host, got %d", len(host.Peers()))
	}
}

func TestSyncerRejectsWrongMode(t *testing.T) {
	host := NewGame(NewRand(1))
	host.Initialize(ModeCoop, true, true)
	client := NewGame(NewRand(2))
	client.ship.ID = (host.ship.ID + 1) % IdentitySpace
	client.Initialize(ModeDeathmatch, false, true)

	hostConn := listenLoopback(t)
	clientConn := listenLoopback(t)
	hs := NewSyncer(host, hostConn, nil, 10*time.Millisecond)
	cs := NewSyncer(client, clientConn, hostConn.LocalAddr(), 10*time.Millisecond)
	rejected := make(chan error, 10)
	hs.OnReject = func(_ net.Addr, err error) {
		select {
		case rejected <- err:
		default:
		}
	}
	hs.Start()
	cs.Start()
	defer hs.Stop()
	defer cs.Stop()

	select {
	case <-rejected:
	case <-time.After(3 * time.Second):
		t.Fatal("expected the join to be rejected")
	}
	if len(host.Peers()) != 0 {
		t.Errorf("rejected client must not become a peer, got %d", len(host.Peers()))
	}
}

func TestHandleDatagramRateLimit(t *testing.T) {
	host := NewGame(NewRand(1))
	host.Initialize(ModeCoop, true, true)
	s := NewSyncer(host, nil, nil, time.Second)
	from := peerAddr(5000)

	sent := 0
	for id := 0; id < 100; id++ {
		if id == host.ship.ID {
			continue
		}
		data, err := Encode(clientInput(id, ModeCoop))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		s.handleDatagram(data, from)
		sent++
	}

	n := len(host.Frame().Ships)
	if n < peerBurst || n > peerBurst+2 {
		t.Errorf("expected about %d accepted datagrams out of %d, got %d", peerBurst, sent, n)
	}
}

func TestRejectionReportedOncePerSource(t *testing.T) {
	host := NewGame(NewRand(1))
	host.Initialize(ModeCoop, true, true)
	s := NewSyncer(host, nil, nil, time.Second)
	rejects := map[string]int{}
	s.OnReject = func(addr net.Addr, _ error) { rejects[addr.String()]++ }

	data, err := Encode(clientInput((host.ship.ID+1)%IdentitySpace, ModeDeathmatch))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 5; i++ {
		s.handleDatagram(data, peerAddr(7000))
	}
	s.handleDatagram(data, peerAddr(7001))

	if rejects[peerAddr(7000).String()] != 1 || rejects[peerAddr(7001).String()] != 1 {
		t.Errorf("expected one report per source, got %v", rejects)
	}
}

func TestHandleDatagramDirection(t *testing.T) {
	client := NewGame(NewRand(2))
	client.Initialize(ModeCoop, false, true)
	s := NewSyncer(client, nil, peerAddr(25665), time.Second)

	data, _ := Encode(clientInput((client.ship.ID+1)%IdentitySpace, ModeCoop))
	s.handleDatagram(data, peerAddr(6000))
	if len(client.Frame().Ships) != 0 {
		t.Error("clients ignore ClientInput")
	}

	s.handleDatagram([]byte{0xff}, peerAddr(6000))
	s.handleDatagram([]byte{0x01, 0x00, 0xc1}, peerAddr(6000))
	if len(client.Frame().Ships) != 0 {
		t.Error("garbage must not touch the game")
	}
}

func TestSyncerStopReturnsPromptly(t *testing.T) {
	g := NewGame(NewRand(1))
	g.Initialize(ModeCoop, true, true)
	s := NewSyncer(g, listenLoopback(t), nil, 10*time.Millisecond)
	s.Start()

	start := time.Now()
	s.Stop()
	s.Stop()
	if d := time.Since(start); d > time.Second {
		t.Errorf("stop took %v", d)
	}
}
