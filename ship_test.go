package main

import (
	"math"
	"strings"
	"testing"
)

func TestNewShip(t *testing.T) {
	s := NewShip(42)
	if s.ID != 42 {
		t.Errorf("expected ID 42, got %d", s.ID)
	}
	if s.Pos != (Vec2{WorldWidth / 2, WorldHeight / 2}) {
		t.Errorf("expected ship in the middle, got %+v", s.Pos)
	}
	if s.Energy != EnergyCapacity {
		t.Errorf("expected energy %f, got %f", EnergyCapacity, s.Energy)
	}
	if s.Health != ShipMaxHealth {
		t.Errorf("expected health %f, got %f", ShipMaxHealth, s.Health)
	}
	if s.Grace != ShipGraceTicks {
		t.Errorf("expected grace %d, got %d", ShipGraceTicks, s.Grace)
	}
	if s.Radius() != ShipRadius {
		t.Errorf("expected radius %f, got %f", ShipRadius, s.Radius())
	}
}

func TestShipAccelerate(t *testing.T) {
	s := NewShip(1)
	s.Accelerate = true
	s.Step()

	wantVY := -ShipAccel * ShipDampening
	if math.Abs(s.Vel.X) > 1e-9 || math.Abs(s.Vel.Y-wantVY) > 1e-9 {
		t.Errorf("expected velocity (0,%f), got %+v", wantVY, s.Vel)
	}
	if want := EnergyCapacity - AccelEnergyCost + EnergyRegenerated; s.Energy != want {
		t.Errorf("expected energy %f, got %f", want, s.Energy)
	}
}

func TestShipAccelerateCappedAtMaxSpeed(t *testing.T) {
	s := NewShip(1)
	s.Vel = Vec2{0, -ShipMaxSpeed}
	s.Accelerate = true
	s.Step()
	if math.Abs(s.Vel.Y+ShipMaxSpeed*ShipDampening) > 1e-9 {
		t.Errorf("ship at max speed should not accelerate, got %+v", s.Vel)
	}
}

func TestShipTurn(t *testing.T) {
	s := NewShip(1)
	s.TurnLeft = true
	s.Step()
	if math.Abs(s.Direction+ShipTurnPerTick) > 1e-9 {
		t.Errorf("expected direction %f, got %f", -ShipTurnPerTick, s.Direction)
	}

	s.TurnLeft = false
	s.TurnRight = true
	s.Step()
	s.Step()
	if math.Abs(s.Direction-ShipTurnPerTick) > 1e-9 {
		t.Errorf("expected direction %f, got %f", ShipTurnPerTick, s.Direction)
	}
}

func TestShipNeedsEnergy(t *testing.T) {
	s := NewShip(1)
	s.Energy = 2
	s.TurnLeft = true
	s.Accelerate = true
	s.Step()
	if s.Direction != 0 {
		t.Errorf("turning without energy should do nothing, got %f", s.Direction)
	}
	if s.Vel != (Vec2{}) {
		t.Errorf("thrust without energy should do nothing, got %+v", s.Vel)
	}
	if s.Energy != 2+EnergyRegenerated {
		t.Errorf("expected energy to recharge to %f, got %f", 2+EnergyRegenerated, s.Energy)
	}
}

func TestShipDampening(t *testing.T) {
	s := NewShip(1)
	s.Vel = Vec2{10, 0}
	s.Step()
	if math.Abs(s.Vel.X-10*ShipDampening) > 1e-9 {
		t.Errorf("expected vx %f, got %f", 10*ShipDampening, s.Vel.X)
	}
	if math.Abs(s.Pos.X-(WorldWidth/2+10)) > 1e-9 {
		t.Errorf("ship should move with its pre-tick velocity, got x=%f", s.Pos.X)
	}
}

func TestShipWeapon(t *testing.T) {
	s := NewShip(1)
	if s.CanFire() {
		t.Error("should not fire without the fire flag")
	}
	s.Fire = true
	if !s.CanFire() {
		t.Fatal("should be able to fire")
	}
	s.MarkFired()
	if s.CanFire() {
		t.Error("weapon should be cooling down")
	}
	if s.Energy != EnergyCapacity-WeaponEnergyCost {
		t.Errorf("expected energy %f, got %f", EnergyCapacity-WeaponEnergyCost, s.Energy)
	}
	for i := 0; i < WeaponCooldown; i++ {
		s.Step()
	}
	if !s.CanFire() {
		t.Errorf("weapon should be ready after %d ticks", WeaponCooldown)
	}

	s.Energy = WeaponEnergyCost - 1
	if s.CanFire() {
		t.Error("should not fire without energy")
	}
}

func TestFireBulletVelocity(t *testing.T) {
	s := NewShip(1)
	s.Vel = Vec2{1, 2}
	s.Direction = math.Pi / 2 // facing right

	b := s.FireBullet(7)
	if b.ID != 7 || b.Pos != s.Pos {
		t.Errorf("bullet should leave from the ship, got %+v", b.Body)
	}
	if math.Abs(b.Vel.X-(1+BulletSpeed)) > 1e-9 || math.Abs(b.Vel.Y-2) > 1e-9 {
		t.Errorf("expected velocity (%f,2), got %+v", 1+BulletSpeed, b.Vel)
	}
}

func TestSpectatorDoesNotMove(t *testing.T) {
	s := NewShip(1)
	s.Spectator = true
	s.Vel = Vec2{5, 5}
	s.Accelerate = true
	s.Step()
	if s.Pos != (Vec2{WorldWidth / 2, WorldHeight / 2}) {
		t.Errorf("spectator moved to %+v", s.Pos)
	}
}

func TestDecreaseHealth(t *testing.T) {
	s := NewShip(1)
	s.DecreaseHealth(50)
	if s.Health != 50 || s.IsDestroyed() {
		t.Errorf("expected health 50 and alive, got %f destroyed=%v", s.Health, s.IsDestroyed())
	}
	s.DecreaseHealth(50)
	if !s.IsDestroyed() {
		t.Error("ship should be destroyed at zero health")
	}
}

func TestApplyHit(t *testing.T) {
	s := NewShip(1)
	ApplyHit(s, 10)
	if s.Health != 90 {
		t.Errorf("expected health 90, got %f", s.Health)
	}
	ApplyHit(s, 0)
	if !s.IsDestroyed() {
		t.Error("zero damage means an outright kill")
	}
}

func TestSpectatorCopy(t *testing.T) {
	s := NewShip(9)
	s.Username = "ace"
	s.Color = ColorGreen
	s.Score = 4
	s.CoopScore = 11
	s.Destroy()

	c := s.spectatorCopy()
	if c.IsDestroyed() || !c.Spectator {
		t.Errorf("copy should be a live spectator, got destroyed=%v spectator=%v", c.IsDestroyed(), c.Spectator)
	}
	if c.ID != 9 || c.Username != "ace" || c.Color != ColorGreen || c.Score != 4 || c.CoopScore != 11 {
		t.Errorf("copy lost identity or scores: %+v", c)
	}
	if c.Mode != ModeSpectate {
		t.Errorf("expected spectate mode, got %s", c.Mode)
	}
}

func TestSetColorIndex(t *testing.T) {
	s := NewShip(1)
	for i := 1; i <= 4; i++ {
		if !s.SetColorIndex(i) || int(s.Color) != i {
			t.Errorf("color %d should be accepted", i)
		}
	}
	if s.SetColorIndex(0) || s.SetColorIndex(5) {
		t.Error("colors outside 1..4 should be rejected")
	}
}

func TestShipStateRoundTrip(t *testing.T) {
	s := NewShip(3)
	s.Username = "pilot"
	s.Health = 40
	s.Score = 2
	s.Destroy()
	r := shipFromState(s.ToState())
	if r.ID != 3 || r.Username != "pilot" || r.Health != 40 || r.Score != 2 {
		t.Errorf("state mismatch: %+v", r)
	}
	if !r.IsDestroyed() {
		t.Error("destroyed flag should survive the wire")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("  bob  "); got != "bob" {
		t.Errorf("expected bob, got %q", got)
	}
	long := strings.Repeat("é", 30)
	if got := sanitizeName(long); len([]rune(got)) != maxNameLen {
		t.Errorf("expected %d runes, got %d", maxNameLen, len([]rune(got)))
	}
}
