package main

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	ShipRadius        = 15.0
	ShipGraceTicks    = 10
	ShipMaxSpeed      = 20.0
	ShipDampening     = 0.99 // velocity multiplier per tick
	ShipAccel         = 0.4  // per tick along the facing direction
	ShipTurnPerTick   = 0.04 * math.Pi
	ShipMaxHealth     = 100.0
	WeaponCooldown    = 5 // ticks between shots
	WeaponEnergyCost  = 10.0
	AccelEnergyCost   = 5.0
	TurnEnergyCost    = 3.0
	EnergyCapacity    = 256.0
	EnergyRegenerated = 3.0 // per tick
	maxNameLen        = 16
)

// ShipColor is one of the four hull colors a player can pick
type ShipColor uint8

const (
	ColorNone ShipColor = iota
	ColorRed
	ColorGreen
	ColorMagenta
	ColorCyan
)

func (c ShipColor) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorMagenta:
		return "magenta"
	case ColorCyan:
		return "cyan"
	}
	return "white"
}

// Controls are the input flags written by the input collaborator
type Controls struct {
	Accelerate bool
	TurnLeft   bool
	TurnRight  bool
	Fire       bool
}

// Ship is a player's spaceship. It slows down on its own and runs on an
// energy budget that recharges every tick; turning, thrust and the weapon
// all draw from it.
type Ship struct {
	Body
	Direction      float64 // radians, 0 faces up
	Energy         float64
	Health         float64
	Score          int
	CoopScore      int
	Username       string
	Color          ShipColor
	Spectator      bool
	Mode           GameMode
	WeaponCooldown int
	Controls
}

// NewShip creates a ship in its starting state
func NewShip(id int) *Ship {
	s := &Ship{}
	s.ID = id
	s.R = ShipRadius
	s.Reset()
	return s
}

// Reset puts the ship back in the middle of the arena, facing up, at rest
func (s *Ship) Reset() {
	s.Pos = Vec2{WorldWidth / 2, WorldHeight / 2}
	s.Vel = Vec2{}
	s.Grace = ShipGraceTicks
	s.destroyed = false
	s.Direction = 0
	s.Controls = Controls{}
	s.WeaponCooldown = 0
	s.Score = 0
	s.CoopScore = 0
	s.Energy = EnergyCapacity
	s.Health = ShipMaxHealth
	s.Spectator = false
}

// Step advances the ship one tick. Spectators do not move.
func (s *Ship) Step() {
	if s.Spectator {
		return
	}
	s.Body.Step()
	s.turn()
	s.accelerate()
	s.Vel.X *= ShipDampening
	s.Vel.Y *= ShipDampening
	if s.WeaponCooldown > 0 {
		s.WeaponCooldown--
	}
	s.Energy = math.Min(s.Energy+EnergyRegenerated, EnergyCapacity)
}

func (s *Ship) turn() {
	if s.Energy < TurnEnergyCost {
		return
	}
	turned := false
	if s.TurnLeft {
		s.Direction -= ShipTurnPerTick
		turned = true
	}
	if s.TurnRight {
		s.Direction += ShipTurnPerTick
		turned = true
	}
	if turned {
		s.Energy -= TurnEnergyCost
	}
}

func (s *Ship) accelerate() {
	if !s.Accelerate || s.Energy < AccelEnergyCost || s.Speed() >= ShipMaxSpeed {
		return
	}
	// screen y grows downwards
	s.Vel.X += math.Sin(s.Direction) * ShipAccel
	s.Vel.Y -= math.Cos(s.Direction) * ShipAccel
	s.Energy -= AccelEnergyCost
}

// CanFire returns true if the fire flag is set, the weapon is cool and there
// is energy for a shot
func (s *Ship) CanFire() bool {
	return s.Fire && s.WeaponCooldown == 0 && s.Energy >= WeaponEnergyCost
}

// MarkFired starts the weapon cooldown and pays for the shot
func (s *Ship) MarkFired() {
	s.WeaponCooldown = WeaponCooldown
	s.Energy -= WeaponEnergyCost
}

// FireBullet creates a bullet leaving the ship along its facing
func (s *Ship) FireBullet(id int) *Bullet {
	vel := Vec2{
		X: s.Vel.X + math.Sin(s.Direction)*BulletSpeed,
		Y: s.Vel.Y - math.Cos(s.Direction)*BulletSpeed,
	}
	return NewBullet(id, s.Pos, vel)
}

// DecreaseHealth applies deathmatch damage and destroys the ship at zero
func (s *Ship) DecreaseHealth(dmg float64) {
	s.Health -= dmg
	if s.Health <= 0 {
		s.Health = 0
		s.Destroy()
	}
}

// EnergyPercent returns stored energy as a percentage of capacity
func (s *Ship) EnergyPercent() float64 {
	return 100 * s.Energy / EnergyCapacity
}

// spectatorCopy returns a live spectator carrying this ship's identity,
// name, color and scores
func (s *Ship) spectatorCopy() *Ship {
	c := NewShip(s.ID)
	c.Pos = s.Pos
	c.Username = s.Username
	c.Color = s.Color
	c.Score = s.Score
	c.CoopScore = s.CoopScore
	c.Mode = ModeSpectate
	c.Spectator = true
	return c
}

// SetColorIndex selects one of the four hull colors (1..4)
func (s *Ship) SetColorIndex(i int) bool {
	if i < int(ColorRed) || i > int(ColorCyan) {
		return false
	}
	s.Color = ShipColor(i)
	return true
}

// ToState converts to protocol state
func (s *Ship) ToState() ShipState {
	return ShipState{
		ID:        s.ID,
		Pos:       s.Pos,
		Vel:       s.Vel,
		Direction: s.Direction,
		Health:    s.Health,
		Score:     s.Score,
		CoopScore: s.CoopScore,
		Username:  s.Username,
		Color:     s.Color,
		Spectator: s.Spectator,
		Mode:      s.Mode,
		Destroyed: s.destroyed,
		Grace:     s.Grace,
	}
}

// shipFromState materializes a ship received over the network
func shipFromState(st ShipState) *Ship {
	s := NewShip(st.ID)
	s.Pos = st.Pos
	s.Vel = st.Vel
	s.Direction = st.Direction
	s.Health = st.Health
	s.Score = st.Score
	s.CoopScore = st.CoopScore
	s.Username = sanitizeName(st.Username)
	s.Color = st.Color
	s.Spectator = st.Spectator
	s.Mode = st.Mode
	s.Grace = st.Grace
	if st.Destroyed {
		s.Destroy()
	}
	return s
}

// sanitizeName trims a username and caps it at maxNameLen runes
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	return string([]rune(name)[:maxNameLen])
}
