package main

import (
	"fmt"
	"strings"
)

// GameMode defines the type of session
type GameMode uint8

const (
	ModeSolo       GameMode = 0
	ModeCoop       GameMode = 1
	ModeDeathmatch GameMode = 2
	ModeSpectate   GameMode = 3
)

func (m GameMode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeCoop:
		return "coop"
	case ModeDeathmatch:
		return "deathmatch"
	case ModeSpectate:
		return "spectate"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode parses a mode name as accepted on the command line
func ParseMode(s string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solo", "single", "singleplayer":
		return ModeSolo, nil
	case "coop", "co-op":
		return ModeCoop, nil
	case "deathmatch", "dm":
		return ModeDeathmatch, nil
	case "spectate", "spectator":
		return ModeSpectate, nil
	}
	return 0, fmt.Errorf("unknown game mode %q", s)
}

// SpawnAuthority says who may create new asteroids
type SpawnAuthority uint8

const (
	SpawnNever SpawnAuthority = iota
	SpawnHostOnly
	SpawnAlways
)

// ModePolicy holds the collision and scoring rules of a mode.
// A damage of 0 means the hit destroys the ship outright.
type ModePolicy struct {
	Frozen             bool // no physics at all for this participant
	BulletHitsAsteroid bool
	BulletHitsShip     bool
	BulletDamage       float64
	AsteroidHitsShip   bool
	ShipHitsShip       bool
	ContactDamage      float64
	Spawn              SpawnAuthority
	ScoreKills         bool
	SharedScore        bool
}

const (
	ScorePerSpawnStep    = 5 // score points per +1 on the asteroid limit
	DefaultAsteroidLimit = 7
)

var modePolicies = map[GameMode]ModePolicy{
	ModeSolo: {
		BulletHitsAsteroid: true,
		BulletHitsShip:     true,
		AsteroidHitsShip:   true,
		Spawn:              SpawnAlways,
		ScoreKills:         true,
	},
	ModeCoop: {
		BulletHitsAsteroid: true,
		AsteroidHitsShip:   true,
		Spawn:              SpawnHostOnly,
		ScoreKills:         true,
		SharedScore:        true,
	},
	ModeDeathmatch: {
		BulletHitsShip: true,
		BulletDamage:   10,
		ShipHitsShip:   true,
		ContactDamage:  50,
		Spawn:          SpawnNever,
	},
	ModeSpectate: {
		Frozen: true,
	},
}

// PolicyFor returns the rules of a mode. Unknown modes are frozen.
func PolicyFor(m GameMode) ModePolicy {
	p, ok := modePolicies[m]
	if !ok {
		return ModePolicy{Frozen: true}
	}
	return p
}

// CanSpawn reports whether this participant may create asteroids
func (p ModePolicy) CanSpawn(isHost bool) bool {
	switch p.Spawn {
	case SpawnAlways:
		return true
	case SpawnHostOnly:
		return isHost
	}
	return false
}
