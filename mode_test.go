package main

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want GameMode
	}{
		{"solo", ModeSolo},
		{"COOP", ModeCoop},
		{" dm ", ModeDeathmatch},
		{"deathmatch", ModeDeathmatch},
		{"spectator", ModeSpectate},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
	if _, err := ParseMode("battle royale"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestModePolicies(t *testing.T) {
	solo := PolicyFor(ModeSolo)
	if !solo.BulletHitsAsteroid || !solo.BulletHitsShip || !solo.AsteroidHitsShip || solo.ShipHitsShip {
		t.Errorf("unexpected solo collision rules: %+v", solo)
	}

	coop := PolicyFor(ModeCoop)
	if coop.BulletHitsShip {
		t.Error("coop bullets must not hit ships")
	}
	if !coop.SharedScore || !coop.ScoreKills {
		t.Error("coop shares a kill score")
	}

	dm := PolicyFor(ModeDeathmatch)
	if dm.BulletHitsAsteroid || dm.AsteroidHitsShip {
		t.Error("deathmatch ignores asteroids")
	}
	if dm.BulletDamage != 10 || dm.ContactDamage != 50 {
		t.Errorf("expected damage 10/50, got %f/%f", dm.BulletDamage, dm.ContactDamage)
	}

	if !PolicyFor(ModeSpectate).Frozen {
		t.Error("spectate mode is frozen")
	}
	if !PolicyFor(GameMode(99)).Frozen {
		t.Error("unknown modes are frozen")
	}
}

func TestCanSpawn(t *testing.T) {
	tests := []struct {
		mode   GameMode
		isHost bool
		want   bool
	}{
		{ModeSolo, false, true},
		{ModeCoop, true, true},
		{ModeCoop, false, false},
		{ModeDeathmatch, true, false},
		{ModeSpectate, false, false},
	}
	for _, tt := range tests {
		if got := PolicyFor(tt.mode).CanSpawn(tt.isHost); got != tt.want {
			t.Errorf("%s host=%v: expected %v, got %v", tt.mode, tt.isHost, tt.want, got)
		}
	}
}
