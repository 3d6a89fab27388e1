package main

const (
	AsteroidGraceTicks = 30

	// SuccessorVelocityJitter bounds the per-axis velocity offset of a
	// fragment relative to its parent.
	SuccessorVelocityJitter = 5.0
)

// AsteroidSize is the size class of an asteroid
type AsteroidSize uint8

const (
	AsteroidSmall AsteroidSize = iota
	AsteroidMedium
	AsteroidLarge
)

// Radius returns the collision radius for the size
func (s AsteroidSize) Radius() float64 {
	switch s {
	case AsteroidLarge:
		return 40
	case AsteroidMedium:
		return 20
	default:
		return 10
	}
}

// Successor returns the size an asteroid breaks into, if any
func (s AsteroidSize) Successor() (AsteroidSize, bool) {
	switch s {
	case AsteroidLarge:
		return AsteroidMedium, true
	case AsteroidMedium:
		return AsteroidSmall, true
	}
	return 0, false
}

func (s AsteroidSize) String() string {
	switch s {
	case AsteroidLarge:
		return "large"
	case AsteroidMedium:
		return "medium"
	default:
		return "small"
	}
}

// Asteroid drifts across the arena and splits when destroyed
type Asteroid struct {
	Body
	Size AsteroidSize
}

// NewAsteroid creates an asteroid with a fresh grace period
func NewAsteroid(id int, pos, vel Vec2, size AsteroidSize) *Asteroid {
	return &Asteroid{
		Body: newBody(id, pos, vel, size.Radius(), AsteroidGraceTicks),
		Size: size,
	}
}

// Successors returns the two fragments of a destroyed asteroid, or nil for
// the smallest size
func (a *Asteroid) Successors(rng Rand) []*Asteroid {
	size, ok := a.Size.Successor()
	if !ok {
		return nil
	}
	out := make([]*Asteroid, 0, 2)
	for i := 0; i < 2; i++ {
		vel := Vec2{
			X: a.Vel.X + uniform(rng, -SuccessorVelocityJitter, SuccessorVelocityJitter),
			Y: a.Vel.Y + uniform(rng, -SuccessorVelocityJitter, SuccessorVelocityJitter),
		}
		out = append(out, NewAsteroid(newIdentity(rng), a.Pos, vel, size))
	}
	return out
}

// ToState converts to protocol state
func (a *Asteroid) ToState() AsteroidState {
	return AsteroidState{
		ID:    a.ID,
		Pos:   a.Pos,
		Vel:   a.Vel,
		Size:  a.Size,
		Grace: a.Grace,
	}
}

// asteroidFromState materializes an asteroid received from the host
func asteroidFromState(s AsteroidState) *Asteroid {
	a := NewAsteroid(s.ID, s.Pos, s.Vel, s.Size)
	a.Grace = s.Grace
	return a
}
