package main

const (
	WorldWidth  = 800.0
	WorldHeight = 800.0

	// IdentitySpace bounds entity identities. Identities are random and may
	// repeat; merge-by-identity treats a repeat as the same entity.
	IdentitySpace = 500
)

// Entity is the capability set shared by asteroids, bullets and ships
type Entity interface {
	Step()
	Collides(other Entity) bool
	Destroy()
	IsDestroyed() bool
	Radius() float64
	Location() Vec2
	Velocity() Vec2
	Identity() int
	graceTicks() int
}

// Body holds the state every entity moves with.
// Pos and Vel are in arena units per tick.
type Body struct {
	ID        int
	Pos       Vec2
	Vel       Vec2
	R         float64
	Grace     int
	destroyed bool
}

func newBody(id int, pos, vel Vec2, radius float64, grace int) Body {
	return Body{ID: id, Pos: pos, Vel: vel, R: radius, Grace: grace}
}

// Step moves the body one tick across the toroidal arena
func (b *Body) Step() {
	b.Pos.X = wrap(WorldWidth+b.Pos.X+b.Vel.X, WorldWidth)
	b.Pos.Y = wrap(WorldHeight+b.Pos.Y+b.Vel.Y, WorldHeight)
	if b.Grace > 0 {
		b.Grace--
	}
}

// Collides reports whether the two circles overlap and neither is immune
func (b *Body) Collides(other Entity) bool {
	if b.Grace > 0 || other.graceTicks() > 0 {
		return false
	}
	return CheckCollision(b.Pos, b.R, other.Location(), other.Radius())
}

// Destroy flags the body for removal. It cannot be undone.
func (b *Body) Destroy() { b.destroyed = true }

func (b *Body) IsDestroyed() bool { return b.destroyed }
func (b *Body) Radius() float64   { return b.R }
func (b *Body) Location() Vec2    { return b.Pos }
func (b *Body) Velocity() Vec2    { return b.Vel }
func (b *Body) Identity() int     { return b.ID }
func (b *Body) graceTicks() int   { return b.Grace }

// SetMotion overwrites location and velocity in place
func (b *Body) SetMotion(pos, vel Vec2) {
	b.Pos = pos
	b.Vel = vel
}

// Speed returns the scalar speed
func (b *Body) Speed() float64 {
	return b.Vel.Len()
}

func newIdentity(rng Rand) int {
	return rng.Intn(IdentitySpace)
}
