package main

const (
	BulletLifetime   = 45 // ticks
	BulletGraceTicks = 3
	BulletSpeed      = 15.0 // added to the ship's velocity along its facing
)

// Bullet is a point projectile with a fixed lifetime
type Bullet struct {
	Body
	TicksLeft int
}

// NewBullet creates a bullet with the default lifetime
func NewBullet(id int, pos, vel Vec2) *Bullet {
	return &Bullet{
		Body:      newBody(id, pos, vel, 0, BulletGraceTicks),
		TicksLeft: BulletLifetime,
	}
}

// Step moves the bullet and expires it when its lifetime runs out
func (b *Bullet) Step() {
	b.Body.Step()
	b.TicksLeft--
	if b.TicksLeft <= 0 {
		b.Destroy()
	}
}

// ToState converts to protocol state
func (b *Bullet) ToState() BulletState {
	return BulletState{
		ID:        b.ID,
		Pos:       b.Pos,
		Vel:       b.Vel,
		TicksLeft: b.TicksLeft,
		Grace:     b.Grace,
	}
}

func bulletFromState(s BulletState) *Bullet {
	b := NewBullet(s.ID, s.Pos, s.Vel)
	if s.TicksLeft > 0 {
		b.TicksLeft = s.TicksLeft
	}
	b.Grace = s.Grace
	return b
}

// mergeBullet overwrites the motion of the bullet sharing in's identity, or
// appends in as a new bullet
func mergeBullet(bullets []*Bullet, in BulletState) []*Bullet {
	found := false
	for _, b := range bullets {
		if b.ID == in.ID {
			b.SetMotion(in.Pos, in.Vel)
			found = true
		}
	}
	if found {
		return bullets
	}
	return append(bullets, bulletFromState(in))
}
