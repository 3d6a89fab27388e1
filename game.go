package main

import (
	"context"
	"math"
	"net"
	"sync"
	"time"
)

const (
	TickRate         = 30 // physics ticks per second
	TickDuration     = time.Second / TickRate
	DisplayRate      = 120 // redraw notifications per second
	SpawnEvery       = 200 // ticks between asteroid spawn attempts
	SpawnMinDistance = 50.0
	SpawnMaxSpeed    = 3.0
)

// UpdateListener is asked to redraw. sinceTick is the time elapsed since the
// last physics tick, for interpolation.
type UpdateListener func(sinceTick time.Duration)

// Game holds the canonical state of one session. A single mutex guards
// everything; the tick, send and receive tasks all take it.
type Game struct {
	mu          sync.Mutex
	mode        GameMode
	policy      ModePolicy
	ship        *Ship
	remoteShips map[int]*Ship
	asteroids   []*Asteroid
	bullets     []*Bullet
	isHost      bool
	multiplayer bool
	running     bool
	spawnLimit  int
	tick        uint64
	lastTick    time.Time
	rng         Rand
	kessler     bool
	tickEvery   time.Duration

	peers     []net.Addr // host only: where snapshots go
	outgoing  []*Bullet  // client only: fired since the last ClientInput
	nameSet   bool
	deathSeen bool

	updateListeners []UpdateListener
	deathListeners  []func()
}

// NewGame creates a game in solo mode. A nil rng uses a clock-seeded source.
func NewGame(rng Rand) *Game {
	if rng == nil {
		rng = NewRand(0)
	}
	g := &Game{
		rng:       rng,
		tickEvery: TickDuration,
	}
	g.ship = NewShip(newIdentity(rng))
	g.Initialize(ModeSolo, false, false)
	return g
}

// Initialize resets the game to a fresh session in the given mode
func (g *Game) Initialize(mode GameMode, isHost, multiplayer bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mode = mode
	g.policy = PolicyFor(mode)
	g.isHost = isHost
	g.multiplayer = multiplayer
	g.asteroids = nil
	g.bullets = nil
	g.remoteShips = make(map[int]*Ship)
	g.peers = nil
	g.outgoing = nil
	g.spawnLimit = DefaultAsteroidLimit
	g.tick = 0
	g.nameSet = false
	g.deathSeen = false

	if g.ship.Spectator || g.ship.IsDestroyed() {
		name, color := g.ship.Username, g.ship.Color
		g.ship = NewShip(g.ship.ID)
		g.ship.Username, g.ship.Color = name, color
	}
	g.ship.Reset()
	g.ship.Mode = mode
	g.ship.Spectator = mode == ModeSpectate
}

// SetKessler enables asteroid-asteroid collisions
func (g *Game) SetKessler(on bool) {
	g.mu.Lock()
	g.kessler = on
	g.mu.Unlock()
}

// SetTickDuration overrides the physics period. Used by tests.
func (g *Game) SetTickDuration(d time.Duration) {
	g.mu.Lock()
	g.tickEvery = d
	g.mu.Unlock()
}

// Start marks the game as running
func (g *Game) Start() {
	g.mu.Lock()
	g.running = true
	g.lastTick = time.Now()
	g.mu.Unlock()
}

// Stop clears the running flag; Run observes it on its next tick
func (g *Game) Stop() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}

// IsRunning reports whether the session is live
func (g *Game) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// AddUpdateListener registers a redraw callback
func (g *Game) AddUpdateListener(l UpdateListener) {
	g.mu.Lock()
	g.updateListeners = append(g.updateListeners, l)
	g.mu.Unlock()
}

// AddDeathListener registers a callback fired once when the local ship is
// destroyed. It runs on the tick goroutine without the lock held.
func (g *Game) AddDeathListener(fn func()) {
	g.mu.Lock()
	g.deathListeners = append(g.deathListeners, fn)
	g.mu.Unlock()
}

// Run drives the physics at the fixed tick rate and the redraw
// notifications at DisplayRate until ctx is cancelled or the game stops.
// Solo games stop themselves when the local ship is destroyed.
func (g *Game) Run(ctx context.Context) {
	g.mu.Lock()
	every := g.tickEvery
	g.mu.Unlock()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	display := time.NewTicker(time.Second / DisplayRate)
	defer display.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !g.IsRunning() {
				return
			}
			died, mode := g.tickAndCheck()
			if died {
				g.fireDeath()
				if mode == ModeSolo {
					g.Stop()
					return
				}
			}
		case <-display.C:
			g.notifyUpdate()
		}
	}
}

// Tick advances the simulation by one fixed step
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.update()
}

// tickAndCheck runs one tick and reports whether the local ship died in it
func (g *Game) tickAndCheck() (bool, GameMode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.update()
	g.lastTick = time.Now()
	if g.gameOver() && !g.deathSeen {
		g.deathSeen = true
		return true, g.mode
	}
	return false, g.mode
}

func (g *Game) fireDeath() {
	g.mu.Lock()
	ls := append([]func(){}, g.deathListeners...)
	g.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

func (g *Game) notifyUpdate() {
	g.mu.Lock()
	ls := append([]UpdateListener{}, g.updateListeners...)
	since := time.Since(g.lastTick)
	g.mu.Unlock()
	for _, l := range ls {
		l(since)
	}
}

// update runs one tick. Caller holds g.mu.
func (g *Game) update() {
	if g.policy.Frozen {
		return
	}

	for _, a := range g.asteroids {
		a.Step()
	}
	for _, b := range g.bullets {
		b.Step()
	}
	active := g.shipActive()
	if active {
		g.ship.Step()
		if g.ship.CanFire() {
			b := g.ship.FireBullet(newIdentity(g.rng))
			g.bullets = append(g.bullets, b)
			if g.multiplayer && !g.isHost {
				g.outgoing = append(g.outgoing, b)
			}
			g.ship.MarkFired()
		}
	}

	g.checkCollisions(active)

	var fragments []*Asteroid
	for _, a := range g.asteroids {
		if !a.IsDestroyed() {
			continue
		}
		fragments = append(fragments, a.Successors(g.rng)...)
		if g.policy.ScoreKills {
			g.increaseScore()
		}
	}
	g.removeDestroyed()
	g.asteroids = append(g.asteroids, fragments...)

	if g.tick%SpawnEvery == 0 && len(g.asteroids) < g.spawnLimit && g.policy.CanSpawn(g.isHost) {
		g.asteroids = append(g.asteroids, g.randomAsteroid())
	}
	g.tick++
}

// shipActive reports whether the local ship takes part in physics
func (g *Game) shipActive() bool {
	return !g.ship.Spectator && !g.ship.IsDestroyed()
}

func (g *Game) checkCollisions(shipActive bool) {
	p := g.policy
	local := []*Ship{g.ship}
	if !shipActive {
		local = nil
	}

	if p.BulletHitsAsteroid {
		collidePairs(g.bullets, g.asteroids, func(b *Bullet, a *Asteroid) {
			a.Destroy()
			b.Destroy()
		})
	}
	if p.BulletHitsShip {
		collidePairs(g.bullets, local, func(b *Bullet, s *Ship) {
			b.Destroy()
			ApplyHit(s, p.BulletDamage)
		})
	}
	if p.AsteroidHitsShip {
		collidePairs(g.asteroids, local, func(a *Asteroid, s *Ship) {
			a.Destroy()
			s.Destroy()
		})
	}
	if g.kessler {
		for i, a := range g.asteroids {
			for _, o := range g.asteroids[i+1:] {
				if a.Collides(o) {
					a.Destroy()
					o.Destroy()
				}
			}
		}
	}
	if p.ShipHitsShip && shipActive {
		for _, r := range g.remoteShips {
			if !r.Spectator && !r.IsDestroyed() && r.Collides(g.ship) {
				ApplyHit(g.ship, p.ContactDamage)
			}
		}
	}
}

func (g *Game) increaseScore() {
	g.ship.Score++
	if g.ship.Score%ScorePerSpawnStep == 0 {
		g.spawnLimit++
	}
}

func (g *Game) removeDestroyed() {
	g.asteroids = purgeDestroyed(g.asteroids)
	g.bullets = purgeDestroyed(g.bullets)
	g.outgoing = purgeDestroyed(g.outgoing)
	for id, s := range g.remoteShips {
		if s.IsDestroyed() {
			delete(g.remoteShips, id)
		}
	}
}

func purgeDestroyed[E Entity](list []E) []E {
	n := 0
	for _, e := range list {
		if !e.IsDestroyed() {
			list[n] = e
			n++
		}
	}
	clear(list[n:])
	return list[:n]
}

// randomAsteroid places a new asteroid at least SpawnMinDistance away from
// the local ship
func (g *Game) randomAsteroid() *Asteroid {
	var pos Vec2
	for {
		pos = Vec2{uniform(g.rng, 0, WorldWidth), uniform(g.rng, 0, WorldHeight)}
		if Distance(pos, g.ship.Pos) >= SpawnMinDistance {
			break
		}
	}
	var size AsteroidSize
	switch chance := g.rng.Float64(); {
	case chance < 1.0/3:
		size = AsteroidLarge
	case chance < 2.0/3:
		size = AsteroidMedium
	default:
		size = AsteroidSmall
	}
	vel := Vec2{
		X: uniform(g.rng, -SpawnMaxSpeed, SpawnMaxSpeed),
		Y: uniform(g.rng, -SpawnMaxSpeed, SpawnMaxSpeed),
	}
	return NewAsteroid(newIdentity(g.rng), pos, vel, size)
}

// GameOver reports whether the local ship has been destroyed
func (g *Game) GameOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gameOver()
}

func (g *Game) gameOver() bool {
	return g.ship.IsDestroyed() && !g.ship.Spectator
}

// Spectate swaps a destroyed local ship for a spectator carrying the same
// identity and scores, so the session can continue
func (g *Game) Spectate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ship.Spectator {
		return
	}
	g.ship = g.ship.spectatorCopy()
	g.outgoing = nil
}

// SetControls writes the local ship's input flags
func (g *Game) SetControls(c Controls) {
	g.mu.Lock()
	g.ship.Controls = c
	g.mu.Unlock()
}

// SetUsername names the local ship. It can be set once per session.
func (g *Game) SetUsername(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nameSet {
		return false
	}
	g.ship.Username = sanitizeName(name)
	g.nameSet = true
	return true
}

// SetColor selects the local hull color (1..4)
func (g *Game) SetColor(i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ship.SetColorIndex(i)
}

// Mode returns the active game mode
func (g *Game) Mode() GameMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// FinalScore is the score reported when the session ends
func (g *Game) FinalScore() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.mode {
	case ModeCoop:
		if g.isHost || !g.multiplayer {
			return g.coopScore()
		}
		return g.ship.CoopScore
	case ModeDeathmatch:
		return 0
	}
	return g.ship.Score
}

// Frame is a read-only copy of everything a view needs to draw
type Frame struct {
	Mode       GameMode        `msgpack:"m"`
	Tick       uint64          `msgpack:"tick"`
	Running    bool            `msgpack:"run"`
	GameOver   bool            `msgpack:"over"`
	Ship       ShipState       `msgpack:"ship"`
	Energy     float64         `msgpack:"e"`
	SpawnLimit int             `msgpack:"lim"`
	Ships      []ShipState     `msgpack:"s"`
	Asteroids  []AsteroidState `msgpack:"a"`
	Bullets    []BulletState   `msgpack:"b"`
}

// Frame captures the current state for rendering
func (g *Game) Frame() Frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := Frame{
		Mode:       g.mode,
		Tick:       g.tick,
		Running:    g.running,
		GameOver:   g.gameOver(),
		Ship:       g.ship.ToState(),
		Energy:     math.Round(g.ship.EnergyPercent()),
		SpawnLimit: g.spawnLimit,
		Ships:      make([]ShipState, 0, len(g.remoteShips)),
		Asteroids:  make([]AsteroidState, 0, len(g.asteroids)),
		Bullets:    make([]BulletState, 0, len(g.bullets)),
	}
	for _, s := range g.remoteShips {
		f.Ships = append(f.Ships, s.ToState())
	}
	for _, a := range g.asteroids {
		f.Asteroids = append(f.Asteroids, a.ToState())
	}
	for _, b := range g.bullets {
		f.Bullets = append(f.Bullets, b.ToState())
	}
	return f
}
