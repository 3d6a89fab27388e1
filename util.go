package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Vec2 is a point or velocity in arena coordinates
type Vec2 struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
}

// Add returns v+o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Len returns the length of v
func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Distance returns the distance between two points
func Distance(a, b Vec2) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// wrap maps v into [0, size)
func wrap(v, size float64) float64 {
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	return v
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Rand is the random source the simulation draws from.
// *math/rand.Rand satisfies it; tests substitute fixed sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded source. A zero seed uses the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// uniform returns a value in [min, max)
func uniform(rng Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

// GenerateUUID returns a random UUID v4 string
func GenerateUUID() string {
	return uuid.New().String()
}
