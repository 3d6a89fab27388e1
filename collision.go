package main

import "slices"

// CheckCollision checks if two circles overlap.
// Touching circles do not collide.
func CheckCollision(a Vec2, ra float64, b Vec2, rb float64) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	radSum := ra + rb
	return dx*dx+dy*dy < radSum*radSum
}

// collidePairs calls hit for every pair (a, b) that collides.
// Pairs are visited in slice order so results are deterministic.
func collidePairs[A, B Entity](as []A, bs []B, hit func(a A, b B)) {
	if len(as) == 0 || len(bs) == 0 {
		return
	}
	var grid SpatialGrid
	for i, b := range bs {
		grid.InsertCircle(b.Location(), b.Radius(), i)
	}

	var buf []int
	for _, a := range as {
		buf = grid.QueryBuf(a.Location(), a.Radius(), buf[:0])
		slices.Sort(buf)
		for _, i := range slices.Compact(buf) {
			if a.Collides(bs[i]) {
				hit(a, bs[i])
			}
		}
	}
}
