package main

// ApplyHit applies a hit to a ship under the given damage rule. A damage of
// 0 destroys the ship outright; otherwise health drops and the ship is
// destroyed once health reaches zero.
func ApplyHit(s *Ship, damage float64) {
	if damage <= 0 {
		s.Destroy()
		return
	}
	s.DecreaseHealth(damage)
}
