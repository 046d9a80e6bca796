package galcon

import "time"

// DefaultFleetSpeed is used for travel estimates when a unit type has no speed.
const DefaultFleetSpeed = 100.0

// FleetID is a stable handle into a World's fleet table.
type FleetID int

// Fleet is a group of units of a single type in transit between planets.
type Fleet struct {
	ID     FleetID  `json:"id"`
	Owner  PlayerID `json:"owner"`
	Type   int      `json:"type"`
	Count  int      `json:"count"`
	Source PlanetID `json:"source"`
	Dest   PlanetID `json:"dest"`
	Pos    Vec2     `json:"pos"`
	Vel    Vec2     `json:"vel"`
	// Damage is sub-lethal damage carried over to the next hit.
	Damage        float64       `json:"damage"`
	LastIntercept time.Duration `json:"last_intercept"`
	HasFired      bool          `json:"has_fired"`
}

// AttackPower is the fleet's total attack value.
func (f *Fleet) AttackPower(c Catalog) float64 {
	if !c.Has(f.Type) {
		return 0
	}
	return float64(f.Count) * c[f.Type].Attack
}

// DefensePower is the fleet's total defense value.
func (f *Fleet) DefensePower(c Catalog) float64 {
	if !c.Has(f.Type) {
		return 0
	}
	return float64(f.Count) * c[f.Type].Defense
}

// Bundle returns the fleet's units as a bundle over n types.
func (f *Fleet) Bundle(n int) Bundle { return Single(n, f.Type, f.Count) }

// Alive reports whether the fleet still has units.
func (f *Fleet) Alive() bool { return f.Count > 0 }

// TakeHit applies damage against the fleet's per-unit defense, carrying the
// remainder to the next hit.
func (f *Fleet) TakeHit(damage float64, c Catalog) DamageResult {
	if !c.Has(f.Type) {
		return DamageResult{Remaining: f.Count, Carry: f.Damage, Survived: f.Count > 0}
	}
	r := ApplyDamage(f.Count, f.Damage, damage, c[f.Type].Defense)
	f.Count = r.Remaining
	f.Damage = r.Carry
	return r
}

// move steers the fleet toward target at speed and reports whether it is
// within reach radius after moving.
func (f *Fleet) move(dt time.Duration, target Vec2, speed, reach float64) bool {
	to := target.Sub(f.Pos)
	dist := to.Len()
	if dist <= reach {
		return true
	}
	f.Vel = to.Normalize().Scale(speed)
	step := speed * dt.Seconds()
	if step >= dist {
		f.Pos = target
		return true
	}
	f.Pos = f.Pos.Add(f.Vel.Scale(dt.Seconds()))
	return f.Pos.Dist(target) <= reach
}
