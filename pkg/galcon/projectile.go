package galcon

import "time"

// DefaultProjectileSpeed is the speed of a projectile with multiplier 1.
const DefaultProjectileSpeed = 300.0

// projectileReach is how close a projectile must get to hit its fleet.
const projectileReach = 5.0

// ProjectileID is a stable handle into a World's projectile table.
type ProjectileID int

// Projectile is a shot from a planet building homing on a fleet.
type Projectile struct {
	ID     ProjectileID `json:"id"`
	Owner  PlayerID     `json:"owner"`
	Source PlanetID     `json:"source"`
	Target FleetID      `json:"target"`
	Pos    Vec2         `json:"pos"`
	Speed  float64      `json:"speed"`
	Damage float64      `json:"damage"`
}

// advance moves the projectile toward its target and reports a hit.
func (p *Projectile) advance(dt time.Duration, target Vec2) bool {
	to := target.Sub(p.Pos)
	dist := to.Len()
	step := p.Speed * dt.Seconds()
	if dist <= projectileReach || step >= dist {
		p.Pos = target
		return true
	}
	p.Pos = p.Pos.Add(to.Normalize().Scale(step))
	return false
}
