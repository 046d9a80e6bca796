package galcon

import (
	"math"
	"time"
)

// Angular tolerances for interception. The target must be roughly along its
// own line of travel as seen from the attacker, and the attacker must be
// facing it.
const (
	TrailTolerance  = math.Pi / 3
	FacingTolerance = math.Pi / 4
)

// InterceptResult is the outcome of one fleet trying to fire on another.
type InterceptResult int

const (
	InterceptNoEffect InterceptResult = iota
	InterceptOnCooldown
	InterceptDamaged
	InterceptDestroyed
)

func (r InterceptResult) String() string {
	switch r {
	case InterceptOnCooldown:
		return "on_cooldown"
	case InterceptDamaged:
		return "damaged"
	case InterceptDestroyed:
		return "destroyed"
	default:
		return "no_effect"
	}
}

// AttemptIntercept lets att fire on tgt at time now. Damage is
// InterceptDamage per attacking unit, applied through ApplyDamage.
func AttemptIntercept(att, tgt *Fleet, c Catalog, now time.Duration) (InterceptResult, DamageResult) {
	none := DamageResult{Remaining: tgt.Count, Carry: tgt.Damage, Survived: tgt.Count > 0}
	if att.Owner == tgt.Owner || !att.Alive() || !tgt.Alive() || !c.Has(att.Type) {
		return InterceptNoEffect, none
	}
	u := c[att.Type]
	if u.InterceptRange <= 0 || u.InterceptDamage <= 0 {
		return InterceptNoEffect, none
	}

	rel := tgt.Pos.Sub(att.Pos)
	if rel.Len() > u.InterceptRange {
		return InterceptNoEffect, none
	}
	trail, ok := AngleBetween(rel, tgt.Vel)
	if !ok || trail > TrailTolerance {
		return InterceptNoEffect, none
	}
	facing, ok := AngleBetween(rel, att.Vel)
	if !ok || facing > FacingTolerance {
		return InterceptNoEffect, none
	}

	if att.HasFired && now-att.LastIntercept < u.InterceptCooldown {
		return InterceptOnCooldown, none
	}
	att.LastIntercept = now
	att.HasFired = true

	r := tgt.TakeHit(u.InterceptDamage*float64(att.Count), c)
	if !r.Survived {
		return InterceptDestroyed, r
	}
	return InterceptDamaged, r
}
