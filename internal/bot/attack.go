package bot

import (
	"math"
	"slices"

	"github.com/freeeve/galcon/pkg/galcon"
)

// attack sends attack power at the current target once the attack pool can
// cover (defense+1)×(1+extra). Planets nearest the target give their full
// attack power; the last one gives only what is still missing, rounded up to
// whole units. The pool is debited by the power of the units actually sent.
func (p *Planner) attack(w *galcon.World) []galcon.Action {
	tgt := w.Planet(p.target)
	if tgt == nil || tgt.Owner == p.player {
		return nil
	}
	extra := p.settings.AttackExtraEnemy
	if tgt.Owner == galcon.Neutral {
		extra = p.settings.AttackExtraNeutral
	}
	required := (tgt.DefensePower(w.Units) + 1) * (1 + extra)
	if p.attackPool < required {
		return nil
	}

	unused := p.ownedPlanets(w)
	var available float64
	for _, pl := range unused {
		available += pl.AttackPower(w.Units)
	}
	if available < required {
		return nil
	}

	var actions []galcon.Action
	var total float64
	for total < required && len(unused) > 0 {
		i := nearestPlanet(tgt.Pos, unused)
		pl := unused[i]
		unused = slices.Delete(unused, i, i+1)

		potential := pl.AttackPower(w.Units)
		if potential <= 0 {
			continue
		}
		amount, sent := wholeUnitAmount(pl, math.Min(potential, required-total), w.Units)
		if sent <= 0 {
			continue
		}
		actions = append(actions, galcon.TransferAction(pl.ID, tgt.ID, amount, galcon.BasisAttack))
		total += sent
	}

	p.attackPool = math.Max(0, p.attackPool-total)
	p.defensePool += total
	return actions
}

// wholeUnitAmount returns the smallest transfer amount, at least want, whose
// whole-unit realisation carries at least want attack power, together with
// that power.
func wholeUnitAmount(pl *galcon.Planet, want float64, c galcon.Catalog) (amount, power float64) {
	sent := func(a float64) float64 {
		var sum float64
		for t, n := range pl.TransferCounts(a, galcon.BasisAttack, c) {
			sum += float64(n) * c[t].Attack
		}
		return sum
	}
	if got := sent(want); got >= want-powerTolerance {
		return want, got
	}
	lo, hi := want, pl.AttackPower(c)
	for range 64 {
		mid := (lo + hi) / 2
		if sent(mid) >= want-powerTolerance {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, sent(hi)
}

func nearestPlanet(from galcon.Vec2, planets []*galcon.Planet) int {
	best, bestDist := 0, math.Inf(1)
	for i, pl := range planets {
		if d := from.Dist(pl.Pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
