package bot

import (
	"math"
	"slices"

	"github.com/freeeve/galcon/pkg/galcon"
)

type defenseEntry struct {
	planet    *galcon.Planet
	effective float64
	desired   float64
	// onPlanet is the defense still on the planet; fleets en route to it
	// count toward effective but cannot be sent.
	onPlanet  float64
}

// rebalance moves defense from planets holding more than their size-weighted
// share to the nearest planets holding less. A planet is in surplus above
// desired×(1+threshold) and in deficit below desired÷(1+threshold).
func (p *Planner) rebalance(w *galcon.World) []galcon.Action {
	owned := p.ownedPlanets(w)
	if len(owned) < 2 {
		return nil
	}

	entries := make([]*defenseEntry, len(owned))
	var total, totalSize float64
	for i, pl := range owned {
		entries[i] = &defenseEntry{planet: pl, effective: effectiveDefense(w, pl), onPlanet: pl.DefensePower(w.Units)}
		total += entries[i].effective
		totalSize += pl.Size
	}
	if total <= 0 || totalSize <= 0 {
		return nil
	}

	tol := 1 + p.settings.SurplusDeficitThreshold
	var surplus, deficit []*defenseEntry
	for _, e := range entries {
		e.desired = e.planet.Size / totalSize * total
		switch {
		case e.effective > e.desired*tol:
			surplus = append(surplus, e)
		case e.effective < e.desired/tol:
			deficit = append(deficit, e)
		}
	}

	var actions []galcon.Action
	for _, s := range surplus {
		for len(deficit) > 0 {
			excess := s.effective - s.desired
			if excess <= 0 || s.onPlanet <= 0 {
				break
			}
			i := nearestEntry(s.planet.Pos, deficit)
			d := deficit[i]
			shortfall := d.desired - d.effective

			amount := min(excess, shortfall, s.onPlanet)
			actions = append(actions, galcon.TransferAction(s.planet.ID, d.planet.ID, amount, galcon.BasisDefense))
			s.effective -= amount
			s.onPlanet -= amount
			d.effective += amount
			if amount < shortfall {
				break
			}
			deficit = slices.Delete(deficit, i, i+1)
		}
	}
	return actions
}

func nearestEntry(from galcon.Vec2, entries []*defenseEntry) int {
	best, bestDist := 0, math.Inf(1)
	for i, e := range entries {
		if d := from.Dist(e.planet.Pos); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
