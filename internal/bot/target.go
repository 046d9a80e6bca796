package bot

import (
	"math"

	"github.com/freeeve/galcon/pkg/galcon"
)

type targetCandidate struct {
	planet *galcon.Planet
	dist   float64
	weight float64
}

// computeTarget scores every planet the player does not own and returns the
// cheapest to take, or 0 when there is none. The score favours small, close
// and weakly held planets:
//
//	(projected + ε) / size × (weight / maxWeight) × size
//
// where weight is the distance to the nearest owned planet raised to
// DistancePower, and projected is the defense expected on arrival.
func (p *Planner) computeTarget(w *galcon.World) galcon.PlanetID {
	owned := p.ownedPlanets(w)
	if len(owned) == 0 {
		return 0
	}

	var cands []targetCandidate
	maxWeight := 0.0
	for _, pl := range w.Planets() {
		if pl.Owner == p.player || pl.Size <= 0 {
			continue
		}
		d := math.Inf(1)
		for _, o := range owned {
			d = math.Min(d, o.Pos.Dist(pl.Pos))
		}
		weight := math.Pow(d, p.settings.DistancePower)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			continue
		}
		maxWeight = math.Max(maxWeight, weight)
		cands = append(cands, targetCandidate{planet: pl, dist: d, weight: weight})
	}
	if len(cands) == 0 {
		return 0
	}

	speed := nominalSpeed(w)
	best := galcon.PlanetID(0)
	bestScore := math.Inf(1)
	for _, c := range cands {
		projected := projectedDefense(w, c.planet)
		projected += c.dist / speed * c.planet.Size

		ratio := 1.0
		if maxWeight > 0 {
			ratio = c.weight / maxWeight
		}
		score := (projected + targetEpsilon) / c.planet.Size * ratio * c.planet.Size
		if score < bestScore {
			best, bestScore = c.planet.ID, score
		}
	}
	return best
}

// projectedDefense is the target's defense once the fleets already headed
// there land. A target whose attackers would overwhelm it counts the
// overflow as defense: the heuristic treats the winning attacker as the
// new holder to beat.
func projectedDefense(w *galcon.World, pl *galcon.Planet) float64 {
	return math.Abs(effectiveDefense(w, pl))
}
