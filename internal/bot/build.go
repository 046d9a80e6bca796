package bot

import (
	"github.com/freeeve/galcon/pkg/galcon"
)

// inherentRate is a planet's base production in attack+defense power per second.
func inherentRate(w *galcon.World, pl *galcon.Planet) float64 {
	var r float64
	for t, rate := range pl.Rates {
		if t < len(w.Units) {
			r += rate * (w.Units[t].Attack + w.Units[t].Defense) * pl.Size
		}
	}
	return r
}

// buildingRate is the power per second added by a planet's finished producers.
func buildingRate(w *galcon.World, pl *galcon.Planet) float64 {
	var r float64
	for slot, b := range pl.Slots {
		if !pl.Complete(slot) || b.Def >= len(w.Buildings) {
			continue
		}
		e, ok := w.Buildings[b.Def].Effect.(galcon.ProduceEffect)
		if !ok || !w.Units.Has(e.UnitType) {
			continue
		}
		u := w.Units[e.UnitType]
		r += (u.Attack + u.Defense) / e.Interval.Seconds()
	}
	return r
}

// build spends up to MaximumBuildingFraction of total production on
// construction. Base production stops while a planet builds, so each
// construction commits that planet's inherent rate. Planets with the largest
// rate that still fits under the cap go first; the building is picked at
// random from the planet type's allowed list.
func (p *Planner) build(w *galcon.World) []galcon.Action {
	owned := p.ownedPlanets(w)
	var total, committed float64
	for _, pl := range owned {
		r := inherentRate(w, pl)
		total += r + buildingRate(w, pl)
		if pl.Constructing() {
			committed += r
		}
	}
	budget := total * p.settings.MaximumBuildingFraction

	var eligible []*galcon.Planet
	for _, pl := range owned {
		if pl.CanBuild() &&
			pl.DefensePower(w.Units) >= p.settings.MinimumDefenseForBuilding &&
			len(w.AllowedBuildings(pl)) > 0 {
			eligible = append(eligible, pl)
		}
	}

	var actions []galcon.Action
	chosen := make(map[galcon.PlanetID]bool)
	for {
		var best *galcon.Planet
		bestRate := -1.0
		for _, pl := range eligible {
			if chosen[pl.ID] {
				continue
			}
			r := inherentRate(w, pl)
			if committed+r > budget {
				continue
			}
			if r > bestRate {
				best, bestRate = pl, r
			}
		}
		if best == nil {
			return actions
		}
		chosen[best.ID] = true
		committed += bestRate
		allowed := w.AllowedBuildings(best)
		actions = append(actions, galcon.BuildAction(best.ID, p.rng.Intn(len(allowed))))
	}
}
