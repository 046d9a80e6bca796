package bot

import (
	"math"
	"slices"

	"github.com/freeeve/galcon/pkg/galcon"
)

// NotifyConstruction credits newly produced power, split between the pools
// by AttackFraction.
func (p *Planner) NotifyConstruction(attack, defense float64) {
	p.attackPool += attack * p.settings.AttackFraction
	p.defensePool += defense * (1 - p.settings.AttackFraction)
}

// NotifyDefendLoss removes lost garrison power from both pools in
// AttackFraction proportion.
func (p *Planner) NotifyDefendLoss(attack float64) {
	p.attackPool = math.Max(0, p.attackPool-attack*p.settings.AttackFraction)
	p.defensePool = math.Max(0, p.defensePool-attack*(1-p.settings.AttackFraction))
}

// NotifyAttackLoss removes power lost in a failed or costly attack. Attacking
// fleets were moved to the defense pool when launched.
func (p *Planner) NotifyAttackLoss(attack float64) {
	p.defensePool = math.Max(0, p.defensePool-attack)
}

// NotifyFleetDamage removes power lost by a fleet in flight.
func (p *Planner) NotifyFleetDamage(attack float64) {
	p.defensePool = math.Max(0, p.defensePool-attack)
}

// NotifyPlanetGain adds a planet to the owned set.
func (p *Planner) NotifyPlanetGain(id galcon.PlanetID) {
	if p.ownedSet[id] {
		return
	}
	p.ownedSet[id] = true
	p.owned = append(p.owned, id)
}

// NotifyPlanetLoss removes a planet from the owned set.
func (p *Planner) NotifyPlanetLoss(id galcon.PlanetID) {
	if !p.ownedSet[id] {
		return
	}
	delete(p.ownedSet, id)
	p.owned = slices.DeleteFunc(p.owned, func(o galcon.PlanetID) bool { return o == id })
	if p.target == id {
		p.target = 0
	}
}

// Observe translates a world event into notifications for this planner.
func (p *Planner) Observe(ev galcon.Event, c galcon.Catalog) {
	switch ev.Type {
	case galcon.EventUnitsProduced:
		if ev.Player == p.player {
			p.NotifyConstruction(c.Weigh(ev.Units))
		}
	case galcon.EventPlanetCaptured:
		switch p.player {
		case ev.Player:
			p.NotifyPlanetGain(ev.Planet)
			p.NotifyAttackLoss(attackOf(c, ev.AttackerLosses))
		case ev.Opponent:
			p.NotifyPlanetLoss(ev.Planet)
			p.NotifyDefendLoss(attackOf(c, ev.DefenderLosses))
		}
	case galcon.EventAttackRepelled:
		switch p.player {
		case ev.Player:
			p.NotifyAttackLoss(attackOf(c, ev.AttackerLosses))
		case ev.Opponent:
			p.NotifyDefendLoss(attackOf(c, ev.DefenderLosses))
		}
	case galcon.EventFleetDamaged, galcon.EventFleetDestroyed:
		if ev.Player == p.player && c.Has(ev.UnitType) {
			p.NotifyFleetDamage(float64(ev.Killed) * c[ev.UnitType].Attack)
		}
	}
}

func attackOf(c galcon.Catalog, b galcon.Bundle) float64 {
	a, _ := c.Weigh(b)
	return a
}
