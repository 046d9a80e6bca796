package galcon

import (
	"fmt"
	"math"
	"sort"
)

// combatEpsilon absorbs floating accumulation when comparing running powers.
const combatEpsilon = 1e-6

// Outcome is the result of an attack on a planet.
type Outcome struct {
	AttackerWon bool
	// Owner is the planet owner after the battle.
	Owner PlayerID
	// Stock is the planet stock after the battle.
	Stock          Bundle
	AttackerLosses Bundle
	DefenderLosses Bundle
}

type combatGroup struct {
	typ   int
	power float64 // per unit
	count float64 // whole units
}

func (g combatGroup) total() float64 { return g.power * g.count }

// Battle is the pure result of pitting attackers against defenders.
type Battle struct {
	AttackerWon bool
	// Survivors per type, in whole units.
	Attackers Bundle
	Defenders Bundle
}

// ResolveBattle fights attackers against defenders. Both sides are matched
// strongest-type-first: the side with more power in the current group pair
// absorbs the other's group and carries the difference into the next pair.
// Groups never reached stay intact. Ties go to the defender.
func ResolveBattle(defenders, attackers Bundle, c Catalog, mult float64) (Battle, error) {
	if err := attackers.Check(len(c)); err != nil {
		return Battle{}, fmt.Errorf("attackers: %w", err)
	}
	if err := defenders.Check(len(c)); err != nil {
		return Battle{}, fmt.Errorf("defenders: %w", err)
	}
	if attackers.WholeTotal() == 0 {
		return Battle{}, ErrEmptyBundle
	}
	if mult <= 0 || !finite(mult) {
		mult = 1
	}

	att := sortedGroups(attackers, c, mult, func(u UnitType) float64 { return u.Attack })
	def := sortedGroups(defenders, c, mult, func(u UnitType) float64 { return u.Defense })
	defStart := sumPower(def, 0)

	a, d := nextLive(att, 0), nextLive(def, 0)
	aRun, dRun := runPower(att, a), runPower(def, d)
	for a < len(att) && d < len(def) {
		diff := aRun - dRun
		switch {
		case diff > combatEpsilon:
			aRun = diff
			att[a].count = survivors(aRun, att[a].power)
			def[d].count = 0
			d = nextLive(def, d+1)
			dRun = runPower(def, d)
		case diff < -combatEpsilon:
			dRun = -diff
			def[d].count = survivors(dRun, def[d].power)
			att[a].count = 0
			a = nextLive(att, a+1)
			aRun = runPower(att, a)
		default:
			att[a].count, def[d].count = 0, 0
			a, d = nextLive(att, a+1), nextLive(def, d+1)
			aRun, dRun = runPower(att, a), runPower(def, d)
		}
	}

	// The current group's running power may carry a fraction its floored
	// count does not; unfought groups to its right count in full.
	aLeft, dLeft := 0.0, 0.0
	if a < len(att) {
		aLeft = aRun + sumPower(att, a+1)
	}
	if d < len(def) {
		dLeft = dRun + sumPower(def, d+1)
	}

	b := Battle{
		AttackerWon: dLeft <= combatEpsilon && (aLeft > combatEpsilon || defStart <= combatEpsilon),
		Attackers:   NewBundle(len(c)),
		Defenders:   NewBundle(len(c)),
	}
	for _, g := range att {
		b.Attackers[g.typ] = g.count
	}
	for _, g := range def {
		b.Defenders[g.typ] = g.count
	}
	return b, nil
}

// ResolvePlanetAttack fights attackers owned by player against the planet's
// stock and applies the result to the planet.
func ResolvePlanetAttack(p *Planet, attackers Bundle, player PlayerID, c Catalog, mult float64) (Outcome, error) {
	b, err := ResolveBattle(p.Stock, attackers, c, mult)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		AttackerWon:    b.AttackerWon,
		AttackerLosses: NewBundle(len(c)),
		DefenderLosses: NewBundle(len(c)),
	}
	for t := range c {
		sentA, heldD := float64(attackers.Whole(t)), float64(p.Stock.Whole(t))
		if b.AttackerWon {
			out.AttackerLosses[t] = sentA - b.Attackers[t]
			out.DefenderLosses[t] = heldD
		} else {
			out.AttackerLosses[t] = sentA
			out.DefenderLosses[t] = heldD - b.Defenders[t]
		}
	}

	if b.AttackerWon {
		p.Stock = b.Attackers.Clone()
		p.Owner = player
	} else {
		for t := range p.Stock {
			frac := p.Stock[t] - math.Floor(p.Stock[t])
			p.Stock[t] = b.Defenders[t] + frac
		}
	}
	out.Owner = p.Owner
	out.Stock = p.Stock.Clone()
	return out, nil
}

func sortedGroups(b Bundle, c Catalog, mult float64, stat func(UnitType) float64) []combatGroup {
	gs := make([]combatGroup, len(c))
	for t, u := range c {
		gs[t] = combatGroup{typ: t, power: stat(u) * mult, count: float64(b.Whole(t))}
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].power > gs[j].power })
	return gs
}

// nextLive skips groups that contribute no power.
func nextLive(gs []combatGroup, i int) int {
	for i < len(gs) && gs[i].total() <= combatEpsilon {
		i++
	}
	return i
}

func runPower(gs []combatGroup, i int) float64 {
	if i >= len(gs) {
		return 0
	}
	return gs[i].total()
}

func sumPower(gs []combatGroup, from int) float64 {
	var sum float64
	for i := from; i < len(gs); i++ {
		sum += gs[i].total()
	}
	return sum
}

func survivors(power, perUnit float64) float64 {
	if perUnit <= 0 {
		return 0
	}
	return math.Floor(power/perUnit + combatEpsilon)
}

// DamageResult is the effect of damage applied to a group of identical units.
type DamageResult struct {
	Killed    int
	Remaining int
	// Carry is damage below one unit's defense, kept for the next hit.
	Carry    float64
	Survived bool
}

// ApplyDamage converts damage into destroyed units at perUnitDefense each.
// Damage that does not kill a whole unit is returned as carry so that
// repeated small hits add up exactly as one large one.
func ApplyDamage(count int, carried, damage, perUnitDefense float64) DamageResult {
	if count <= 0 {
		return DamageResult{}
	}
	if perUnitDefense <= 0 || damage <= 0 || !finite(damage) || !finite(perUnitDefense) {
		return DamageResult{Remaining: count, Carry: carried, Survived: true}
	}
	total := carried + damage
	killed := math.Floor(total / perUnitDefense)
	if killed >= float64(count) {
		return DamageResult{Killed: count}
	}
	k := int(killed)
	return DamageResult{
		Killed:    k,
		Remaining: count - k,
		Carry:     total - killed*perUnitDefense,
		Survived:  true,
	}
}
