package galcon

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// amountTolerance is how far a transfer amount may exceed the source's power
// before Apply rejects it.
const amountTolerance = 1e-6

// World is the full simulation state of one match. Planets, fleets and
// projectiles live in tables addressed by stable IDs. A World is not safe for
// concurrent use.
type World struct {
	Units       Catalog
	Buildings   []BuildingDef
	PlanetTypes []PlanetType

	now         time.Duration
	planets     []*Planet
	fleets      []*Fleet
	projectiles []*Projectile
	nextFleet   FleetID
	nextShot    ProjectileID
	pending     []Event
}

// NewWorld validates the static tables and returns an empty world.
func NewWorld(units Catalog, buildings []BuildingDef, types []PlanetType) (*World, error) {
	if err := units.Validate(); err != nil {
		return nil, err
	}
	for _, b := range buildings {
		if err := b.validate(units); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	}
	if len(types) == 0 {
		types = []PlanetType{{Name: "default"}}
	}
	for _, t := range types {
		for _, b := range t.Buildings {
			if b < 0 || b >= len(buildings) {
				return nil, fmt.Errorf("%w: planet type %q allows unknown building %d", ErrInvalidScenario, t.Name, b)
			}
		}
	}
	return &World{Units: units, Buildings: buildings, PlanetTypes: types}, nil
}

// Now returns the simulation clock.
func (w *World) Now() time.Duration { return w.now }

// AddPlanet creates an unowned planet.
func (w *World) AddPlanet(size float64, pos Vec2, typ int) (*Planet, error) {
	if size <= 0 || !finite(size) {
		return nil, fmt.Errorf("%w: planet size %v", ErrInvalidScenario, size)
	}
	if typ < 0 || typ >= len(w.PlanetTypes) {
		return nil, fmt.Errorf("%w: planet type %d", ErrInvalidScenario, typ)
	}
	p := newPlanet(PlanetID(len(w.planets)+1), size, pos, typ, len(w.Units))
	if fuel := w.PlanetTypes[typ].FuelPerSize; fuel > 0 {
		p.FuelLimited = true
		p.Fuel = fuel * size
	}
	w.planets = append(w.planets, p)
	return p, nil
}

// Planet returns the planet with the given ID, or nil.
func (w *World) Planet(id PlanetID) *Planet {
	if id <= 0 || int(id) > len(w.planets) {
		return nil
	}
	return w.planets[id-1]
}

// Planets returns all planets in ID order. The slice must not be modified.
func (w *World) Planets() []*Planet { return w.planets }

// Fleets returns the fleets in flight in launch order.
func (w *World) Fleets() []*Fleet { return w.fleets }

// Projectiles returns the projectiles in flight.
func (w *World) Projectiles() []*Projectile { return w.projectiles }

// Fleet returns the fleet with the given ID, or nil once it has landed or died.
func (w *World) Fleet(id FleetID) *Fleet {
	for _, f := range w.fleets {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// FleetsTo returns the fleets headed for a planet.
func (w *World) FleetsTo(id PlanetID) []*Fleet {
	var out []*Fleet
	for _, f := range w.fleets {
		if f.Dest == id {
			out = append(out, f)
		}
	}
	return out
}

// PlanetType returns the type of p.
func (w *World) PlanetType(p *Planet) PlanetType {
	if p.Type < 0 || p.Type >= len(w.PlanetTypes) {
		return PlanetType{}
	}
	return w.PlanetTypes[p.Type]
}

// AllowedBuildings lists the building definitions p may construct.
func (w *World) AllowedBuildings(p *Planet) []int {
	if allowed := w.PlanetType(p).Buildings; len(allowed) > 0 {
		return allowed
	}
	all := make([]int, len(w.Buildings))
	for i := range all {
		all[i] = i
	}
	return all
}

// Speed returns the travel speed of unit type t.
func (w *World) Speed(t int) float64 {
	if w.Units.Has(t) && w.Units[t].Speed > 0 {
		return w.Units[t].Speed
	}
	return DefaultFleetSpeed
}

// Players returns the non-neutral players that own a planet or a fleet.
func (w *World) Players() []PlayerID {
	var out []PlayerID
	add := func(p PlayerID) {
		if p != Neutral && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	for _, p := range w.planets {
		add(p.Owner)
	}
	for _, f := range w.fleets {
		add(f.Owner)
	}
	slices.Sort(out)
	return out
}

// PlanetCount returns how many planets player owns.
func (w *World) PlanetCount(player PlayerID) int {
	n := 0
	for _, p := range w.planets {
		if p.Owner == player {
			n++
		}
	}
	return n
}

// Launch detaches count units of type t from src as a fleet bound for dst.
func (w *World) Launch(src, dst PlanetID, t, count int) (*Fleet, error) {
	s, d := w.Planet(src), w.Planet(dst)
	if s == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlanet, src)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlanet, dst)
	}
	if src == dst {
		return nil, fmt.Errorf("%w: fleet source and destination are both %d", ErrUnknownPlanet, src)
	}
	if err := s.removeUnits(t, count); err != nil {
		return nil, err
	}
	w.nextFleet++
	f := &Fleet{
		ID:     w.nextFleet,
		Owner:  s.Owner,
		Type:   t,
		Count:  count,
		Source: src,
		Dest:   dst,
		Pos:    s.Pos,
		Vel:    d.Pos.Sub(s.Pos).Normalize().Scale(w.Speed(t)),
	}
	w.fleets = append(w.fleets, f)
	return f, nil
}

// StartConstruction begins building def on a planet.
func (w *World) StartConstruction(id PlanetID, def int) (int, error) {
	p := w.Planet(id)
	if p == nil {
		return -1, fmt.Errorf("%w: %d", ErrUnknownPlanet, id)
	}
	if def < 0 || def >= len(w.Buildings) {
		return -1, fmt.Errorf("%w: %d", ErrUnknownBuilding, def)
	}
	if !slices.Contains(w.AllowedBuildings(p), def) {
		return -1, fmt.Errorf("%w: %s on %s", ErrBuildingNotAllowed, w.Buildings[def].Name, w.PlanetType(p).Name)
	}
	slot, err := p.StartConstruction(def)
	if err != nil {
		return -1, err
	}
	w.pending = append(w.pending, Event{
		Type:   EventConstructionStarted,
		At:     w.now,
		Planet: id,
		Player: p.Owner,
		Slot:   slot,
	})
	return slot, nil
}

// PlaceBuilding puts a finished building in a free slot.
func (w *World) PlaceBuilding(id PlanetID, def int) (int, error) {
	p := w.Planet(id)
	if p == nil {
		return -1, fmt.Errorf("%w: %d", ErrUnknownPlanet, id)
	}
	if def < 0 || def >= len(w.Buildings) {
		return -1, fmt.Errorf("%w: %d", ErrUnknownBuilding, def)
	}
	slot := p.FreeSlot()
	if slot < 0 {
		return -1, ErrNoFreeSlot
	}
	p.Slots[slot] = BuildingInstance{Def: def, SinceFire: w.Buildings[def].Cooldown}
	return slot, nil
}

// Apply realises an action issued by player. Transfers become one fleet per
// unit type with units to send; builds start a construction. A transfer asking
// for more power than the source holds fails with ErrInsufficientUnits.
func (w *World) Apply(player PlayerID, a Action) ([]*Fleet, error) {
	src := w.Planet(a.Source)
	if src == nil {
		return nil, &ActionError{a, ErrUnknownPlanet}
	}
	if src.Owner != player {
		return nil, &ActionError{a, ErrNotOwner}
	}

	if a.IsBuild() {
		allowed := w.AllowedBuildings(src)
		if a.BuildIndex < 0 || a.BuildIndex >= len(allowed) {
			return nil, &ActionError{a, ErrBuildingNotAllowed}
		}
		if _, err := w.StartConstruction(src.ID, allowed[a.BuildIndex]); err != nil {
			return nil, &ActionError{a, err}
		}
		return nil, nil
	}

	if w.Planet(a.Dest) == nil {
		return nil, &ActionError{a, ErrUnknownPlanet}
	}
	if a.Amount <= 0 || math.IsNaN(a.Amount) {
		return nil, &ActionError{a, ErrInvalidAmount}
	}
	power := src.DefensePower(w.Units)
	if a.Basis == BasisAttack {
		power = src.AttackPower(w.Units)
	}
	if a.Amount > power+amountTolerance {
		return nil, &ActionError{a, ErrInsufficientUnits}
	}
	var out []*Fleet
	for t, n := range src.TransferCounts(a.Amount, a.Basis, w.Units) {
		if n == 0 {
			continue
		}
		f, err := w.Launch(a.Source, a.Dest, t, n)
		if err != nil {
			return out, &ActionError{a, err}
		}
		out = append(out, f)
	}
	return out, nil
}

// Tick advances the world by dt: fleets move and land, fleets intercept each
// other, projectiles fly, then planets produce, build and fire.
func (w *World) Tick(dt time.Duration) []Event {
	events := w.pending
	w.pending = nil
	if dt <= 0 {
		return events
	}
	w.now += dt
	events = w.moveFleets(dt, events)
	events = w.intercept(events)
	events = w.moveProjectiles(dt, events)
	events = w.advancePlanets(dt, events)
	return events
}

func (w *World) moveFleets(dt time.Duration, events []Event) []Event {
	kept := w.fleets[:0]
	for _, f := range w.fleets {
		dst := w.Planet(f.Dest)
		if dst == nil {
			continue
		}
		if !f.move(dt, dst.Pos, w.Speed(f.Type), dst.Radius()) {
			kept = append(kept, f)
			continue
		}
		events = append(events, w.land(f, dst))
	}
	clear(w.fleets[len(kept):])
	w.fleets = kept
	return events
}

// land merges a fleet into a friendly planet or fights for a hostile one.
func (w *World) land(f *Fleet, dst *Planet) Event {
	units := f.Bundle(len(w.Units))
	ev := Event{
		At:       w.now,
		Planet:   dst.ID,
		Fleet:    f.ID,
		Player:   f.Owner,
		Opponent: dst.Owner,
		UnitType: f.Type,
		Units:    units,
	}
	if dst.Owner == f.Owner {
		dst.Stock[f.Type] += float64(f.Count)
		ev.Type = EventReinforced
		return ev
	}

	out, err := ResolvePlanetAttack(dst, units, f.Owner, w.Units, w.PlanetType(dst).Multiplier())
	if err != nil {
		ev.Type = EventAttackRepelled
		return ev
	}
	ev.AttackerLosses = out.AttackerLosses
	ev.DefenderLosses = out.DefenderLosses
	ev.Type = EventAttackRepelled
	if out.AttackerWon {
		ev.Type = EventPlanetCaptured
	}
	f.Count = 0
	return ev
}

func (w *World) intercept(events []Event) []Event {
	for _, a := range w.fleets {
		for _, t := range w.fleets {
			if a == t || !a.Alive() || !t.Alive() {
				continue
			}
			res, dmg := AttemptIntercept(a, t, w.Units, w.now)
			if ev, ok := w.damageEvent(res, t, a.Owner, dmg); ok {
				events = append(events, ev)
			}
		}
	}
	w.dropDeadFleets()
	return events
}

func (w *World) moveProjectiles(dt time.Duration, events []Event) []Event {
	kept := w.projectiles[:0]
	for _, p := range w.projectiles {
		f := w.Fleet(p.Target)
		if f == nil || !f.Alive() {
			continue
		}
		if !p.advance(dt, f.Pos) {
			kept = append(kept, p)
			continue
		}
		r := f.TakeHit(p.Damage, w.Units)
		res := InterceptDamaged
		if !r.Survived {
			res = InterceptDestroyed
		}
		if ev, ok := w.damageEvent(res, f, p.Owner, r); ok {
			events = append(events, ev)
		}
	}
	clear(w.projectiles[len(kept):])
	w.projectiles = kept
	w.dropDeadFleets()
	return events
}

func (w *World) damageEvent(res InterceptResult, f *Fleet, by PlayerID, r DamageResult) (Event, bool) {
	ev := Event{
		At:       w.now,
		Fleet:    f.ID,
		Planet:   f.Dest,
		Player:   f.Owner,
		Opponent: by,
		UnitType: f.Type,
		Killed:   r.Killed,
	}
	switch res {
	case InterceptDamaged:
		ev.Type = EventFleetDamaged
	case InterceptDestroyed:
		ev.Type = EventFleetDestroyed
	default:
		return Event{}, false
	}
	return ev, true
}

func (w *World) dropDeadFleets() {
	w.fleets = slices.DeleteFunc(w.fleets, func(f *Fleet) bool { return !f.Alive() })
}

func (w *World) advancePlanets(dt time.Duration, events []Event) []Event {
	for _, p := range w.planets {
		produced, done := p.advance(dt, w.Buildings)
		if p.Owner != Neutral && produced.Total() > 0 {
			events = append(events, Event{
				Type:   EventUnitsProduced,
				At:     w.now,
				Planet: p.ID,
				Player: p.Owner,
				Units:  produced,
			})
		}
		if done >= 0 {
			events = append(events, Event{
				Type:   EventConstructionComplete,
				At:     w.now,
				Planet: p.ID,
				Player: p.Owner,
				Slot:   done,
			})
		}
		events = w.fire(p, events)
	}
	return events
}

// fire launches projectiles from ready buildings at the nearest enemy fleet.
func (w *World) fire(p *Planet, events []Event) []Event {
	for slot := range p.Slots {
		if !p.Complete(slot) || p.Slots[slot].Def >= len(w.Buildings) {
			continue
		}
		def := w.Buildings[p.Slots[slot].Def]
		e, ok := def.Effect.(FireEffect)
		if !ok || e.Damage() <= 0 || !p.Slots[slot].canFire(def.Cooldown) {
			continue
		}
		target := w.nearestEnemyFleet(p.Pos, p.Owner, def.Range)
		if target == nil {
			continue
		}
		p.Slots[slot].fire(def.Cooldown)
		speed := DefaultProjectileSpeed
		if e.SpeedMultiplier > 0 {
			speed *= e.SpeedMultiplier
		}
		w.nextShot++
		w.projectiles = append(w.projectiles, &Projectile{
			ID:     w.nextShot,
			Owner:  p.Owner,
			Source: p.ID,
			Target: target.ID,
			Pos:    p.Pos,
			Speed:  speed,
			Damage: e.Damage(),
		})
		events = append(events, Event{
			Type:     EventProjectileFired,
			At:       w.now,
			Planet:   p.ID,
			Fleet:    target.ID,
			Player:   p.Owner,
			Opponent: target.Owner,
			Slot:     slot,
		})
	}
	return events
}

func (w *World) nearestEnemyFleet(pos Vec2, owner PlayerID, reach float64) *Fleet {
	var best *Fleet
	bestDist := math.Inf(1)
	for _, f := range w.fleets {
		if f.Owner == owner || !f.Alive() {
			continue
		}
		if d := pos.Dist(f.Pos); d <= reach && d < bestDist {
			best, bestDist = f, d
		}
	}
	return best
}
