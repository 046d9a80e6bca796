package galcon

import (
	"fmt"
	"math"
	"time"
)

// Geometry of the planet surface used for building placement.
const (
	PlanetRadius  = 50.0
	BuildingWidth = 100.0
)

// PlanetID is a stable handle into a World's planet table. Zero is never
// assigned and means "no planet".
type PlanetID int

// PlanetType carries per-type modifiers shared by every planet of that type.
type PlanetType struct {
	Name string `json:"name" yaml:"name"`
	// DamageMultiplier scales both sides of a battle fought on the planet.
	DamageMultiplier float64 `json:"damage_multiplier" yaml:"damage_multiplier"`
	// FuelPerSize bounds total base production to FuelPerSize*size units.
	// Zero means unlimited.
	FuelPerSize float64 `json:"fuel_per_size" yaml:"fuel_per_size"`
	// Buildings lists the allowed building definitions. Empty allows all.
	Buildings []int `json:"buildings" yaml:"buildings"`
}

// Multiplier returns the battle damage multiplier, defaulting to 1.
func (t PlanetType) Multiplier() float64 {
	if t.DamageMultiplier <= 0 || !finite(t.DamageMultiplier) {
		return 1
	}
	return t.DamageMultiplier
}

// Construction tracks the single building under way on a planet.
type Construction struct {
	Slot    int           `json:"slot"`
	Elapsed time.Duration `json:"elapsed"`
}

// Planet is the mutable state of one planet.
type Planet struct {
	ID           PlanetID           `json:"id"`
	Owner        PlayerID           `json:"owner"`
	Size         float64            `json:"size"`
	Pos          Vec2               `json:"pos"`
	Type         int                `json:"type"`
	Stock        Bundle             `json:"stock"`
	Rates        []float64          `json:"rates"`
	Slots        []BuildingInstance `json:"slots"`
	Construction *Construction      `json:"construction,omitempty"`
	Fuel         float64            `json:"fuel"`
	FuelLimited  bool               `json:"fuel_limited"`
}

// SlotCount returns how many buildings fit around a planet of the given size.
func SlotCount(size float64) int {
	if size <= 0 || !finite(size) {
		return 0
	}
	half := (BuildingWidth / 2) / (PlanetRadius * size)
	if half >= 1 {
		return 1
	}
	n := int(2 * math.Pi / (2 * math.Asin(half)))
	if n < 1 {
		n = 1
	}
	return n
}

func newPlanet(id PlanetID, size float64, pos Vec2, typ int, units int) *Planet {
	p := &Planet{
		ID:    id,
		Size:  size,
		Pos:   pos,
		Type:  typ,
		Stock: NewBundle(units),
		Rates: make([]float64, units),
		Slots: make([]BuildingInstance, SlotCount(size)),
	}
	for i := range p.Slots {
		p.Slots[i] = emptySlot()
	}
	return p
}

// Radius is the planet's collision radius.
func (p *Planet) Radius() float64 { return PlanetRadius * p.Size }

// SetRate sets the base production rate of a unit type per unit of size.
func (p *Planet) SetRate(t int, rate float64) error {
	if t < 0 || t >= len(p.Rates) {
		return fmt.Errorf("%w: %d", ErrUnknownUnitType, t)
	}
	if rate < 0 || !finite(rate) {
		return fmt.Errorf("%w: rate %v", ErrNegativeCount, rate)
	}
	p.Rates[t] = rate
	return nil
}

// SetDifficulty sets the garrison of a neutral planet to n units of type 0.
// It has no effect on owned planets.
func (p *Planet) SetDifficulty(n float64) {
	if p.Owner != Neutral || len(p.Stock) == 0 || n < 0 {
		return
	}
	p.Stock[0] = n
}

// AddUnits adds count units of type t to the planet's stock.
func (p *Planet) AddUnits(t int, count float64) error {
	if t < 0 || t >= len(p.Stock) {
		return fmt.Errorf("%w: %d", ErrUnknownUnitType, t)
	}
	if count < 0 || math.IsNaN(count) {
		return fmt.Errorf("%w: %v", ErrNegativeCount, count)
	}
	p.Stock[t] += count
	return nil
}

func (p *Planet) removeUnits(t, count int) error {
	if t < 0 || t >= len(p.Stock) {
		return fmt.Errorf("%w: %d", ErrUnknownUnitType, t)
	}
	if count <= 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, count)
	}
	if have := p.Stock.Whole(t); count > have {
		return fmt.Errorf("%w: want %d of type %d, have %d", ErrInsufficientUnits, count, t, have)
	}
	p.Stock[t] -= float64(count)
	return nil
}

// AttackPower is the attack value of the planet's whole units.
func (p *Planet) AttackPower(c Catalog) float64 { return c.AttackPower(p.Stock) }

// DefensePower is the defense value of the planet's whole units.
func (p *Planet) DefensePower(c Catalog) float64 { return c.DefensePower(p.Stock) }

// Constructing reports whether a building is under way.
func (p *Planet) Constructing() bool { return p.Construction != nil }

// FreeSlot returns the first empty slot, or -1.
func (p *Planet) FreeSlot() int {
	for i, s := range p.Slots {
		if !s.Exists() {
			return i
		}
	}
	return -1
}

// CanBuild reports whether a new construction could start now.
func (p *Planet) CanBuild() bool {
	return !p.Constructing() && p.FreeSlot() >= 0
}

// StartConstruction places building def in the first free slot.
func (p *Planet) StartConstruction(def int) (int, error) {
	if p.Constructing() {
		return -1, ErrConstructionBusy
	}
	slot := p.FreeSlot()
	if slot < 0 {
		return -1, ErrNoFreeSlot
	}
	p.Slots[slot] = BuildingInstance{Def: def}
	p.Construction = &Construction{Slot: slot}
	return slot, nil
}

// Destroy removes the building in slot, cancelling its construction if needed.
func (p *Planet) Destroy(slot int) {
	if slot < 0 || slot >= len(p.Slots) {
		return
	}
	p.Slots[slot] = emptySlot()
	if p.Construction != nil && p.Construction.Slot == slot {
		p.Construction = nil
	}
}

// Complete reports whether slot holds a finished building.
func (p *Planet) Complete(slot int) bool {
	if slot < 0 || slot >= len(p.Slots) || !p.Slots[slot].Exists() {
		return false
	}
	return p.Construction == nil || p.Construction.Slot != slot
}

// advance runs one tick of production and construction. It returns the units
// produced and the slot whose construction finished, or -1.
func (p *Planet) advance(dt time.Duration, defs []BuildingDef) (Bundle, int) {
	produced := NewBundle(len(p.Stock))
	secs := dt.Seconds()
	if secs <= 0 {
		return produced, -1
	}

	if p.Owner != Neutral && p.Construction == nil {
		for t, r := range p.Rates {
			produced[t] = r * p.Size * secs
		}
		if p.FuelLimited {
			want := produced.Total()
			if want > p.Fuel {
				scale := 0.0
				if want > 0 {
					scale = p.Fuel / want
				}
				for t := range produced {
					produced[t] *= scale
				}
				want = p.Fuel
			}
			p.Fuel = math.Max(0, p.Fuel-want)
		}
	}

	completed := -1
	if c := p.Construction; c != nil {
		c.Elapsed += dt
		def := p.Slots[c.Slot].Def
		if def < 0 || def >= len(defs) || c.Elapsed >= defs[def].BuildTime {
			completed = c.Slot
			p.Construction = nil
		}
	}

	for slot, b := range p.Slots {
		if !p.Complete(slot) || b.Def >= len(defs) {
			continue
		}
		def := defs[b.Def]
		p.Slots[slot].recharge(dt, def.Cooldown)
		if e, ok := def.Effect.(ProduceEffect); ok && p.Owner != Neutral && e.UnitType < len(produced) {
			produced[e.UnitType] += secs / e.Interval.Seconds()
		}
	}

	for t, v := range produced {
		p.Stock[t] += v
	}
	return produced, completed
}

// TransferCounts converts an abstract power amount into whole units per type,
// drawing the same fraction of every type. The basis selects whether amount
// is measured in attack or defense power.
func (p *Planet) TransferCounts(amount float64, basis PowerBasis, c Catalog) []int {
	counts := make([]int, len(p.Stock))
	power := p.DefensePower(c)
	if basis == BasisAttack {
		power = p.AttackPower(c)
	}
	if amount <= 0 || power <= 0 || !finite(amount) {
		return counts
	}
	ratio := math.Min(1, amount/power)
	for t := range counts {
		whole := p.Stock.Whole(t)
		n := int(math.Floor(float64(whole)*ratio + 0.5))
		counts[t] = min(n, whole)
	}
	return counts
}
