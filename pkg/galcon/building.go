package galcon

import (
	"fmt"
	"time"
)

// Building defaults used when a definition leaves a field unset.
const (
	DefaultBuildTime = time.Second
	DefaultCooldown  = 2 * time.Second
	DefaultRange     = 1000.0
)

// Effect is what a completed building does each tick. It is either a
// ProduceEffect or a FireEffect.
type Effect interface {
	effect()
}

// ProduceEffect adds one unit of UnitType every Interval.
type ProduceEffect struct {
	UnitType int
	Interval time.Duration
}

// FireEffect launches a projectile at the nearest enemy fleet in range.
// Kind "damage" deals Params[0] damage on contact.
type FireEffect struct {
	Kind            string
	Params          []float64
	SpeedMultiplier float64
}

func (ProduceEffect) effect() {}
func (FireEffect) effect()    {}

// Damage returns the damage a projectile from this effect deals.
func (f FireEffect) Damage() float64 {
	if f.Kind != "damage" || len(f.Params) == 0 {
		return 0
	}
	return f.Params[0]
}

// BuildingDef is a static building definition.
type BuildingDef struct {
	Name      string
	BuildTime time.Duration
	Cooldown  time.Duration
	Range     float64
	Effect    Effect
}

func (d BuildingDef) validate(units Catalog) error {
	if d.BuildTime < 0 || d.Cooldown < 0 || d.Range < 0 {
		return fmt.Errorf("building %q: negative timing or range", d.Name)
	}
	switch e := d.Effect.(type) {
	case nil:
	case ProduceEffect:
		if !units.Has(e.UnitType) {
			return fmt.Errorf("building %q: %w %d", d.Name, ErrUnknownUnitType, e.UnitType)
		}
		if e.Interval <= 0 {
			return fmt.Errorf("building %q: produce interval must be positive", d.Name)
		}
	case FireEffect:
		if e.SpeedMultiplier < 0 {
			return fmt.Errorf("building %q: negative projectile speed", d.Name)
		}
	}
	return nil
}

// BuildingInstance occupies one planet slot. Def is -1 for an empty slot.
type BuildingInstance struct {
	Def       int           `json:"def"`
	SinceFire time.Duration `json:"since_fire"`
}

func emptySlot() BuildingInstance { return BuildingInstance{Def: -1} }

// Exists reports whether the slot holds a building.
func (b BuildingInstance) Exists() bool { return b.Def >= 0 }

// recharge advances the fire timer without letting shots bank past one cooldown.
func (b *BuildingInstance) recharge(dt, cooldown time.Duration) {
	b.SinceFire += dt
	if b.SinceFire > cooldown {
		b.SinceFire = cooldown
	}
}

func (b *BuildingInstance) canFire(cooldown time.Duration) bool {
	return b.Exists() && b.SinceFire >= cooldown
}

func (b *BuildingInstance) fire(cooldown time.Duration) {
	b.SinceFire -= cooldown
}
