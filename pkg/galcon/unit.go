package galcon

import (
	"fmt"
	"math"
	"time"
)

// PlayerID identifies a player. Neutral owns unclaimed planets.
type PlayerID int

const Neutral PlayerID = 0

// UnitType holds the static combat stats of one kind of unit.
type UnitType struct {
	Name              string        `json:"name" yaml:"name"`
	Attack            float64       `json:"attack" yaml:"attack"`
	Defense           float64       `json:"defense" yaml:"defense"`
	Speed             float64       `json:"speed" yaml:"speed"`
	InterceptRange    float64       `json:"intercept_range" yaml:"intercept_range"`
	InterceptDamage   float64       `json:"intercept_damage" yaml:"intercept_damage"`
	InterceptCooldown time.Duration `json:"intercept_cooldown" yaml:"intercept_cooldown"`
}

// Catalog is the table of unit types, indexed by type.
type Catalog []UnitType

// Validate rejects catalogs whose stats would break combat arithmetic.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no unit types", ErrInvalidCatalog)
	}
	for i, u := range c {
		switch {
		case !finite(u.Attack) || u.Attack < 0:
			return fmt.Errorf("%w: unit %d has attack %v", ErrInvalidCatalog, i, u.Attack)
		case !finite(u.Defense) || u.Defense <= 0:
			return fmt.Errorf("%w: unit %d has defense %v", ErrInvalidCatalog, i, u.Defense)
		case !finite(u.Speed) || u.Speed <= 0:
			return fmt.Errorf("%w: unit %d has speed %v", ErrInvalidCatalog, i, u.Speed)
		case u.InterceptRange < 0 || u.InterceptDamage < 0 || u.InterceptCooldown < 0:
			return fmt.Errorf("%w: unit %d has negative intercept stats", ErrInvalidCatalog, i)
		}
	}
	return nil
}

// Has reports whether t is a valid index into the catalog.
func (c Catalog) Has(t int) bool { return t >= 0 && t < len(c) }

// AttackPower is the attack value of the whole units in b.
func (c Catalog) AttackPower(b Bundle) float64 {
	var sum float64
	for i := range c {
		sum += float64(b.Whole(i)) * c[i].Attack
	}
	return sum
}

// DefensePower is the defense value of the whole units in b.
func (c Catalog) DefensePower(b Bundle) float64 {
	var sum float64
	for i := range c {
		sum += float64(b.Whole(i)) * c[i].Defense
	}
	return sum
}

// Weigh returns the attack and defense value of b including fractional units.
func (c Catalog) Weigh(b Bundle) (attack, defense float64) {
	for i := range c {
		if i >= len(b) {
			break
		}
		attack += b[i] * c[i].Attack
		defense += b[i] * c[i].Defense
	}
	return attack, defense
}

// Bundle holds a count per unit type. Counts are fractional while units
// accrue on a planet; only the integer part can leave it.
type Bundle []float64

// NewBundle returns an empty bundle for n unit types.
func NewBundle(n int) Bundle { return make(Bundle, n) }

// Clone returns a copy of b.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	copy(out, b)
	return out
}

// Whole returns the transferable count of type t.
func (b Bundle) Whole(t int) int {
	if t < 0 || t >= len(b) || b[t] <= 0 {
		return 0
	}
	return int(math.Floor(b[t]))
}

// WholeTotal returns the number of whole units across all types.
func (b Bundle) WholeTotal() int {
	n := 0
	for i := range b {
		n += b.Whole(i)
	}
	return n
}

// Total returns the sum of all counts, fractions included.
func (b Bundle) Total() float64 {
	var sum float64
	for _, v := range b {
		sum += v
	}
	return sum
}

// Check validates b against a catalog of n unit types.
func (b Bundle) Check(n int) error {
	if len(b) != n {
		return fmt.Errorf("%w: got %d, want %d", ErrBundleSize, len(b), n)
	}
	for i, v := range b {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: type %d has %v", ErrNegativeCount, i, v)
		}
	}
	return nil
}

// Single returns a bundle of n types holding count units of type t.
func Single(n, t, count int) Bundle {
	b := NewBundle(n)
	if t >= 0 && t < n {
		b[t] = float64(count)
	}
	return b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
