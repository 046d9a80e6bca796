package galcon

import (
	"math/rand"
	"reflect"
	"testing"
)

func randomCatalog(rng *rand.Rand) Catalog {
	c := make(Catalog, 1+rng.Intn(5))
	for i := range c {
		c[i] = UnitType{
			Attack:  float64(rng.Intn(10)),
			Defense: float64(1 + rng.Intn(10)),
			Speed:   100,
		}
	}
	return c
}

func randomBundle(rng *rand.Rand, n int) Bundle {
	b := NewBundle(n)
	for i := range b {
		b[i] = float64(rng.Intn(20))
		if rng.Intn(3) == 0 {
			b[i] += 0.5
		}
	}
	return b
}

// FuzzResolveBattle checks that battles never create units, are
// deterministic, and are won by the side with more power.
func FuzzResolveBattle(f *testing.F) {
	f.Add(int64(1))
	f.Add(int64(42))
	f.Add(int64(987654))

	f.Fuzz(func(t *testing.T, seed int64) {
		rng := rand.New(rand.NewSource(seed))
		c := randomCatalog(rng)
		defenders := randomBundle(rng, len(c))
		attackers := randomBundle(rng, len(c))
		if attackers.WholeTotal() == 0 {
			attackers[0] = 1
		}

		b, err := ResolveBattle(defenders, attackers, c, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		again, _ := ResolveBattle(defenders, attackers, c, 1)
		if !reflect.DeepEqual(b, again) {
			t.Fatalf("nondeterministic battle: %+v vs %+v", b, again)
		}

		for i := range c {
			if b.Attackers[i] > float64(attackers.Whole(i)) || b.Defenders[i] > float64(defenders.Whole(i)) {
				t.Fatalf("units created for type %d: %+v from a=%v d=%v", i, b, attackers, defenders)
			}
			if b.Attackers[i] < 0 || b.Defenders[i] < 0 {
				t.Fatalf("negative survivors: %+v", b)
			}
		}

		a, d := c.AttackPower(attackers), c.DefensePower(defenders)
		switch {
		case a > d+combatEpsilon && !b.AttackerWon:
			t.Fatalf("attack %v beat defense %v but defender held", a, d)
		case a < d-combatEpsilon && b.AttackerWon:
			t.Fatalf("attack %v lost to defense %v but attacker won", a, d)
		}

		p := planetWith(1, defenders...)
		before := p.Stock.Total() + float64(attackers.WholeTotal())
		if _, err := ResolvePlanetAttack(p, attackers, 2, c, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Stock.Total() > before+1e-9 {
			t.Fatalf("stock grew from %v to %v", before, p.Stock.Total())
		}
	})
}
