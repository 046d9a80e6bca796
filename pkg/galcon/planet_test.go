package galcon

import (
	"errors"
	"testing"
	"time"
)

func TestSlotCount(t *testing.T) {
	tests := []struct {
		size float64
		want int
	}{
		{0, 0},
		{0.6, 1},
		{1, 2},
		{1.2, 3},
	}
	for _, tt := range tests {
		if got := SlotCount(tt.size); got != tt.want {
			t.Errorf("SlotCount(%v) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func productionWorld(t *testing.T, types ...PlanetType) *World {
	t.Helper()
	buildings := []BuildingDef{
		{Name: "factory", BuildTime: 2 * time.Second, Cooldown: time.Second, Effect: ProduceEffect{UnitType: 0, Interval: 500 * time.Millisecond}},
		{Name: "turret", BuildTime: time.Second, Cooldown: time.Second, Range: 300, Effect: FireEffect{Kind: "damage", Params: []float64{3}, SpeedMultiplier: 1}},
	}
	w, err := NewWorld(uniformCatalog(2), buildings, types)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func TestPlanetProduction(t *testing.T) {
	w := productionWorld(t)
	owned, _ := w.AddPlanet(2, Vec2{}, 0)
	owned.Owner = 1
	owned.SetRate(0, 1.5)
	neutral, _ := w.AddPlanet(2, Vec2{500, 0}, 0)
	neutral.SetRate(0, 1.5)
	neutral.SetDifficulty(12)

	events := w.Tick(time.Second)

	if !near(owned.Stock[0], 3) {
		t.Errorf("expected 3 units produced, got %v", owned.Stock[0])
	}
	if neutral.Stock[0] != 12 {
		t.Errorf("neutral planet should not produce, got %v", neutral.Stock[0])
	}
	var produced int
	for _, ev := range events {
		if ev.Type == EventUnitsProduced {
			produced++
			if ev.Planet != owned.ID || ev.Player != 1 || !near(ev.Units[0], 3) {
				t.Errorf("unexpected production event %+v", ev)
			}
		}
	}
	if produced != 1 {
		t.Errorf("expected one production event, got %d", produced)
	}
}

func TestPlanetSetDifficultyIgnoresOwned(t *testing.T) {
	p := planetWith(1, 4)
	p.SetDifficulty(30)
	if p.Stock[0] != 4 {
		t.Errorf("owned planet garrison changed to %v", p.Stock[0])
	}
}

func TestPlanetFuelRunsOut(t *testing.T) {
	w := productionWorld(t, PlanetType{Name: "rock", FuelPerSize: 1})
	p, _ := w.AddPlanet(2, Vec2{}, 0)
	p.Owner = 1
	p.SetRate(0, 3)
	if !p.FuelLimited || p.Fuel != 2 {
		t.Fatalf("expected 2 fuel, got %v limited=%v", p.Fuel, p.FuelLimited)
	}

	w.Tick(time.Second)
	if !near(p.Stock[0], 2) || p.Fuel != 0 {
		t.Errorf("expected production capped at 2 with no fuel left, got stock %v fuel %v", p.Stock[0], p.Fuel)
	}
	w.Tick(time.Second)
	if !near(p.Stock[0], 2) {
		t.Errorf("expected no production without fuel, got %v", p.Stock[0])
	}
}

func TestPlanetConstruction(t *testing.T) {
	w := productionWorld(t)
	p, _ := w.AddPlanet(1, Vec2{}, 0)
	p.Owner = 1
	p.SetRate(0, 1)

	slot, err := w.StartConstruction(p.ID, 0)
	if err != nil {
		t.Fatalf("start construction: %v", err)
	}
	if _, err := w.StartConstruction(p.ID, 1); !errors.Is(err, ErrConstructionBusy) {
		t.Errorf("expected busy, got %v", err)
	}

	events := w.Tick(time.Second)
	if events[0].Type != EventConstructionStarted || events[0].Slot != slot {
		t.Errorf("expected construction started event first, got %+v", events[0])
	}
	if p.Stock[0] != 0 {
		t.Errorf("base production should pause while building, got %v", p.Stock[0])
	}

	events = w.Tick(time.Second)
	var done bool
	for _, ev := range events {
		done = done || ev.Type == EventConstructionComplete
	}
	if !done || p.Constructing() || !p.Complete(slot) {
		t.Fatal("expected construction to complete after build time")
	}
	// The factory works from the tick it completes.
	if !near(p.Stock[0], 2) {
		t.Errorf("expected 2 units from the factory, got %v", p.Stock[0])
	}

	w.Tick(time.Second)
	if !near(p.Stock[0], 5) {
		t.Errorf("expected base rate plus factory, got %v", p.Stock[0])
	}
}

func TestPlanetConstructionLimits(t *testing.T) {
	w := productionWorld(t, PlanetType{Name: "outpost", Buildings: []int{1}})
	p, _ := w.AddPlanet(0.6, Vec2{}, 0)
	p.Owner = 1

	if _, err := w.StartConstruction(p.ID, 0); !errors.Is(err, ErrBuildingNotAllowed) {
		t.Errorf("expected not allowed, got %v", err)
	}
	if _, err := w.StartConstruction(p.ID, 7); !errors.Is(err, ErrUnknownBuilding) {
		t.Errorf("expected unknown building, got %v", err)
	}
	if _, err := w.PlaceBuilding(p.ID, 1); err != nil {
		t.Fatalf("place building: %v", err)
	}
	if p.CanBuild() {
		t.Error("single slot planet should be full")
	}
	if _, err := w.StartConstruction(p.ID, 1); !errors.Is(err, ErrNoFreeSlot) {
		t.Errorf("expected no free slot, got %v", err)
	}

	p.Destroy(0)
	if !p.CanBuild() {
		t.Error("destroying the building should free the slot")
	}
}

func TestTransferCountsConserveUnits(t *testing.T) {
	c := uniformCatalog(3)
	tests := []struct {
		name    string
		stock   Bundle
		amount  float64
		basis   PowerBasis
		want    []int
		wantErr error
	}{
		{"half by defense", Bundle{7.5, 3, 0}, 6.5, BasisDefense, []int{4, 2, 0}, nil},
		{"everything", Bundle{7.5, 3, 0}, 13, BasisAttack, []int{7, 3, 0}, nil},
		{"more than available", Bundle{7.5, 3, 0}, 100, BasisAttack, nil, ErrInsufficientUnits},
		{"just over available", Bundle{5, 0, 0}, 5.01, BasisDefense, nil, ErrInsufficientUnits},
		{"nothing", Bundle{7.5, 3, 0}, 0, BasisAttack, nil, ErrInvalidAmount},
		{"rounds half up", Bundle{1, 0, 1}, 2, BasisAttack, []int{1, 0, 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := NewWorld(c, nil, nil)
			src, _ := w.AddPlanet(1, Vec2{}, 0)
			dst, _ := w.AddPlanet(1, Vec2{300, 0}, 0)
			src.Owner = 1
			copy(src.Stock, tt.stock)

			fleets, err := w.Apply(1, TransferAction(src.ID, dst.ID, tt.amount, tt.basis))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(fleets) != 0 {
					t.Errorf("rejected transfer launched %d fleets", len(fleets))
				}
				for i := range c {
					if src.Stock[i] != tt.stock[i] {
						t.Errorf("type %d: stock changed to %v after rejection", i, src.Stock[i])
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			sent := make([]int, len(c))
			for _, f := range fleets {
				if f.Count <= 0 {
					t.Errorf("empty fleet launched: %+v", f)
				}
				sent[f.Type] += f.Count
			}
			for i := range c {
				if sent[i] != tt.want[i] {
					t.Errorf("type %d: sent %d, want %d", i, sent[i], tt.want[i])
				}
				if src.Stock[i]+float64(sent[i]) != tt.stock[i] {
					t.Errorf("type %d: %v left + %d sent != %v", i, src.Stock[i], sent[i], tt.stock[i])
				}
			}
		})
	}
}
