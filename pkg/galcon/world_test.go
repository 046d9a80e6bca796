package galcon

import (
	"errors"
	"testing"
	"time"
)

func twoPlanetWorld(t *testing.T) (*World, *Planet, *Planet) {
	t.Helper()
	w := productionWorld(t)
	a, _ := w.AddPlanet(1, Vec2{0, 0}, 0)
	b, _ := w.AddPlanet(1, Vec2{200, 0}, 0)
	a.Owner = 1
	a.Stock[0] = 10
	return w, a, b
}

func tickUntil(w *World, typ EventType, max int) (Event, bool) {
	for range max {
		for _, ev := range w.Tick(100 * time.Millisecond) {
			if ev.Type == typ {
				return ev, true
			}
		}
	}
	return Event{}, false
}

func TestLaunchErrors(t *testing.T) {
	w, a, b := twoPlanetWorld(t)
	tests := []struct {
		name     string
		src, dst PlanetID
		typ, n   int
		want     error
	}{
		{"unknown source", 9, b.ID, 0, 1, ErrUnknownPlanet},
		{"unknown destination", a.ID, 9, 0, 1, ErrUnknownPlanet},
		{"same planet", a.ID, a.ID, 0, 1, ErrUnknownPlanet},
		{"too many", a.ID, b.ID, 0, 11, ErrInsufficientUnits},
		{"zero", a.ID, b.ID, 0, 0, ErrNegativeCount},
		{"bad type", a.ID, b.ID, 5, 1, ErrUnknownUnitType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.Launch(tt.src, tt.dst, tt.typ, tt.n); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if a.Stock[0] != 10 || len(w.Fleets()) != 0 {
		t.Error("failed launches must not move units")
	}
}

func TestFleetReinforcesFriendlyPlanet(t *testing.T) {
	w, a, b := twoPlanetWorld(t)
	b.Owner = 1
	f, err := w.Launch(a.ID, b.ID, 0, 4)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if a.Stock[0] != 6 {
		t.Errorf("expected 6 left behind, got %v", a.Stock[0])
	}

	ev, ok := tickUntil(w, EventReinforced, 30)
	if !ok {
		t.Fatal("fleet never arrived")
	}
	if ev.Fleet != f.ID || ev.Planet != b.ID {
		t.Errorf("unexpected event %+v", ev)
	}
	if b.Stock[0] != 4 || w.Fleet(f.ID) != nil {
		t.Errorf("expected fleet merged into stock, got %v", b.Stock[0])
	}
}

func TestFleetCapturesPlanet(t *testing.T) {
	w, a, b := twoPlanetWorld(t)
	b.SetDifficulty(3)
	if _, err := w.Launch(a.ID, b.ID, 0, 5); err != nil {
		t.Fatalf("launch: %v", err)
	}

	ev, ok := tickUntil(w, EventPlanetCaptured, 30)
	if !ok {
		t.Fatal("planet was not captured")
	}
	if ev.Player != 1 || ev.Opponent != Neutral {
		t.Errorf("unexpected sides %+v", ev)
	}
	if ev.AttackerLosses[0] != 3 || ev.DefenderLosses[0] != 3 {
		t.Errorf("unexpected losses %v %v", ev.AttackerLosses, ev.DefenderLosses)
	}
	if b.Owner != 1 || b.Stock.Whole(0) < 2 {
		t.Errorf("expected player 1 holding at least 2, got owner %d stock %v", b.Owner, b.Stock)
	}
	if got := w.Players(); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected only player 1 left, got %v", got)
	}
}

func TestApplyChecksOwnership(t *testing.T) {
	w, a, b := twoPlanetWorld(t)
	_, err := w.Apply(2, TransferAction(a.ID, b.ID, 3, BasisAttack))
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	var ae *ActionError
	if !errors.As(err, &ae) || ae.Action.Source != a.ID {
		t.Errorf("expected action error for source %d, got %v", a.ID, err)
	}
}

func TestApplyBuild(t *testing.T) {
	w, a, _ := twoPlanetWorld(t)
	if _, err := w.Apply(1, BuildAction(a.ID, 5)); !errors.Is(err, ErrBuildingNotAllowed) {
		t.Errorf("expected out of range build index to fail, got %v", err)
	}
	if _, err := w.Apply(1, BuildAction(a.ID, 1)); err != nil {
		t.Fatalf("apply build: %v", err)
	}
	if !a.Constructing() || a.Slots[a.Construction.Slot].Def != 1 {
		t.Errorf("expected turret under construction, got %+v", a.Construction)
	}
}

func TestTurretShootsEnemyFleet(t *testing.T) {
	w, a, b := twoPlanetWorld(t)
	b.Owner = 2
	b.Stock[0] = 50
	if _, err := w.PlaceBuilding(b.ID, 1); err != nil {
		t.Fatalf("place turret: %v", err)
	}
	f, err := w.Launch(a.ID, b.ID, 0, 2)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	var fired, destroyed bool
	for range 20 {
		for _, ev := range w.Tick(100 * time.Millisecond) {
			switch ev.Type {
			case EventProjectileFired:
				fired = true
				if ev.Player != 2 || ev.Fleet != f.ID {
					t.Errorf("unexpected shot %+v", ev)
				}
			case EventFleetDestroyed:
				destroyed = true
			}
		}
	}
	if !fired || !destroyed {
		t.Fatalf("expected turret to destroy the fleet, fired=%v destroyed=%v", fired, destroyed)
	}
	if b.Owner != 2 || b.Stock[0] != 50 {
		t.Errorf("destroyed fleet should never land, got owner %d stock %v", b.Owner, b.Stock)
	}
}

func TestNewWorldRejectsBadTables(t *testing.T) {
	if _, err := NewWorld(Catalog{{Attack: 1, Defense: 0, Speed: 1}}, nil, nil); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("expected invalid catalog, got %v", err)
	}
	if _, err := NewWorld(uniformCatalog(1), nil, []PlanetType{{Buildings: []int{0}}}); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected invalid scenario, got %v", err)
	}
	bad := []BuildingDef{{Name: "x", Effect: ProduceEffect{UnitType: 4, Interval: time.Second}}}
	if _, err := NewWorld(uniformCatalog(1), bad, nil); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected invalid building, got %v", err)
	}
}
