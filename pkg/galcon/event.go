package galcon

import "time"

// EventType identifies what happened during a tick.
type EventType int

const (
	EventReinforced EventType = iota + 1
	EventAttackRepelled
	EventPlanetCaptured
	EventFleetDamaged
	EventFleetDestroyed
	EventUnitsProduced
	EventConstructionStarted
	EventConstructionComplete
	EventProjectileFired
)

var eventNames = map[EventType]string{
	EventReinforced:           "reinforced",
	EventAttackRepelled:       "attack_repelled",
	EventPlanetCaptured:       "planet_captured",
	EventFleetDamaged:         "fleet_damaged",
	EventFleetDestroyed:       "fleet_destroyed",
	EventUnitsProduced:        "units_produced",
	EventConstructionStarted:  "construction_started",
	EventConstructionComplete: "construction_complete",
	EventProjectileFired:      "projectile_fired",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return "unknown"
}

// Event reports a state change. Player is the acting side (fleet owner,
// producing owner, attacker) and Opponent the other side where there is one.
// For fleet damage events Player owns the damaged fleet.
type Event struct {
	Type     EventType     `json:"type"`
	At       time.Duration `json:"at"`
	Planet   PlanetID      `json:"planet,omitempty"`
	Fleet    FleetID       `json:"fleet,omitempty"`
	Player   PlayerID      `json:"player"`
	Opponent PlayerID      `json:"opponent"`
	UnitType int           `json:"unit_type"`
	Killed   int           `json:"killed,omitempty"`
	Slot     int           `json:"slot,omitempty"`
	// Units holds produced or reinforcing units.
	Units          Bundle `json:"units,omitempty"`
	AttackerLosses Bundle `json:"attacker_losses,omitempty"`
	DefenderLosses Bundle `json:"defender_losses,omitempty"`
}
