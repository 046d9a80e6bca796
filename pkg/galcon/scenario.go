package galcon

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"lukechampine.com/blake3"
)

// Scenario describes a starting position: static tables, planets and players.
type Scenario struct {
	Name        string         `yaml:"name"`
	Tick        time.Duration  `yaml:"tick,omitempty"`
	MaxDuration time.Duration  `yaml:"max_duration,omitempty"`
	Units       Catalog        `yaml:"units"`
	Buildings   []BuildingSpec `yaml:"buildings,omitempty"`
	PlanetTypes []PlanetType   `yaml:"planet_types,omitempty"`
	Planets     []PlanetSpec   `yaml:"planets"`
	Players     []PlayerSpec   `yaml:"players"`
}

// BuildingSpec is the file form of a BuildingDef. At most one of Produce and
// Fire may be set.
type BuildingSpec struct {
	Name      string        `yaml:"name"`
	BuildTime time.Duration `yaml:"build_time,omitempty"`
	Cooldown  time.Duration `yaml:"cooldown,omitempty"`
	Range     float64       `yaml:"range,omitempty"`
	Produce   *ProduceSpec  `yaml:"produce,omitempty"`
	Fire      *FireSpec     `yaml:"fire,omitempty"`
}

type ProduceSpec struct {
	Unit     int           `yaml:"unit"`
	Interval time.Duration `yaml:"interval"`
}

type FireSpec struct {
	Kind            string    `yaml:"kind"`
	Params          []float64 `yaml:"params"`
	SpeedMultiplier float64   `yaml:"speed_multiplier,omitempty"`
}

// PlanetSpec places one planet. Difficulty sets a neutral garrison; Stock
// sets the starting units of an owned planet.
type PlanetSpec struct {
	Size       float64   `yaml:"size"`
	Pos        Vec2      `yaml:"pos"`
	Type       int       `yaml:"type,omitempty"`
	Owner      PlayerID  `yaml:"owner,omitempty"`
	Rates      []float64 `yaml:"rates,omitempty"`
	Stock      []float64 `yaml:"stock,omitempty"`
	Difficulty float64   `yaml:"difficulty,omitempty"`
	Buildings  []int     `yaml:"buildings,omitempty"`
}

// PlayerSpec names a player and the planner profile that controls it.
type PlayerSpec struct {
	ID      PlayerID `yaml:"id"`
	Name    string   `yaml:"name"`
	Profile string   `yaml:"profile,omitempty"`
}

// Def converts the building entry into a definition, filling defaults.
func (b BuildingSpec) Def() (BuildingDef, error) {
	d := BuildingDef{
		Name:      b.Name,
		BuildTime: b.BuildTime,
		Cooldown:  b.Cooldown,
		Range:     b.Range,
	}
	if d.BuildTime == 0 {
		d.BuildTime = DefaultBuildTime
	}
	if d.Cooldown == 0 {
		d.Cooldown = DefaultCooldown
	}
	if d.Range == 0 {
		d.Range = DefaultRange
	}
	switch {
	case b.Produce != nil && b.Fire != nil:
		return BuildingDef{}, fmt.Errorf("%w: building %q has two effects", ErrInvalidScenario, b.Name)
	case b.Produce != nil:
		d.Effect = ProduceEffect{UnitType: b.Produce.Unit, Interval: b.Produce.Interval}
	case b.Fire != nil:
		d.Effect = FireEffect{Kind: b.Fire.Kind, Params: b.Fire.Params, SpeedMultiplier: b.Fire.SpeedMultiplier}
	}
	return d, nil
}

// LoadScenario decodes a YAML scenario, rejecting unknown fields.
func LoadScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarioFile reads a scenario from disk.
func LoadScenarioFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// Build creates a world in the scenario's starting position.
func (s *Scenario) Build() (*World, error) {
	defs := make([]BuildingDef, len(s.Buildings))
	for i, b := range s.Buildings {
		d, err := b.Def()
		if err != nil {
			return nil, err
		}
		defs[i] = d
	}
	w, err := NewWorld(s.Units, defs, s.PlanetTypes)
	if err != nil {
		return nil, err
	}

	for i, ps := range s.Planets {
		p, err := w.AddPlanet(ps.Size, ps.Pos, ps.Type)
		if err != nil {
			return nil, fmt.Errorf("planet %d: %w", i+1, err)
		}
		if ps.Owner != Neutral && !s.hasPlayer(ps.Owner) {
			return nil, fmt.Errorf("%w: planet %d owned by undeclared player %d", ErrInvalidScenario, i+1, ps.Owner)
		}
		p.Owner = ps.Owner
		for t, r := range ps.Rates {
			if err := p.SetRate(t, r); err != nil {
				return nil, fmt.Errorf("planet %d: %w", i+1, err)
			}
		}
		for t, n := range ps.Stock {
			if err := p.AddUnits(t, n); err != nil {
				return nil, fmt.Errorf("planet %d: %w", i+1, err)
			}
		}
		p.SetDifficulty(ps.Difficulty)
		for _, def := range ps.Buildings {
			if _, err := w.PlaceBuilding(p.ID, def); err != nil {
				return nil, fmt.Errorf("planet %d: %w", i+1, err)
			}
		}
	}
	return w, nil
}

func (s *Scenario) hasPlayer(id PlayerID) bool {
	for _, p := range s.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Fingerprint is the hex BLAKE3-256 digest of the scenario's canonical YAML
// encoding. Two scenarios with the same fingerprint start identically.
func (s *Scenario) Fingerprint() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode scenario: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// StandardScenario is the classic three-planet opening: ten unit classes of
// increasing strength, a factory and a turret, two players and one neutral
// planet between them.
func StandardScenario() *Scenario {
	units := make(Catalog, 10)
	for i := range units {
		v := float64(i + 1)
		units[i] = UnitType{
			Name:              fmt.Sprintf("class-%d", i+1),
			Attack:            v,
			Defense:           v,
			Speed:             DefaultFleetSpeed,
			InterceptRange:    80,
			InterceptDamage:   0.25 * v,
			InterceptCooldown: time.Second,
		}
	}
	return &Scenario{
		Name:        "standard",
		Tick:        50 * time.Millisecond,
		MaxDuration: 20 * time.Minute,
		Units:       units,
		Buildings: []BuildingSpec{
			{
				Name:      "factory",
				BuildTime: 10 * time.Second,
				Cooldown:  2 * time.Second,
				Range:     DefaultRange,
				Produce:   &ProduceSpec{Unit: 1, Interval: 5 * time.Second},
			},
			{
				Name:      "turret",
				BuildTime: 5 * time.Second,
				Cooldown:  2 * time.Second,
				Range:     300,
				Fire:      &FireSpec{Kind: "damage", Params: []float64{3}, SpeedMultiplier: 1},
			},
		},
		PlanetTypes: []PlanetType{
			{Name: "terran", Buildings: []int{0, 1}},
			{Name: "gas giant", DamageMultiplier: 1.5, FuelPerSize: 500, Buildings: []int{0}},
		},
		Planets: []PlanetSpec{
			{Size: 1.2, Pos: Vec2{200, 200}, Type: 1, Owner: 2, Rates: []float64{1}, Stock: []float64{10}},
			{Size: 0.6, Pos: Vec2{750, 550}, Type: 0, Owner: 1, Rates: []float64{1}, Stock: []float64{10}},
			{Size: 1.0, Pos: Vec2{1000, 900}, Type: 0, Rates: []float64{1}, Difficulty: 30},
		},
		Players: []PlayerSpec{
			{ID: 1, Name: "red", Profile: "default"},
			{ID: 2, Name: "blue", Profile: "default"},
		},
	}
}
