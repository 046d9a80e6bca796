package bot

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/freeeve/galcon/pkg/galcon"
)

// ErrUnknownProfile is returned for a planner profile name not in Profiles.
var ErrUnknownProfile = errors.New("unknown planner profile")

// Settings tunes a planner.
type Settings struct {
	// AttackFraction is the share of production earmarked for attack.
	AttackFraction          float64 `json:"attack_fraction" yaml:"attack_fraction"`
	SurplusDeficitThreshold float64 `json:"surplus_deficit_threshold" yaml:"surplus_deficit_threshold"`
	AttackExtraNeutral      float64 `json:"attack_extra_neutral" yaml:"attack_extra_neutral"`
	AttackExtraEnemy        float64 `json:"attack_extra_enemy" yaml:"attack_extra_enemy"`
	// PerPlanetAttackStrength is reserved and currently unused.
	PerPlanetAttackStrength   float64       `json:"per_planet_attack_strength" yaml:"per_planet_attack_strength"`
	Delay                     time.Duration `json:"delay" yaml:"delay"`
	MaximumBuildingFraction   float64       `json:"maximum_building_fraction" yaml:"maximum_building_fraction"`
	MinimumDefenseForBuilding float64       `json:"minimum_defense_for_building" yaml:"minimum_defense_for_building"`
	DistancePower             float64       `json:"distance_power" yaml:"distance_power"`
}

// DefaultSettings returns a balanced planner.
func DefaultSettings() Settings {
	return Settings{
		AttackFraction:            0.5,
		SurplusDeficitThreshold:   0.2,
		AttackExtraNeutral:        0.1,
		AttackExtraEnemy:          0.3,
		PerPlanetAttackStrength:   1,
		Delay:                     time.Second,
		MaximumBuildingFraction:   0.3,
		MinimumDefenseForBuilding: 10,
		DistancePower:             1,
	}
}

// Validate rejects settings that would make the planner's arithmetic meaningless.
func (s Settings) Validate() error {
	for name, v := range map[string]float64{
		"attack fraction":              s.AttackFraction,
		"surplus deficit threshold":    s.SurplusDeficitThreshold,
		"attack extra neutral":         s.AttackExtraNeutral,
		"attack extra enemy":           s.AttackExtraEnemy,
		"maximum building fraction":    s.MaximumBuildingFraction,
		"minimum defense for building": s.MinimumDefenseForBuilding,
		"distance power":               s.DistancePower,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s is %v", galcon.ErrInvalidSettings, name, v)
		}
	}
	if s.AttackFraction > 1 {
		return fmt.Errorf("%w: attack fraction %v above 1", galcon.ErrInvalidSettings, s.AttackFraction)
	}
	if s.Delay < 0 {
		return fmt.Errorf("%w: negative delay", galcon.ErrInvalidSettings)
	}
	return nil
}

// SettingsForProfile returns the settings for a named planner profile.
func SettingsForProfile(profile string) Settings {
	s := DefaultSettings()
	switch profile {
	case "aggressive":
		s.AttackFraction = 0.75
		s.AttackExtraNeutral = 0.05
		s.AttackExtraEnemy = 0.15
		s.MaximumBuildingFraction = 0.15
		s.Delay = 500 * time.Millisecond
	case "turtle":
		s.AttackFraction = 0.3
		s.AttackExtraEnemy = 0.6
		s.SurplusDeficitThreshold = 0.1
		s.MaximumBuildingFraction = 0.5
		s.MinimumDefenseForBuilding = 5
	case "builder":
		s.MaximumBuildingFraction = 0.6
		s.MinimumDefenseForBuilding = 0
	case "sniper":
		s.DistancePower = 2
		s.AttackExtraNeutral = 0.2
	}
	return s
}

// Profiles lists the known profile names.
func Profiles() []string {
	return []string{"default", "aggressive", "turtle", "builder", "sniper"}
}

// CheckProfile rejects names SettingsForProfile would silently treat as default.
func CheckProfile(name string) error {
	if !slices.Contains(Profiles(), name) {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return nil
}
