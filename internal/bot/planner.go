package bot

import (
	"math/rand"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/freeeve/galcon/pkg/galcon"
)

// clockEpoch anchors the world clock on a time.Time for the rate limiter.
var clockEpoch = time.Unix(0, 0)

// targetEpsilon pads projected defense so empty planets still compare by distance.
const targetEpsilon = 1.0

// powerTolerance absorbs float error when comparing power sums.
const powerTolerance = 1e-9

// Planner is the computer player for one player ID. It keeps an incremental
// view of its planets and two abstract power pools, and turns that view into
// actions at most once per Settings.Delay of game time.
type Planner struct {
	player   galcon.PlayerID
	settings Settings
	rng      *rand.Rand
	limiter  *rate.Limiter
	active   bool

	owned       []galcon.PlanetID
	ownedSet    map[galcon.PlanetID]bool
	attackPool  float64
	defensePool float64
	target      galcon.PlanetID
}

// NewPlanner returns an inactive planner. A nil rng gets a random seed.
func NewPlanner(player galcon.PlayerID, settings Settings, rng *rand.Rand) (*Planner, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = newRand(0)
	}
	limit := rate.Inf
	if settings.Delay > 0 {
		limit = rate.Every(settings.Delay)
	}
	return &Planner{
		player:   player,
		settings: settings,
		rng:      rng,
		limiter:  rate.NewLimiter(limit, 1),
		ownedSet: make(map[galcon.PlanetID]bool),
	}, nil
}

func (p *Planner) Player() galcon.PlayerID  { return p.player }
func (p *Planner) Settings() Settings       { return p.settings }
func (p *Planner) Target() galcon.PlanetID  { return p.target }
func (p *Planner) Active() bool             { return p.active }
func (p *Planner) Activate()                { p.active = true }
func (p *Planner) Deactivate()              { p.active = false }
func (p *Planner) Owned() []galcon.PlanetID { return slices.Clone(p.owned) }

// Pools returns the attack and defense pools.
func (p *Planner) Pools() (attack, defense float64) {
	return p.attackPool, p.defensePool
}

// Init seeds the owned set from the world and splits the current garrison
// between the pools by AttackFraction.
func (p *Planner) Init(w *galcon.World) {
	p.owned = p.owned[:0]
	clear(p.ownedSet)
	p.attackPool, p.defensePool = 0, 0
	p.target = 0
	for _, pl := range w.Planets() {
		if pl.Owner != p.player {
			continue
		}
		p.NotifyPlanetGain(pl.ID)
		p.attackPool += pl.AttackPower(w.Units) * p.settings.AttackFraction
		p.defensePool += pl.DefensePower(w.Units) * (1 - p.settings.AttackFraction)
	}
}

// Update plans if the planner is active and Delay has passed on the world
// clock since the last plan. Otherwise it returns nil.
func (p *Planner) Update(w *galcon.World) []galcon.Action {
	if !p.active {
		return nil
	}
	if !p.limiter.AllowN(clockEpoch.Add(w.Now()), 1) {
		return nil
	}
	return p.Plan(w)
}

// Plan runs one full planning pass: pick a target, rebalance defenses, attack
// and build. Transfers come before builds.
func (p *Planner) Plan(w *galcon.World) []galcon.Action {
	p.target = p.computeTarget(w)
	actions := p.rebalance(w)
	actions = append(actions, p.attack(w)...)
	actions = append(actions, p.build(w)...)

	log.Debug().
		Int("player", int(p.player)).
		Int("target", int(p.target)).
		Int("actions", len(actions)).
		Float64("attackPool", p.attackPool).
		Float64("defensePool", p.defensePool).
		Msg("Planner pass")
	return actions
}

// ownedPlanets resolves the owned set against the world, skipping planets
// that changed hands without a notification.
func (p *Planner) ownedPlanets(w *galcon.World) []*galcon.Planet {
	out := make([]*galcon.Planet, 0, len(p.owned))
	for _, id := range p.owned {
		if pl := w.Planet(id); pl != nil && pl.Owner == p.player {
			out = append(out, pl)
		}
	}
	return out
}

// effectiveDefense is a planet's defense adjusted for fleets en route to it:
// fleets of the planet's owner add their defense, others subtract attack.
func effectiveDefense(w *galcon.World, pl *galcon.Planet) float64 {
	def := pl.DefensePower(w.Units)
	for _, f := range w.FleetsTo(pl.ID) {
		if f.Owner == pl.Owner {
			def += f.DefensePower(w.Units)
		} else {
			def -= f.AttackPower(w.Units)
		}
	}
	return def
}

// nominalSpeed is the speed used to estimate travel time.
func nominalSpeed(w *galcon.World) float64 {
	if len(w.Units) > 0 && w.Units[0].Speed > 0 {
		return w.Units[0].Speed
	}
	return galcon.DefaultFleetSpeed
}
