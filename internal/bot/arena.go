package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/model"
	"github.com/freeeve/galcon/internal/repository"
	"github.com/freeeve/galcon/pkg/galcon"
)

// Match defaults used when neither the config nor the scenario sets them.
const (
	DefaultTick        = 50 * time.Millisecond
	DefaultMaxDuration = 20 * time.Minute
)

// ArenaConfig configures a single AI-vs-AI match.
type ArenaConfig struct {
	MatchName   string
	MatchID     string                     // generated when empty
	Scenario    *galcon.Scenario           // nil = standard scenario
	Profiles    map[galcon.PlayerID]string // player -> planner profile, overrides the scenario
	MaxDuration time.Duration              // draw after this much game time
	Seed        int64                      // 0 = random
	DryRun      bool                       // skip DB writes
	Realtime    bool                       // pace ticks to the wall clock for spectators
	Tick        time.Duration

	// SnapshotEvery calls OnSnapshot every n ticks. Zero disables snapshots.
	SnapshotEvery int
	OnSnapshot    func(model.MatchSnapshot)
	// OnCapture is called for every planet that changes hands.
	OnCapture func(model.MatchEvent)
}

// ArenaResult describes the outcome of a completed match.
type ArenaResult struct {
	MatchID       string                  `json:"match_id"`
	MatchName     string                  `json:"match_name"`
	Scenario      string                  `json:"scenario"`
	ScenarioHash  string                  `json:"scenario_hash"`
	Seed          int64                   `json:"seed"`
	Winner        galcon.PlayerID         `json:"winner"` // 0 = draw
	WinnerProfile string                  `json:"winner_profile"`
	Duration      time.Duration           `json:"duration"`
	Ticks         int                     `json:"ticks"`
	Captures      int                     `json:"captures"`
	PlanetCounts  map[galcon.PlayerID]int `json:"planet_counts"`
	Players       []model.MatchPlayer     `json:"players"`
	Timeline      []model.MatchEvent      `json:"timeline"`
}

// RunMatch plays a match between planners until one player is left or the
// time limit is reached, saving the result to Postgres. Pass a nil repo for
// dry-run mode.
func RunMatch(ctx context.Context, cfg ArenaConfig, repo repository.MatchRepository) (*ArenaResult, error) {
	if cfg.Scenario == nil {
		cfg.Scenario = galcon.StandardScenario()
	}
	tick := firstPositive(cfg.Tick, cfg.Scenario.Tick, DefaultTick)
	maxDuration := firstPositive(cfg.MaxDuration, cfg.Scenario.MaxDuration, DefaultMaxDuration)
	if cfg.MatchID == "" {
		cfg.MatchID = uuid.New().String()
	}
	if cfg.Seed == 0 {
		cfg.Seed = randomSeed()
	}
	if repo == nil {
		cfg.DryRun = true
	}

	hash, err := cfg.Scenario.Fingerprint()
	if err != nil {
		return nil, err
	}
	w, err := cfg.Scenario.Build()
	if err != nil {
		return nil, fmt.Errorf("build scenario: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	result := &ArenaResult{
		MatchID:      cfg.MatchID,
		MatchName:    cfg.MatchName,
		Scenario:     cfg.Scenario.Name,
		ScenarioHash: hash,
		Seed:         cfg.Seed,
		PlanetCounts: make(map[galcon.PlayerID]int),
	}
	planners := make([]*Planner, 0, len(cfg.Scenario.Players))
	for _, ps := range cfg.Scenario.Players {
		profile := cfg.profileFor(ps)
		if err := CheckProfile(profile); err != nil {
			return nil, fmt.Errorf("player %d: %w", ps.ID, err)
		}
		pl, err := NewPlanner(ps.ID, SettingsForProfile(profile), rand.New(rand.NewSource(rng.Int63())))
		if err != nil {
			return nil, fmt.Errorf("planner for player %d: %w", ps.ID, err)
		}
		pl.Init(w)
		pl.Activate()
		planners = append(planners, pl)
		result.Players = append(result.Players, model.MatchPlayer{
			MatchID:  cfg.MatchID,
			PlayerID: int(ps.ID),
			Name:     ps.Name,
			Profile:  profile,
		})
	}

	match := &model.Match{
		ID:           cfg.MatchID,
		Name:         cfg.MatchName,
		Scenario:     cfg.Scenario.Name,
		ScenarioHash: hash,
		Seed:         cfg.Seed,
		Status:       model.StatusRunning,
		Players:      result.Players,
	}
	if match.Name == "" {
		match.Name = "match"
		result.MatchName = match.Name
	}
	if !cfg.DryRun {
		if err := repo.Create(ctx, match); err != nil {
			return nil, fmt.Errorf("create match: %w", err)
		}
	}

	var pace *time.Ticker
	if cfg.Realtime {
		pace = time.NewTicker(tick)
		defer pace.Stop()
	}

	for w.Now() < maxDuration {
		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace.C:
			}
		}
		if ctx.Err() != nil {
			abort(cfg, repo)
			return nil, ctx.Err()
		}

		events := w.Tick(tick)
		result.Ticks++
		for _, ev := range events {
			for _, pl := range planners {
				pl.Observe(ev, w.Units)
			}
			if ev.Type == galcon.EventPlanetCaptured {
				me := timelineEvent(ev)
				result.Captures++
				result.Timeline = append(result.Timeline, me)
				if cfg.OnCapture != nil {
					cfg.OnCapture(me)
				}
			}
		}

		for _, pl := range planners {
			for _, a := range pl.Update(w) {
				if _, err := w.Apply(pl.Player(), a); err != nil {
					log.Debug().Err(err).Str("matchId", cfg.MatchID).Int("player", int(pl.Player())).Msg("Action rejected")
				}
			}
		}

		if cfg.SnapshotEvery > 0 && cfg.OnSnapshot != nil && result.Ticks%cfg.SnapshotEvery == 0 {
			cfg.OnSnapshot(Snapshot(cfg.MatchID, result.Ticks, w))
		}

		if winner, over := matchOver(w); over {
			result.Winner = winner
			break
		}
	}

	result.Duration = w.Now()
	for i := range result.Players {
		id := galcon.PlayerID(result.Players[i].PlayerID)
		n := w.PlanetCount(id)
		result.PlanetCounts[id] = n
		result.Players[i].Planets = n
		if id == result.Winner {
			result.WinnerProfile = result.Players[i].Profile
		}
	}

	if !cfg.DryRun {
		now := time.Now()
		match.Status = model.StatusFinished
		match.Winner = int(result.Winner)
		match.DurationMs = result.Duration.Milliseconds()
		match.Ticks = result.Ticks
		match.Captures = result.Captures
		match.FinishedAt = &now
		match.Players = result.Players
		if err := repo.Finish(ctx, match, result.Timeline); err != nil {
			return nil, fmt.Errorf("finish match: %w", err)
		}
	}

	if result.Winner == galcon.Neutral {
		log.Info().Str("matchId", cfg.MatchID).Dur("duration", result.Duration).Msg("Arena match ended as draw")
	} else {
		log.Info().Str("matchId", cfg.MatchID).Int("winner", int(result.Winner)).Str("profile", result.WinnerProfile).Dur("duration", result.Duration).Msg("Arena match won")
	}
	return result, nil
}

// abort marks an interrupted match. The request context is already done, so
// a fresh one is used.
func abort(cfg ArenaConfig, repo repository.MatchRepository) {
	if cfg.DryRun {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.SetAborted(ctx, cfg.MatchID); err != nil {
		log.Warn().Err(err).Str("matchId", cfg.MatchID).Msg("Failed to mark match aborted")
	}
}

func (cfg ArenaConfig) profileFor(ps galcon.PlayerSpec) string {
	if p, ok := cfg.Profiles[ps.ID]; ok && p != "" {
		return p
	}
	if ps.Profile != "" {
		return ps.Profile
	}
	return "default"
}

// matchOver reports whether at most one player still owns planets or fleets.
func matchOver(w *galcon.World) (galcon.PlayerID, bool) {
	switch players := w.Players(); len(players) {
	case 0:
		return galcon.Neutral, true
	case 1:
		return players[0], true
	default:
		return galcon.Neutral, false
	}
}

func timelineEvent(ev galcon.Event) model.MatchEvent {
	return model.MatchEvent{
		AtMs:     ev.At.Milliseconds(),
		Type:     ev.Type.String(),
		Planet:   int(ev.Planet),
		Player:   int(ev.Player),
		Opponent: int(ev.Opponent),
	}
}

// Snapshot captures the spectator view of a world.
func Snapshot(matchID string, tick int, w *galcon.World) model.MatchSnapshot {
	s := model.MatchSnapshot{
		MatchID: matchID,
		AtMs:    w.Now().Milliseconds(),
		Tick:    tick,
		Planets: make([]model.PlanetView, 0, len(w.Planets())),
		Fleets:  make([]model.FleetView, 0, len(w.Fleets())),
	}
	for _, p := range w.Planets() {
		buildings := 0
		for _, b := range p.Slots {
			if b.Exists() {
				buildings++
			}
		}
		s.Planets = append(s.Planets, model.PlanetView{
			ID:           int(p.ID),
			Owner:        int(p.Owner),
			Size:         p.Size,
			X:            p.Pos.X,
			Y:            p.Pos.Y,
			Units:        p.Stock.WholeTotal(),
			Defense:      p.DefensePower(w.Units),
			Buildings:    buildings,
			Constructing: p.Constructing(),
		})
	}
	for _, f := range w.Fleets() {
		s.Fleets = append(s.Fleets, model.FleetView{
			ID:    int(f.ID),
			Owner: int(f.Owner),
			Type:  f.Type,
			Count: f.Count,
			X:     f.Pos.X,
			Y:     f.Pos.Y,
			Dest:  int(f.Dest),
		})
	}
	return s
}

// ParseProfileConfig parses "1=aggressive,*=turtle" into per-player
// profiles for the given players. "*" sets the default for unlisted players.
func ParseProfileConfig(s string, players []galcon.PlayerID) (map[galcon.PlayerID]string, error) {
	cfg := make(map[galcon.PlayerID]string)
	if s == "" {
		return cfg, nil
	}

	def := ""
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok || val == "" {
			return nil, fmt.Errorf("bad profile entry %q", part)
		}
		if key == "*" {
			def = val
			continue
		}
		id, err := strconv.Atoi(key)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad player id %q", key)
		}
		cfg[galcon.PlayerID(id)] = val
	}

	if def != "" {
		for _, p := range players {
			if _, ok := cfg[p]; !ok {
				cfg[p] = def
			}
		}
	}
	return cfg, nil
}

func firstPositive(ds ...time.Duration) time.Duration {
	for _, d := range ds {
		if d > 0 {
			return d
		}
	}
	return 0
}
