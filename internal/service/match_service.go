package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/bot"
	"github.com/freeeve/galcon/internal/model"
	"github.com/freeeve/galcon/internal/repository"
	"github.com/freeeve/galcon/pkg/galcon"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotRunning     = errors.New("match is not running")
	ErrTooManyMatches = errors.New("too many matches running")
	ErrUnknownProfile = bot.ErrUnknownProfile
)

// DefaultMaxConcurrent caps simultaneous matches when MatchOptions leaves it unset.
const DefaultMaxConcurrent = 4

// MatchOptions tunes the matches a MatchService starts.
type MatchOptions struct {
	Tick           time.Duration
	MaxDuration    time.Duration
	BroadcastEvery int // ticks between match_tick events
	MaxConcurrent  int
	Realtime       bool
}

// StartRequest describes a match to start. Profiles maps player IDs to
// planner profiles and overrides the scenario's choice.
type StartRequest struct {
	Name     string         `json:"name"`
	Profiles map[int]string `json:"profiles,omitempty"`
	Seed     int64          `json:"seed,omitempty"`
}

// MatchService runs arena matches in the background, persists their results
// and feeds live snapshots to Redis and the spectator hub.
type MatchService struct {
	repo        repository.MatchRepository
	cache       repository.MatchCache
	broadcaster Broadcaster
	scenario    *galcon.Scenario
	opts        MatchOptions

	ctx     context.Context
	cancel  context.CancelFunc
	sem     chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewMatchService creates a MatchService. A nil scenario uses the standard one.
func NewMatchService(repo repository.MatchRepository, cache repository.MatchCache, broadcaster Broadcaster, scenario *galcon.Scenario, opts MatchOptions) *MatchService {
	if scenario == nil {
		scenario = galcon.StandardScenario()
	}
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MatchService{
		repo:        repo,
		cache:       cache,
		broadcaster: broadcaster,
		scenario:    scenario,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		sem:         make(chan struct{}, opts.MaxConcurrent),
		running:     make(map[string]context.CancelFunc),
	}
}

// Scenario returns the scenario new matches start from.
func (s *MatchService) Scenario() *galcon.Scenario { return s.scenario }

// Start launches a match in the background and returns its running record.
func (s *MatchService) Start(ctx context.Context, req StartRequest) (*model.Match, error) {
	profiles := make(map[galcon.PlayerID]string, len(req.Profiles))
	for id, p := range req.Profiles {
		if err := bot.CheckProfile(p); err != nil {
			return nil, err
		}
		profiles[galcon.PlayerID(id)] = p
	}
	for _, ps := range s.scenario.Players {
		if _, ok := profiles[ps.ID]; ok || ps.Profile == "" {
			continue
		}
		if err := bot.CheckProfile(ps.Profile); err != nil {
			return nil, fmt.Errorf("scenario player %d: %w", ps.ID, err)
		}
	}
	hash, err := s.scenario.Fingerprint()
	if err != nil {
		return nil, err
	}

	select {
	case s.sem <- struct{}{}:
	default:
		return nil, ErrTooManyMatches
	}

	id := uuid.New().String()
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	name := req.Name
	if name == "" {
		name = "match " + id[:8]
	}
	match := &model.Match{
		ID:           id,
		Name:         name,
		Scenario:     s.scenario.Name,
		ScenarioHash: hash,
		Seed:         seed,
		Status:       model.StatusRunning,
		CreatedAt:    time.Now(),
	}
	for _, ps := range s.scenario.Players {
		profile := ps.Profile
		if p, ok := profiles[ps.ID]; ok {
			profile = p
		}
		if profile == "" {
			profile = "default"
		}
		match.Players = append(match.Players, model.MatchPlayer{
			MatchID:  id,
			PlayerID: int(ps.ID),
			Name:     ps.Name,
			Profile:  profile,
		})
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()

	if err := s.cache.AddLive(ctx, id); err != nil {
		log.Warn().Err(err).Str("matchId", id).Msg("Failed to mark match live")
	}
	s.broadcaster.BroadcastMatchEvent(id, EventMatchStarted, match)

	cfg := bot.ArenaConfig{
		MatchName:     name,
		MatchID:       id,
		Scenario:      s.scenario,
		Profiles:      profiles,
		MaxDuration:   s.opts.MaxDuration,
		Seed:          seed,
		Realtime:      s.opts.Realtime,
		Tick:          s.opts.Tick,
		SnapshotEvery: s.opts.BroadcastEvery,
		OnSnapshot:    func(snap model.MatchSnapshot) { s.publishSnapshot(runCtx, snap) },
		OnCapture: func(ev model.MatchEvent) {
			s.broadcaster.BroadcastMatchEvent(id, EventPlanetCaptured, ev)
		},
	}

	s.wg.Add(1)
	go s.run(runCtx, cfg)

	log.Info().Str("matchId", id).Str("name", name).Int64("seed", seed).Msg("Match started")
	return match, nil
}

func (s *MatchService) run(ctx context.Context, cfg bot.ArenaConfig) {
	defer s.wg.Done()
	defer func() { <-s.sem }()
	defer s.forget(cfg.MatchID)

	result, err := bot.RunMatch(ctx, cfg, s.repo)

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.RemoveLive(cleanupCtx, cfg.MatchID); err != nil {
		log.Warn().Err(err).Str("matchId", cfg.MatchID).Msg("Failed to remove live match")
	}
	if err := s.cache.DeleteSnapshot(cleanupCtx, cfg.MatchID); err != nil {
		log.Warn().Err(err).Str("matchId", cfg.MatchID).Msg("Failed to delete match snapshot")
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Str("matchId", cfg.MatchID).Msg("Match cancelled")
		} else {
			log.Error().Err(err).Str("matchId", cfg.MatchID).Msg("Match failed")
		}
		s.broadcaster.BroadcastMatchEvent(cfg.MatchID, EventMatchEnded, map[string]any{
			"status": model.StatusAborted,
		})
		return
	}

	if result.Winner != galcon.Neutral {
		if err := s.cache.RecordWin(cleanupCtx, result.WinnerProfile); err != nil {
			log.Warn().Err(err).Str("matchId", cfg.MatchID).Msg("Failed to record win")
		}
	}
	s.broadcaster.BroadcastMatchEvent(cfg.MatchID, EventMatchEnded, map[string]any{
		"status":         model.StatusFinished,
		"winner":         int(result.Winner),
		"winner_profile": result.WinnerProfile,
		"duration_ms":    result.Duration.Milliseconds(),
		"ticks":          result.Ticks,
		"captures":       result.Captures,
		"players":        result.Players,
	})
}

func (s *MatchService) publishSnapshot(ctx context.Context, snap model.MatchSnapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Str("matchId", snap.MatchID).Msg("Failed to marshal snapshot")
		return
	}
	if err := s.cache.SetSnapshot(ctx, snap.MatchID, data); err != nil {
		log.Debug().Err(err).Str("matchId", snap.MatchID).Msg("Failed to store snapshot")
	}
	s.broadcaster.BroadcastMatchEvent(snap.MatchID, EventMatchTick, snap)
}

func (s *MatchService) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.running[id]; ok {
		cancel()
		delete(s.running, id)
	}
}

// IsRunning reports whether this service is running the match.
func (s *MatchService) IsRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// Cancel stops a running match. It is recorded as aborted.
func (s *MatchService) Cancel(id string) error {
	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	cancel()
	return nil
}

// Wait blocks until every running match has ended.
func (s *MatchService) Wait() {
	s.wg.Wait()
}

// Close cancels running matches and waits for them to be recorded.
func (s *MatchService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Get returns a match with its players.
func (s *MatchService) Get(ctx context.Context, id string) (*model.Match, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMatchNotFound
	}
	return m, nil
}

// List returns recent matches, newest first.
func (s *MatchService) List(ctx context.Context, limit int) ([]model.Match, error) {
	return s.repo.ListRecent(ctx, limit)
}

// Timeline returns the capture timeline of a match.
func (s *MatchService) Timeline(ctx context.Context, id string) ([]model.MatchEvent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, id)
}

// Snapshot returns the latest live view of a running match.
func (s *MatchService) Snapshot(ctx context.Context, id string) (json.RawMessage, error) {
	snap, err := s.cache.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNotRunning
	}
	return snap, nil
}

// LiveMatches returns the IDs of matches currently running.
func (s *MatchService) LiveMatches(ctx context.Context) ([]string, error) {
	return s.cache.LiveMatches(ctx)
}

// Standings returns the planner profiles with the most wins.
func (s *MatchService) Standings(ctx context.Context, limit int64) ([]model.Standing, error) {
	return s.cache.Standings(ctx, limit)
}
