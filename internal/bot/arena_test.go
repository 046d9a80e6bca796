package bot

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/galcon/internal/model"
	"github.com/freeeve/galcon/pkg/galcon"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

type fakeMatchRepo struct {
	created  *model.Match
	finished *model.Match
	timeline []model.MatchEvent
	aborted  []string
}

func (r *fakeMatchRepo) Create(_ context.Context, m *model.Match) error {
	c := *m
	r.created = &c
	return nil
}

func (r *fakeMatchRepo) Finish(_ context.Context, m *model.Match, timeline []model.MatchEvent) error {
	c := *m
	r.finished = &c
	r.timeline = timeline
	return nil
}

func (r *fakeMatchRepo) SetAborted(_ context.Context, id string) error {
	r.aborted = append(r.aborted, id)
	return nil
}

func (r *fakeMatchRepo) FindByID(context.Context, string) (*model.Match, error) { return nil, nil }
func (r *fakeMatchRepo) ListRecent(context.Context, int) ([]model.Match, error) { return nil, nil }
func (r *fakeMatchRepo) Timeline(context.Context, string) ([]model.MatchEvent, error) {
	return r.timeline, nil
}

// mismatchScenario pits a large garrison against a nearly empty planet, so
// player 1 wins with its first attack.
func mismatchScenario() *galcon.Scenario {
	return &galcon.Scenario{
		Name:  "mismatch",
		Tick:  50 * time.Millisecond,
		Units: galcon.Catalog{{Name: "fighter", Attack: 1, Defense: 1, Speed: 100}},
		Planets: []galcon.PlanetSpec{
			{Size: 1, Pos: galcon.Vec2{X: 0, Y: 0}, Owner: 1, Stock: []float64{100}},
			{Size: 1, Pos: galcon.Vec2{X: 200, Y: 0}, Owner: 2, Stock: []float64{1}},
		},
		Players: []galcon.PlayerSpec{
			{ID: 1, Name: "red", Profile: "default"},
			{ID: 2, Name: "blue", Profile: "turtle"},
		},
	}
}

func TestRunMatchDryRun(t *testing.T) {
	cfg := ArenaConfig{
		MatchName:   "test-dry-run",
		MaxDuration: 30 * time.Second,
		Seed:        42,
		DryRun:      true,
	}
	result, err := RunMatch(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("RunMatch failed: %v", err)
	}
	if result.Ticks == 0 {
		t.Error("Expected at least one tick")
	}
	if result.Duration > cfg.MaxDuration {
		t.Errorf("Expected duration <= %v, got %v", cfg.MaxDuration, result.Duration)
	}
	if result.ScenarioHash == "" || result.MatchID == "" {
		t.Error("Expected match ID and scenario hash to be set")
	}
	if len(result.Players) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(result.Players))
	}
	total := 0
	for _, n := range result.PlanetCounts {
		total += n
	}
	if total == 0 || total > 3 {
		t.Errorf("Expected between 1 and 3 owned planets, got %d", total)
	}
	if result.Captures != len(result.Timeline) {
		t.Errorf("Expected one timeline entry per capture, got %d/%d", len(result.Timeline), result.Captures)
	}
}

func TestRunMatchDeterministic(t *testing.T) {
	run := func() *ArenaResult {
		res, err := RunMatch(context.Background(), ArenaConfig{MaxDuration: time.Minute, Seed: 7}, nil)
		if err != nil {
			t.Fatalf("RunMatch failed: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.Winner != b.Winner || a.Ticks != b.Ticks || a.Captures != b.Captures {
		t.Fatalf("Same seed gave different matches: %+v vs %+v", a, b)
	}
	for i := range a.Timeline {
		if a.Timeline[i] != b.Timeline[i] {
			t.Errorf("Timeline entry %d differs: %+v vs %+v", i, a.Timeline[i], b.Timeline[i])
		}
	}
}

func TestSeedPlannerRngReproducesUnseededMatches(t *testing.T) {
	defer ResetPlannerRng()
	run := func() *ArenaResult {
		SeedPlannerRng(11)
		res, err := RunMatch(context.Background(), ArenaConfig{Scenario: mismatchScenario(), MaxDuration: time.Minute}, nil)
		if err != nil {
			t.Fatalf("RunMatch failed: %v", err)
		}
		return res
	}
	a, b := run(), run()
	if a.Seed == 0 || a.Seed != b.Seed {
		t.Fatalf("Expected the same drawn seed, got %d and %d", a.Seed, b.Seed)
	}
	if a.Ticks != b.Ticks || a.Winner != b.Winner {
		t.Errorf("Seeded planner RNG gave different matches: %+v vs %+v", a, b)
	}
}

func TestRunMatchWinnerIsRecorded(t *testing.T) {
	repo := &fakeMatchRepo{}
	var captures []model.MatchEvent
	var snapshots int
	cfg := ArenaConfig{
		MatchID:       "m-1",
		Scenario:      mismatchScenario(),
		MaxDuration:   time.Minute,
		Seed:          1,
		SnapshotEvery: 10,
		OnSnapshot:    func(model.MatchSnapshot) { snapshots++ },
		OnCapture:     func(e model.MatchEvent) { captures = append(captures, e) },
	}
	result, err := RunMatch(context.Background(), cfg, repo)
	if err != nil {
		t.Fatalf("RunMatch failed: %v", err)
	}

	if result.Winner != 1 || result.WinnerProfile != "default" {
		t.Fatalf("Expected player 1 (default) to win, got %d (%s)", result.Winner, result.WinnerProfile)
	}
	if result.Duration >= time.Minute {
		t.Errorf("Expected an early finish, got %v", result.Duration)
	}
	if len(captures) != 1 || captures[0].Planet != 2 || captures[0].Player != 1 || captures[0].Opponent != 2 {
		t.Errorf("Expected one capture of planet 2, got %+v", captures)
	}
	if snapshots == 0 {
		t.Error("Expected snapshots")
	}

	if repo.created == nil || repo.created.Status != model.StatusRunning || repo.created.ID != "m-1" {
		t.Fatalf("Expected running match to be created, got %+v", repo.created)
	}
	if repo.finished == nil {
		t.Fatal("Expected match to be finished")
	}
	if repo.finished.Status != model.StatusFinished || repo.finished.Winner != 1 || repo.finished.FinishedAt == nil {
		t.Errorf("Unexpected finished match %+v", repo.finished)
	}
	if len(repo.timeline) != 1 {
		t.Errorf("Expected 1 timeline event, got %d", len(repo.timeline))
	}
	for _, p := range repo.finished.Players {
		want := 0
		if p.PlayerID == 1 {
			want = 2
		}
		if p.Planets != want {
			t.Errorf("Player %d: expected %d planets, got %d", p.PlayerID, want, p.Planets)
		}
	}
}

func TestRunMatchProfileOverride(t *testing.T) {
	cfg := ArenaConfig{
		Scenario:    mismatchScenario(),
		Profiles:    map[galcon.PlayerID]string{1: "aggressive"},
		MaxDuration: time.Minute,
		Seed:        1,
	}
	result, err := RunMatch(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("RunMatch failed: %v", err)
	}
	if result.Players[0].Profile != "aggressive" || result.Players[1].Profile != "turtle" {
		t.Errorf("Unexpected profiles %+v", result.Players)
	}
}

func TestRunMatchCancelled(t *testing.T) {
	repo := &fakeMatchRepo{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunMatch(ctx, ArenaConfig{MatchID: "m-2", Seed: 1}, repo)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(repo.aborted) != 1 || repo.aborted[0] != "m-2" {
		t.Errorf("Expected match to be marked aborted, got %v", repo.aborted)
	}
	if repo.finished != nil {
		t.Error("Aborted match should not be finished")
	}
}

func TestRunMatchRejectsUnknownProfile(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
		override map[galcon.PlayerID]string
	}{
		{"misspelled in scenario", "agressive", nil},
		{"unknown override", "default", map[galcon.PlayerID]string{2: "cheater"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := mismatchScenario()
			sc.Players[0].Profile = tt.scenario
			repo := &fakeMatchRepo{}
			_, err := RunMatch(context.Background(), ArenaConfig{Scenario: sc, Profiles: tt.override, Seed: 1}, repo)
			if !errors.Is(err, ErrUnknownProfile) {
				t.Fatalf("expected ErrUnknownProfile, got %v", err)
			}
			if repo.created != nil {
				t.Errorf("rejected match should not be stored, got %+v", repo.created)
			}
		})
	}
}

func TestParseProfileConfig(t *testing.T) {
	players := []galcon.PlayerID{1, 2, 3}
	tests := []struct {
		in      string
		want    map[galcon.PlayerID]string
		wantErr bool
	}{
		{"", map[galcon.PlayerID]string{}, false},
		{"*=turtle", map[galcon.PlayerID]string{1: "turtle", 2: "turtle", 3: "turtle"}, false},
		{"1=aggressive, *=builder", map[galcon.PlayerID]string{1: "aggressive", 2: "builder", 3: "builder"}, false},
		{"2=sniper", map[galcon.PlayerID]string{2: "sniper"}, false},
		{"x=sniper", nil, true},
		{"1", nil, true},
		{"0=default", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseProfileConfig(tt.in, players)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProfileConfig(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProfileConfig(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseProfileConfig(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for p, v := range tt.want {
			if got[p] != v {
				t.Errorf("ParseProfileConfig(%q)[%d] = %q, want %q", tt.in, p, got[p], v)
			}
		}
	}
}
