package service

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"

	"github.com/freeeve/galcon/internal/model"
)

type mockMatchRepo struct {
	mu        sync.Mutex
	matches   map[string]*model.Match
	timelines map[string][]model.MatchEvent
}

func newMockMatchRepo() *mockMatchRepo {
	return &mockMatchRepo{
		matches:   make(map[string]*model.Match),
		timelines: make(map[string][]model.MatchEvent),
	}
}

func (m *mockMatchRepo) Create(_ context.Context, match *model.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *match
	m.matches[match.ID] = &cp
	return nil
}

func (m *mockMatchRepo) Finish(_ context.Context, match *model.Match, timeline []model.MatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *match
	m.matches[match.ID] = &cp
	m.timelines[match.ID] = timeline
	return nil
}

func (m *mockMatchRepo) SetAborted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[id]; ok {
		match.Status = model.StatusAborted
	}
	return nil
}

func (m *mockMatchRepo) FindByID(_ context.Context, id string) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

func (m *mockMatchRepo) ListRecent(_ context.Context, limit int) ([]model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Match
	for _, match := range m.matches {
		out = append(out, *match)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMatchRepo) Timeline(_ context.Context, id string) ([]model.MatchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timelines[id], nil
}

func (m *mockMatchRepo) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[id]; ok {
		return match.Status
	}
	return ""
}

type mockCache struct {
	mu        sync.Mutex
	snapshots map[string]json.RawMessage
	live      []string
	wins      map[string]int64
	snapSets  int
}

func newMockCache() *mockCache {
	return &mockCache{
		snapshots: make(map[string]json.RawMessage),
		wins:      make(map[string]int64),
	}
}

func (c *mockCache) SetSnapshot(_ context.Context, id string, snap json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[id] = snap
	c.snapSets++
	return nil
}

func (c *mockCache) GetSnapshot(_ context.Context, id string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[id], nil
}

func (c *mockCache) DeleteSnapshot(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, id)
	return nil
}

func (c *mockCache) AddLive(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.live, id) {
		c.live = append(c.live, id)
	}
	return nil
}

func (c *mockCache) RemoveLive(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = slices.DeleteFunc(c.live, func(s string) bool { return s == id })
	return nil
}

func (c *mockCache) LiveMatches(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.live), nil
}

func (c *mockCache) RecordWin(_ context.Context, profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wins[profile]++
	return nil
}

func (c *mockCache) Standings(_ context.Context, limit int64) ([]model.Standing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Standing
	for p, w := range c.wins {
		out = append(out, model.Standing{Profile: p, Wins: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type broadcastEvent struct {
	matchID   string
	eventType string
	data      any
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *recordingBroadcaster) BroadcastMatchEvent(matchID, eventType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{matchID, eventType, data})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.eventType)
	}
	return out
}

func (b *recordingBroadcaster) last() broadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[len(b.events)-1]
}
