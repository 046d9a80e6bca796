package service

import (
	"context"
	"encoding/json"
	"slices"
	"testing"
	"time"
)

func TestReaperSweep(t *testing.T) {
	f := newFixture(t, nil, MatchOptions{Realtime: true, Tick: time.Second})
	ctx := context.Background()

	running, err := f.svc.Start(ctx, StartRequest{Seed: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.cache.AddLive(ctx, "orphan")
	f.cache.AddLive(ctx, "remote")
	f.cache.SetSnapshot(ctx, "remote", json.RawMessage(`{}`))

	r := NewLiveReaper(nil, f.cache, f.svc)
	r.sweep(ctx)

	live, _ := f.cache.LiveMatches(ctx)
	slices.Sort(live)
	want := []string{running.ID, "remote"}
	slices.Sort(want)
	if !slices.Equal(live, want) {
		t.Fatalf("expected %v after sweep, got %v", want, live)
	}
}

func TestReaperHandleExpiry(t *testing.T) {
	f := newFixture(t, nil, MatchOptions{Realtime: true, Tick: time.Second})
	ctx := context.Background()

	running, err := f.svc.Start(ctx, StartRequest{Seed: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.cache.AddLive(ctx, "dead")
	r := NewLiveReaper(nil, f.cache, f.svc)

	r.handleExpiry(ctx, "game:dead:timer")
	r.handleExpiry(ctx, "match:"+running.ID+":snapshot")
	if live, _ := f.cache.LiveMatches(ctx); len(live) != 2 {
		t.Fatalf("expected both matches still live, got %v", live)
	}

	r.handleExpiry(ctx, "match:dead:snapshot")
	live, _ := f.cache.LiveMatches(ctx)
	if !slices.Equal(live, []string{running.ID}) {
		t.Fatalf("expected only %s live, got %v", running.ID, live)
	}
}
