//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"slices"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/freeeve/galcon/internal/testutil"
)

var testRDB *goredis.Client

func setup(t *testing.T) *Client {
	t.Helper()
	if testRDB == nil {
		testRDB = testutil.SetupRedis(t)
	}
	testutil.CleanupRedis(t, testRDB)
	return NewClientFromPool(testRDB)
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	snap := json.RawMessage(`{"match_id":"m1","tick":20,"planets":[{"id":1,"owner":2}]}`)
	if err := c.SetSnapshot(ctx, "m1", snap); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}

	got, err := c.GetSnapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	var fetched map[string]any
	if err := json.Unmarshal(got, &fetched); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fetched["tick"].(float64) != 20 {
		t.Fatalf("snapshot round-trip failed: %s", string(got))
	}

	ttl := testRDB.TTL(ctx, snapshotKey("m1")).Val()
	if ttl <= 0 || ttl > DefaultSnapshotTTL {
		t.Fatalf("expected ttl within %v, got %v", DefaultSnapshotTTL, ttl)
	}

	if err := c.DeleteSnapshot(ctx, "m1"); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	got, err = c.GetSnapshot(ctx, "m1")
	if err != nil {
		t.Fatalf("get deleted snapshot: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after delete")
	}
}

func TestSnapshotExpires(t *testing.T) {
	c := setup(t)
	c.snapshotTTL = 50 * time.Millisecond
	ctx := context.Background()

	if err := c.SetSnapshot(ctx, "m2", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	got, err := c.GetSnapshot(ctx, "m2")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if got != nil {
		t.Fatal("expected snapshot to expire")
	}
}

func TestLiveMatches(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	c.AddLive(ctx, "m1")
	c.AddLive(ctx, "m2")
	c.AddLive(ctx, "m1")

	ids, err := c.LiveMatches(ctx)
	if err != nil {
		t.Fatalf("live matches: %v", err)
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []string{"m1", "m2"}) {
		t.Fatalf("expected [m1 m2], got %v", ids)
	}

	c.RemoveLive(ctx, "m1")
	ids, _ = c.LiveMatches(ctx)
	if !slices.Equal(ids, []string{"m2"}) {
		t.Fatalf("expected [m2], got %v", ids)
	}
}

func TestStandings(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	for _, p := range []string{"aggressive", "turtle", "aggressive", "sniper", "aggressive", "turtle"} {
		if err := c.RecordWin(ctx, p); err != nil {
			t.Fatalf("record win: %v", err)
		}
	}

	all, err := c.Standings(ctx, 0)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(all))
	}
	if all[0].Profile != "aggressive" || all[0].Wins != 3 || all[1].Profile != "turtle" || all[1].Wins != 2 {
		t.Fatalf("unexpected standings %+v", all)
	}

	top, err := c.Standings(ctx, 1)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(top) != 1 || top[0].Profile != "aggressive" {
		t.Fatalf("expected only the leader, got %+v", top)
	}
}

func TestStandingsEmpty(t *testing.T) {
	c := setup(t)
	got, err := c.Standings(context.Background(), 10)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no standings, got %+v", got)
	}
}
