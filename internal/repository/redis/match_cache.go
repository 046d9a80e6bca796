package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/galcon/internal/model"
)

const (
	liveKey      = "matches:live"
	standingsKey = "standings:wins"
)

func snapshotKey(matchID string) string { return "match:" + matchID + ":snapshot" }

// SetSnapshot stores the latest spectator view of a running match.
func (c *Client) SetSnapshot(ctx context.Context, matchID string, snapshot json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(matchID), []byte(snapshot), c.snapshotTTL).Err()
}

// GetSnapshot retrieves the latest snapshot, or nil when there is none.
func (c *Client) GetSnapshot(ctx context.Context, matchID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// DeleteSnapshot removes a match's snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, matchID string) error {
	return c.rdb.Del(ctx, snapshotKey(matchID)).Err()
}

// AddLive adds a match to the set of running matches.
func (c *Client) AddLive(ctx context.Context, matchID string) error {
	return c.rdb.SAdd(ctx, liveKey, matchID).Err()
}

// RemoveLive removes a match from the set of running matches.
func (c *Client) RemoveLive(ctx context.Context, matchID string) error {
	return c.rdb.SRem(ctx, liveKey, matchID).Err()
}

// LiveMatches returns the IDs of running matches.
func (c *Client) LiveMatches(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, liveKey).Result()
	if err != nil {
		return nil, fmt.Errorf("live matches: %w", err)
	}
	return ids, nil
}

// RecordWin increments a planner profile's win count.
func (c *Client) RecordWin(ctx context.Context, profile string) error {
	return c.rdb.ZIncrBy(ctx, standingsKey, 1, profile).Err()
}

// Standings returns the profiles with the most wins, best first. A
// non-positive limit returns all of them.
func (c *Client) Standings(ctx context.Context, limit int64) ([]model.Standing, error) {
	stop := limit - 1
	if limit <= 0 {
		stop = -1
	}
	zs, err := c.rdb.ZRevRangeWithScores(ctx, standingsKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("standings: %w", err)
	}
	out := make([]model.Standing, 0, len(zs))
	for _, z := range zs {
		profile, _ := z.Member.(string)
		out = append(out, model.Standing{Profile: profile, Wins: int64(z.Score)})
	}
	return out, nil
}
