package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/repository"
)

// LiveReaper drops matches from the live set once their snapshot has expired
// and no local goroutine runs them, which happens when a server dies
// mid-match. It listens for Redis expiry notifications and also sweeps
// periodically in case notifications are disabled.
type LiveReaper struct {
	rdb      *redis.Client
	cache    repository.MatchCache
	svc      *MatchService
	interval time.Duration
}

// NewLiveReaper creates a LiveReaper. A nil rdb disables the keyspace listener.
func NewLiveReaper(rdb *redis.Client, cache repository.MatchCache, svc *MatchService) *LiveReaper {
	return &LiveReaper{rdb: rdb, cache: cache, svc: svc, interval: 30 * time.Second}
}

// Start runs until ctx is done.
func (r *LiveReaper) Start(ctx context.Context) {
	if r.rdb != nil {
		go r.listenKeyspace(ctx)
	}
	r.poll(ctx)
}

func (r *LiveReaper) listenKeyspace(ctx context.Context) {
	pubsub := r.rdb.PSubscribe(ctx, "__keyevent@*__:expired")
	defer pubsub.Close()

	log.Info().Msg("Live reaper listening for expired snapshots")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleExpiry(ctx, msg.Payload)
		}
	}
}

func (r *LiveReaper) poll(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Live reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep removes live matches that are neither running here nor have a snapshot.
func (r *LiveReaper) sweep(ctx context.Context) {
	ids, err := r.cache.LiveMatches(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list live matches")
		return
	}
	for _, id := range ids {
		if r.svc.IsRunning(id) {
			continue
		}
		snap, err := r.cache.GetSnapshot(ctx, id)
		if err != nil || snap != nil {
			continue
		}
		r.reap(ctx, id)
	}
}

// handleExpiry acts only on match snapshot keys.
func (r *LiveReaper) handleExpiry(ctx context.Context, key string) {
	if !strings.HasPrefix(key, "match:") || !strings.HasSuffix(key, ":snapshot") {
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(key, "match:"), ":snapshot")
	if id == "" || r.svc.IsRunning(id) {
		return
	}
	r.reap(ctx, id)
}

func (r *LiveReaper) reap(ctx context.Context, id string) {
	if err := r.cache.RemoveLive(ctx, id); err != nil {
		log.Error().Err(err).Str("matchId", id).Msg("Failed to reap live match")
		return
	}
	log.Info().Str("matchId", id).Msg("Reaped stale live match")
}
