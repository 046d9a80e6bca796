package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/galcon/internal/model"
)

// MatchRepository defines match result operations.
type MatchRepository interface {
	Create(ctx context.Context, m *model.Match) error
	Finish(ctx context.Context, m *model.Match, timeline []model.MatchEvent) error
	SetAborted(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Match, error)
	ListRecent(ctx context.Context, limit int) ([]model.Match, error)
	Timeline(ctx context.Context, id string) ([]model.MatchEvent, error)
}

// MatchCache defines live match operations (Redis).
type MatchCache interface {
	SetSnapshot(ctx context.Context, matchID string, snapshot json.RawMessage) error
	GetSnapshot(ctx context.Context, matchID string) (json.RawMessage, error)
	DeleteSnapshot(ctx context.Context, matchID string) error
	AddLive(ctx context.Context, matchID string) error
	RemoveLive(ctx context.Context, matchID string) error
	LiveMatches(ctx context.Context) ([]string, error)
	RecordWin(ctx context.Context, profile string) error
	Standings(ctx context.Context, limit int64) ([]model.Standing, error)
}
