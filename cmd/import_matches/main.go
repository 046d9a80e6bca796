// Command import_matches reads the JSON written by "botmatch -dry-run -json"
// and stores the finished matches in Postgres so they show up in the API.
//
// Usage:
//
//	go run ./cmd/botmatch -dry-run -json -n 50 > runs.json
//	go run ./cmd/import_matches --input runs.json --db postgres://...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/bot"
	"github.com/freeeve/galcon/internal/model"
	"github.com/freeeve/galcon/internal/repository"
	"github.com/freeeve/galcon/internal/repository/postgres"
)

// runFile is one document written by botmatch -json. Several documents may
// be concatenated in one input.
type runFile struct {
	Total   int                `json:"total"`
	Errors  int                `json:"errors"`
	Results []*bot.ArenaResult `json:"results"`
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	inputFile := flag.String("input", "", "Path to botmatch JSON output")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	namePrefix := flag.String("name-prefix", "", "Prefix added to imported match names")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal().Msg("--input is required")
	}
	if *dbURL == "" {
		log.Fatal().Msg("--db or DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, *dbURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	repo := postgres.NewMatchRepo(db)

	f, err := os.Open(*inputFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputFile).Msg("Failed to open input")
	}
	defer f.Close()

	results, err := readResults(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}

	imported := 0
	for _, res := range results {
		m := matchFromResult(res, *namePrefix, time.Now())
		if err := importMatch(ctx, repo, m, res.Timeline); err != nil {
			log.Error().Err(err).Str("matchId", res.MatchID).Msg("Import failed")
			continue
		}
		imported++
		log.Info().Str("matchId", m.ID).Str("name", m.Name).Int("captures", m.Captures).Msg("Imported match")
	}
	log.Info().Int("imported", imported).Int("total", len(results)).Msg("Done")
}

// readResults decodes every run document in r, skipping failed runs.
func readResults(r io.Reader) ([]*bot.ArenaResult, error) {
	dec := json.NewDecoder(r)
	var out []*bot.ArenaResult
	for {
		var doc runFile
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("decode run: %w", err)
		}
		for _, res := range doc.Results {
			if res != nil && res.MatchID != "" {
				out = append(out, res)
			}
		}
	}
}

// matchFromResult builds the finished match record for an arena result.
func matchFromResult(res *bot.ArenaResult, namePrefix string, finishedAt time.Time) *model.Match {
	name := res.MatchName
	if namePrefix != "" {
		name = namePrefix + " " + name
	}
	players := make([]model.MatchPlayer, len(res.Players))
	for i, p := range res.Players {
		p.MatchID = res.MatchID
		players[i] = p
	}
	return &model.Match{
		ID:           res.MatchID,
		Name:         name,
		Scenario:     res.Scenario,
		ScenarioHash: res.ScenarioHash,
		Seed:         res.Seed,
		Status:       model.StatusFinished,
		Winner:       int(res.Winner),
		DurationMs:   res.Duration.Milliseconds(),
		Ticks:        res.Ticks,
		Captures:     res.Captures,
		FinishedAt:   &finishedAt,
		Players:      players,
	}
}

func importMatch(ctx context.Context, repo repository.MatchRepository, m *model.Match, timeline []model.MatchEvent) error {
	running := *m
	running.Status = model.StatusRunning
	if err := repo.Create(ctx, &running); err != nil {
		return err
	}
	return repo.Finish(ctx, m, timeline)
}
