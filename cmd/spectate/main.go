// Command spectate follows a match on a running galcon server and prints its
// events. With -start (and an operator key) it starts the match first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/client"
	"github.com/freeeve/galcon/internal/model"
)

func main() {
	url := flag.String("url", "http://localhost:8011", "server base URL")
	matchID := flag.String("match", "", "match to follow (default: first live match)")
	start := flag.Bool("start", false, "start a new match (requires -key)")
	key := flag.String("key", os.Getenv("OPERATOR_KEY"), "operator key")
	name := flag.String("name", "spectator", "display name")
	seed := flag.Int64("seed", 0, "seed for a started match (0 = random)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	c := client.New(*url)
	var err error
	if *start {
		err = c.LoginOperator(ctx, *name, *key)
	} else {
		err = c.LoginSpectator(ctx, *name)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	id := *matchID
	switch {
	case *start:
		m, err := c.StartMatch(ctx, "", nil, *seed)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start match")
		}
		id = m.ID
		log.Info().Str("matchId", id).Int64("seed", m.Seed).Msg("Match started")
	case id == "":
		live, err := c.LiveMatches(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list live matches")
		}
		if len(live) == 0 {
			log.Fatal().Msg("No live matches")
		}
		id = live[0]
	}

	if err := c.ConnectWS(ctx); err != nil {
		log.Fatal().Err(err).Msg("WebSocket connection failed")
	}
	defer c.CloseWS()
	if err := c.Subscribe(id); err != nil {
		log.Fatal().Err(err).Msg("Subscribe failed")
	}
	log.Info().Str("matchId", id).Msg("Watching match")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.Events():
			if !ok {
				log.Warn().Msg("Connection closed")
				return
			}
			if done := report(ev); done {
				return
			}
		}
	}
}

// report logs one event and reports whether the match is over.
func report(ev client.Event) bool {
	switch ev.Type {
	case "snapshot", "match_tick":
		var snap model.MatchSnapshot
		if err := json.Unmarshal(ev.Data, &snap); err != nil {
			return false
		}
		owned := make(map[int]int)
		for _, p := range snap.Planets {
			owned[p.Owner]++
		}
		log.Info().Int("tick", snap.Tick).Int64("atMs", snap.AtMs).Int("fleets", len(snap.Fleets)).Interface("planets", owned).Msg("Tick")
	case "planet_captured":
		var e model.MatchEvent
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			return false
		}
		log.Info().Int("planet", e.Planet).Int("by", e.Player).Int("from", e.Opponent).Int64("atMs", e.AtMs).Msg("Planet captured")
	case "match_ended":
		log.Info().RawJSON("result", ev.Data).Msg("Match ended")
		return true
	default:
		log.Debug().Str("type", ev.Type).Msg("Event")
	}
	return false
}
