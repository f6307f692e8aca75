// Package config loads the server's listen address, persistence DSNs,
// and gameplay timings via flag + env override, in the teacher's
// idiom (cmd/pokersrv/main.go's flag.StringVar block, plus an env
// override for the one value operators most often script around —
// there the RNG seed, here the same knob this server also exposes).
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved set of knobs cmd/okeysrv needs to
// start listening. Out of scope (per spec.md's config non-goal) is
// designing a config *file* format; this only loads flags plus a
// handful of env overrides.
//
// TurnDuration, ReconnectWindow, RakeRatePercent, RakeCapChips,
// SQLitePath and DeckSeed are parsed here, but cmd/okeysrv does not
// pass them on: the turn timer, the reconnect window, the settlement
// rake and the shuffle seed come from their own packages' constants.
type Config struct {
	Host       string
	Port       int
	PortFile   string
	DebugLevel string

	PostgresDSN string
	SQLitePath  string

	TurnDuration    time.Duration
	ReconnectWindow time.Duration
	RakeRatePercent float64
	RakeCapChips    int64
	LeaderboardSync time.Duration
	DeckSeed        int64 // 0 = random, grounded on the teacher's -seed flag
}

// Load registers flags on flag.CommandLine, calls flag.Parse, and
// applies the OKEYSRV_SEED env override the same way the teacher's
// main.go honors POKER_SEED after flag.Parse.
func Load() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.Host, "host", "127.0.0.1", "Host to listen on")
	flag.IntVar(&cfg.Port, "port", 0, "Port to listen on (0 for random free port)")
	flag.StringVar(&cfg.PortFile, "portfile", "", "If set, write selected port to this file")
	flag.StringVar(&cfg.DebugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error")

	flag.StringVar(&cfg.PostgresDSN, "postgres", "", "Postgres DSN for users/game-history/chip-transactions")
	flag.StringVar(&cfg.SQLitePath, "sqlite", "", "Path to SQLite database file for room snapshots (created if missing)")

	turnSeconds := flag.Int("turnseconds", 30, "Seconds allotted per turn before auto-play")
	reconnectSeconds := flag.Int("reconnectseconds", 30, "Seconds a disconnected player may reconnect within")
	flag.Float64Var(&cfg.RakeRatePercent, "rakepercent", 5.0, "House rake percentage of the pot")
	flag.Int64Var(&cfg.RakeCapChips, "rakecap", 10_000, "Maximum rake in chips, regardless of pot size")
	leaderboardSyncSeconds := flag.Int("leaderboardsyncseconds", 60, "Leaderboard reconciler interval in seconds")
	flag.Int64Var(&cfg.DeckSeed, "seed", 0, "Deterministic RNG seed for shuffles (0 = random)")

	flag.Parse()

	cfg.TurnDuration = time.Duration(*turnSeconds) * time.Second
	cfg.ReconnectWindow = time.Duration(*reconnectSeconds) * time.Second
	cfg.LeaderboardSync = time.Duration(*leaderboardSyncSeconds) * time.Second

	if cfg.DeckSeed == 0 {
		if env := os.Getenv("OKEYSRV_SEED"); env != "" {
			v, err := strconv.ParseInt(env, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid OKEYSRV_SEED: %w", err)
			}
			cfg.DeckSeed = v
		}
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = os.Getenv("OKEYSRV_POSTGRES_DSN")
	}

	return cfg, nil
}
