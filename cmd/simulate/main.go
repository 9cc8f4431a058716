package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/mahjic/internal/simulate"
)

// Default configuration constants.
const (
	defaultSessions    = 500
	defaultPlayers     = 40
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	defaultHouseChance = 0.1
	defaultRating      = 1500
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		apiKey   = flag.String("key", os.Getenv("MAHJIC_SIM_API_KEY"), "API key of an approved source")
		sessions = flag.Int("sessions", defaultSessions, "Sessions to submit")
		players  = flag.Int("players", defaultPlayers, "Size of the player pool")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		game     = flag.String("game", simulate.GameMixed, "social, league, tournament or mixed")
		house    = flag.Float64("house", defaultHouseChance, "Chance a four-seat round seats the house")
		houseID  = flag.String("house-email", "bob@mahjic.org", "Email of the house seat")
		rating   = flag.Float64("starting-rating", defaultRating, "Rating the service gives new players")
		seed     = flag.Uint64("seed", 0, "Random seed, 0 for random")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Write generated sessions to this JSON file")
		logFile  = flag.String("log", "", "Also write logs to this file")
		asJSON   = flag.Bool("json", false, "Log as JSON")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile, *asJSON)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:          *baseURL,
		APIKey:           *apiKey,
		Sessions:         *sessions,
		Players:          *players,
		Workers:          *workers,
		Timeout:          *timeout,
		GameType:         *game,
		HouseEmail:       *houseID,
		HouseProbability: *house,
		StartingRating:   *rating,
		Seed:             *seed,
		OutputFile:       *output,
		Verbose:          *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		stop()
		cancel()
		os.Exit(1)
	}
}
