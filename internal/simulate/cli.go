package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/mahjic/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging points the global logger at stdout and, when logFile is set,
// also at that file. The returned closer releases the file.
func SetupLogging(logFile string, asJSON bool) (io.Closer, error) {
	if logFile == "" {
		return io.NopCloser(nil), logger.InitWithWriter(os.Stdout, asJSON)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := logger.InitWithWriter(io.MultiWriter(os.Stdout, file), asJSON); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Mahjic Session Simulator
========================

Submits random mahjong sessions to a running mahjic service, then checks that
every player's stored rating equals the starting rating plus the changes the
service reported, and that the leaderboard is ordered.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -key string        API key of an approved source (or MAHJIC_SIM_API_KEY)
  -sessions int      Sessions to submit (default 500)
  -players int       Size of the player pool (default 40)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -game string       social, league, tournament or mixed (default "mixed")
  -house float       Chance a four-seat round seats the house (default 0.1)
  -seed uint         Random seed, 0 for random
  -timeout duration  HTTP request timeout (default 30s)
  -output string     Write generated sessions to this JSON file
  -log string        Also write logs to this file
  -json              Log as JSON
  -verbose           Log every rejection and mismatch
  -help              Show this help message

Examples:
  go run ./cmd/simulate -key club-key
  go run ./cmd/simulate -key club-key -sessions 5000 -players 200 -game league
`)
}
