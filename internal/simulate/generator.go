package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Shape of generated rounds.
const (
	minRoundsPerSession = 1
	maxRoundsPerSession = 3
	minGamesPerRound    = 4
	maxGamesPerRound    = 16
	wallGameChance      = 0.1
	linkedPlayerChance  = 0.5
	pointsMin           = -100.0
	pointsSpread        = 400.0
)

// Generator builds random sessions that pass the service's validation.
type Generator struct {
	rng        *rand.Rand
	gameType   string
	houseEmail string
	houseProb  float64
	emails     []string
	bgtIDs     []string // empty when the player is unlinked
	date       time.Time
}

// NewGenerator creates a pool of players unique to runID.
func NewGenerator(cfg *Config, runID string) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	g := &Generator{
		rng:        rng,
		gameType:   cfg.GameType,
		houseEmail: cfg.HouseEmail,
		houseProb:  cfg.HouseProbability,
		emails:     make([]string, cfg.Players),
		bgtIDs:     make([]string, cfg.Players),
		date:       time.Now().UTC(),
	}
	for i := range g.emails {
		g.emails[i] = fmt.Sprintf("sim-%s-%04d@example.com", runID, i)
		if rng.Float64() < linkedPlayerChance {
			g.bgtIDs[i] = uuid.NewString()
		}
	}
	return g
}

// Session returns one random session.
func (g *Generator) Session() SessionPayload {
	gameType := g.gameType
	if gameType == GameMixed || gameType == "" {
		gameType = []string{GameSocial, GameLeague, GameTournament}[g.rng.IntN(3)]
	}
	scored := gameType != GameSocial

	n := minRoundsPerSession + g.rng.IntN(maxRoundsPerSession-minRoundsPerSession+1)
	s := SessionPayload{
		SessionDate: g.date.AddDate(0, 0, -g.rng.IntN(30)).Format(time.DateOnly),
		GameType:    gameType,
		Rounds:      make([]RoundPayload, n),
	}
	for i := range s.Rounds {
		s.Rounds[i] = g.round(scored)
	}
	return s
}

func (g *Generator) round(scored bool) RoundPayload {
	seats := 2 + g.rng.IntN(3)
	if seats > len(g.emails) {
		seats = len(g.emails)
	}
	house := seats == 4 && g.rng.Float64() < g.houseProb

	picked := g.rng.Perm(len(g.emails))[:seats]
	games := minGamesPerRound + g.rng.IntN(maxGamesPerRound-minGamesPerRound+1)

	r := RoundPayload{Players: make([]PlayerPayload, seats)}
	for i, idx := range picked {
		r.Players[i] = PlayerPayload{Email: g.emails[idx], BGTUserID: g.bgtIDs[idx], GamesPlayed: games}
	}
	if house {
		r.Players[seats-1] = PlayerPayload{Email: g.houseEmail, GamesPlayed: games}
	}

	for h := 0; h < games; h++ {
		if g.rng.Float64() < wallGameChance {
			r.WallGames++
			continue
		}
		r.Players[g.rng.IntN(seats)].Mahjongs++
	}

	if scored {
		for i := range r.Players {
			pts := math.Round(pointsMin + g.rng.Float64()*pointsSpread)
			r.Players[i].Points = &pts
		}
	}
	return r
}

// Generate returns n submissions, each with a fresh idempotency key.
func (g *Generator) Generate(n int) []Submission {
	out := make([]Submission, n)
	for i := range out {
		out[i] = Submission{IdempotencyKey: uuid.NewString(), Session: g.Session()}
	}
	return out
}
