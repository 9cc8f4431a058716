// Package validation turns a raw session submission into a
// model.SessionSubmission, reporting every field violation at once.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/mahjic/internal/domain/model"
)

const (
	// MinPlayers and MaxPlayers bound a table.
	MinPlayers = 2
	MaxPlayers = 4

	// DateLayout is the session_date format.
	DateLayout = "2006-01-02"

	privatePrefix = "PRIVATE:"
	anonPrefix    = "ANON:"
)

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type parser struct {
	houseEmail string
	maxRounds  int
	errs       Errors
}

func (p *parser) add(field, format string, args ...any) {
	p.errs = append(p.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ParseSession decodes and validates a session body. A body that is not JSON
// yields ErrInvalidJSON; any field violation yields Errors listing all of
// them.
func ParseSession(raw []byte, opts ...Option) (model.SessionSubmission, error) {
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return model.SessionSubmission{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if dec.More() {
		return model.SessionSubmission{}, fmt.Errorf("%w: trailing data after object", ErrInvalidJSON)
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return model.SessionSubmission{}, Errors{{Field: "body", Message: "Request body must be a JSON object"}}
	}

	sub := p.session(obj)
	if len(p.errs) > 0 {
		return model.SessionSubmission{}, p.errs
	}
	return sub, nil
}

func (p *parser) session(obj map[string]any) model.SessionSubmission {
	var sub model.SessionSubmission

	switch v, ok := obj["session_date"]; {
	case !ok || v == nil || v == "":
		p.add("session_date", "session_date is required")
	default:
		s, isStr := v.(string)
		if !isStr {
			p.add("session_date", "session_date must be a string")
			break
		}
		d, err := time.Parse(DateLayout, s)
		if !dateShape.MatchString(s) || err != nil {
			p.add("session_date", "session_date must be in ISO format (YYYY-MM-DD)")
			break
		}
		sub.SessionDate = d
	}

	switch v, ok := obj["game_type"]; {
	case !ok || v == nil || v == "":
		p.add("game_type", "game_type is required")
	default:
		s, _ := v.(string)
		gt := model.GameType(s)
		if !gt.Valid() {
			p.add("game_type", "game_type must be one of: %s", joinGameTypes())
			break
		}
		sub.GameType = gt
	}

	v, ok := obj["rounds"]
	if !ok || v == nil {
		p.add("rounds", "rounds is required")
		return sub
	}
	rounds, isArr := v.([]any)
	switch {
	case !isArr:
		p.add("rounds", "rounds must be an array")
		return sub
	case len(rounds) == 0:
		p.add("rounds", "rounds must contain at least one round")
		return sub
	case p.maxRounds > 0 && len(rounds) > p.maxRounds:
		p.add("rounds", "rounds must contain at most %d rounds", p.maxRounds)
		return sub
	}

	scored := sub.GameType.ScoresPoints()
	sub.Rounds = make([]model.RoundSubmission, 0, len(rounds))
	for i, r := range rounds {
		sub.Rounds = append(sub.Rounds, p.round(r, fmt.Sprintf("rounds[%d]", i), scored))
	}
	return sub
}

func (p *parser) round(v any, prefix string, scored bool) model.RoundSubmission {
	var round model.RoundSubmission
	before := len(p.errs)

	obj, ok := v.(map[string]any)
	if !ok {
		p.add(prefix, "Round must be an object")
		return round
	}

	pv, ok := obj["players"]
	if !ok || pv == nil {
		p.add(prefix+".players", "players is required")
		return round
	}
	players, ok := pv.([]any)
	if !ok {
		p.add(prefix+".players", "players must be an array")
		return round
	}
	if len(players) < MinPlayers || len(players) > MaxPlayers {
		p.add(prefix+".players", "Each round must have %d-%d players", MinPlayers, MaxPlayers)
	}

	wall, wallOK := 0, false
	switch wv, present := obj["wall_games"]; {
	case !present || wv == nil:
		p.add(prefix+".wall_games", "wall_games is required")
	default:
		n, isInt := asInt(wv)
		if !isInt || n < 0 {
			p.add(prefix+".wall_games", "wall_games must be a non-negative integer")
			break
		}
		wall, wallOK = n, true
	}
	round.WallGames = wall

	seenEmail := make(map[string]bool, len(players))
	seenBGT := make(map[string]bool, len(players))
	gamesPlayed := -1
	totalMahjongs := 0
	for i, raw := range players {
		field := fmt.Sprintf("%s.players[%d]", prefix, i)
		in, ok := p.player(raw, field, scored)
		if !ok {
			continue
		}
		totalMahjongs += in.Mahjongs

		if in.GamesPlayed > 0 {
			if gamesPlayed < 0 {
				gamesPlayed = in.GamesPlayed
			} else if gamesPlayed != in.GamesPlayed {
				p.add(prefix, "All players in a round must have the same games_played value")
			}
		}

		if in.Email.Email != "" {
			house := p.houseEmail != "" && strings.EqualFold(in.Email.Email, p.houseEmail)
			if seenEmail[in.Email.Email] && !house {
				p.add(field+".email", "player %s appears more than once in the round", in.Email.Email)
			}
			seenEmail[in.Email.Email] = true
		}
		if in.BGTUserID != "" {
			if seenBGT[in.BGTUserID] {
				p.add(field+".bgt_user_id", "bgt_user_id %s appears more than once in the round", in.BGTUserID)
			}
			seenBGT[in.BGTUserID] = true
		}
		round.Players = append(round.Players, in)
	}

	if gamesPlayed > 0 && wallOK && len(p.errs) == before {
		if totalMahjongs+wall != gamesPlayed {
			p.add(prefix, "Invalid round data: sum of mahjongs (%d) + wall_games (%d) must equal games_played (%d)",
				totalMahjongs, wall, gamesPlayed)
		}
	}
	return round
}

// player validates one seat. ok is false when the seat is not an object.
func (p *parser) player(v any, field string, scored bool) (model.RoundPlayerInput, bool) {
	var in model.RoundPlayerInput

	obj, isObj := v.(map[string]any)
	if !isObj {
		p.add(field, "Player must be an object")
		return in, false
	}

	if bv, present := obj["bgt_user_id"]; present && bv != nil {
		s, isStr := bv.(string)
		switch {
		case !isStr:
			p.add(field+".bgt_user_id", "bgt_user_id must be a string")
		default:
			id, err := parseCanonicalUUID(s)
			if err != nil {
				p.add(field+".bgt_user_id", "bgt_user_id must be a valid UUID")
				break
			}
			in.BGTUserID = id
		}
	}

	switch ev, present := obj["email"]; {
	case !present || ev == nil || ev == "":
		p.add(field+".email", "email is required")
	default:
		s, isStr := ev.(string)
		if !isStr {
			p.add(field+".email", "email must be a string")
			break
		}
		parsed := ParsePlayerEmail(s)
		if parsed.Email == "" || parsed.Email == anonPrefix {
			p.add(field+".email", "email is required")
			break
		}
		in.Email = parsed
	}

	switch gv, present := obj["games_played"]; {
	case !present || gv == nil:
		p.add(field+".games_played", "games_played is required")
	default:
		n, isInt := asInt(gv)
		if !isInt || n < 1 {
			p.add(field+".games_played", "games_played must be a positive integer")
			break
		}
		in.GamesPlayed = n
	}

	switch mv, present := obj["mahjongs"]; {
	case !present || mv == nil:
		p.add(field+".mahjongs", "mahjongs is required")
	default:
		n, isInt := asInt(mv)
		if !isInt || n < 0 {
			p.add(field+".mahjongs", "mahjongs must be a non-negative integer")
			break
		}
		in.Mahjongs = n
	}

	pv, present := obj["points"]
	switch {
	case present && pv != nil:
		f, isNum := asFloat(pv)
		if !isNum {
			p.add(field+".points", "points must be a number")
			break
		}
		in.Points = &f
	case scored:
		p.add(field+".points", "points is required for league/tournament games")
	}

	return in, true
}

// ParsePlayerEmail resolves the PRIVATE: and ANON: prefixes. Real emails are
// trimmed and lowercased. Anonymous identifiers keep the whole prefixed value
// as given.
func ParsePlayerEmail(s string) model.ParsedEmail {
	switch {
	case strings.HasPrefix(s, privatePrefix):
		return model.ParsedEmail{Email: normalizeEmail(s[len(privatePrefix):]), Privacy: model.PrivacyPrivate}
	case strings.HasPrefix(s, anonPrefix):
		return model.ParsedEmail{Email: s, Privacy: model.PrivacyAnonymous}
	default:
		return model.ParsedEmail{Email: normalizeEmail(s), Privacy: model.PrivacyNormal}
	}
}

// AnonymousNickname returns the nickname carried by an ANON: identifier.
func AnonymousNickname(e model.ParsedEmail) string {
	if !e.Anonymous() {
		return ""
	}
	return strings.TrimPrefix(e.Email, anonPrefix)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// parseCanonicalUUID accepts only the 8-4-4-4-12 hex form.
func parseCanonicalUUID(s string) (string, error) {
	if len(s) != 36 {
		return "", fmt.Errorf("uuid %q: want 36 characters", s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func asInt(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func asFloat(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func joinGameTypes() string {
	names := make([]string, len(model.GameTypes))
	for i, gt := range model.GameTypes {
		names[i] = string(gt)
	}
	return strings.Join(names, ", ")
}
