// Package model contains domain models passed between layers.
package model

import "time"

// Tier is a player's verification tier.
type Tier string

const (
	// TierProvisional players are created on first submission.
	TierProvisional Tier = "provisional"
	// TierVerified players completed identity verification and appear on the
	// leaderboard.
	TierVerified Tier = "verified"
)

// PrivacyMode controls how a player shows up publicly.
type PrivacyMode string

const (
	PrivacyNormal    PrivacyMode = "normal"
	PrivacyPrivate   PrivacyMode = "private"
	PrivacyAnonymous PrivacyMode = "anonymous"
)

// Public reports whether the player's profile may be served.
func (m PrivacyMode) Public() bool { return m == PrivacyNormal }

// Player is a rated player as persisted.
type Player struct {
	ID             string
	Email          string
	Name           string
	BGTUserID      string // empty when not linked
	Tier           Tier
	Privacy        PrivacyMode
	Rating         float64 // open family
	VerifiedRating float64
	GamesPlayed    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Verified reports whether the player takes part in the verified family.
func (p Player) Verified() bool { return p.Tier == TierVerified }

// OnLeaderboard reports whether the player is eligible for the public
// leaderboard.
func (p Player) OnLeaderboard() bool { return p.Verified() && p.Privacy.Public() }

// Source is a club, platform or league allowed to submit results.
type Source struct {
	ID           string
	Name         string
	Slug         string
	APIKey       string
	ContactEmail string
	CreatedAt    time.Time
	ApprovedAt   *time.Time // nil while the application is under review
}

// Approved reports whether the source may submit sessions.
func (s Source) Approved() bool { return s.ApprovedAt != nil }

// SkillBand is a descriptive label for a rating.
type SkillBand string

const (
	BandExpert       SkillBand = "expert"
	BandAdvanced     SkillBand = "advanced"
	BandIntermediate SkillBand = "intermediate"
	BandBeginner     SkillBand = "beginner"
	BandNewcomer     SkillBand = "newcomer"
)

// BandFor maps a rating to its skill band.
func BandFor(rating float64) SkillBand {
	switch {
	case rating >= 1800:
		return BandExpert
	case rating >= 1600:
		return BandAdvanced
	case rating >= 1400:
		return BandIntermediate
	case rating >= 1200:
		return BandBeginner
	default:
		return BandNewcomer
	}
}
