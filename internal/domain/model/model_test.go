package model_test

import (
	"testing"
	"time"

	"github.com/okian/mahjic/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGameType(t *testing.T) {
	Convey("Given the game types", t, func() {
		Convey("Then only league and tournament score points", func() {
			So(model.GameSocial.ScoresPoints(), ShouldBeFalse)
			So(model.GameLeague.ScoresPoints(), ShouldBeTrue)
			So(model.GameTournament.ScoresPoints(), ShouldBeTrue)
		})

		Convey("Then unknown types are invalid", func() {
			for _, gt := range model.GameTypes {
				So(gt.Valid(), ShouldBeTrue)
			}
			So(model.GameType("casual").Valid(), ShouldBeFalse)
			So(model.GameType("").Valid(), ShouldBeFalse)
		})
	})
}

func TestPlayerEligibility(t *testing.T) {
	Convey("Given players with different tiers and privacy", t, func() {
		verified := model.Player{Tier: model.TierVerified, Privacy: model.PrivacyNormal}
		hidden := model.Player{Tier: model.TierVerified, Privacy: model.PrivacyPrivate}
		anon := model.Player{Tier: model.TierVerified, Privacy: model.PrivacyAnonymous}
		provisional := model.Player{Tier: model.TierProvisional, Privacy: model.PrivacyNormal}

		Convey("Then only verified public players reach the leaderboard", func() {
			So(verified.OnLeaderboard(), ShouldBeTrue)
			So(hidden.OnLeaderboard(), ShouldBeFalse)
			So(anon.OnLeaderboard(), ShouldBeFalse)
			So(provisional.OnLeaderboard(), ShouldBeFalse)
		})

		Convey("And verification does not depend on privacy", func() {
			So(hidden.Verified(), ShouldBeTrue)
			So(provisional.Verified(), ShouldBeFalse)
		})
	})
}

func TestSourceApproved(t *testing.T) {
	Convey("Given a source", t, func() {
		s := model.Source{ID: "src-1"}
		So(s.Approved(), ShouldBeFalse)

		now := time.Now()
		s.ApprovedAt = &now
		So(s.Approved(), ShouldBeTrue)
	})
}

func TestBandFor(t *testing.T) {
	Convey("Given rating band boundaries", t, func() {
		So(model.BandFor(2100), ShouldEqual, model.BandExpert)
		So(model.BandFor(1800), ShouldEqual, model.BandExpert)
		So(model.BandFor(1799), ShouldEqual, model.BandAdvanced)
		So(model.BandFor(1600), ShouldEqual, model.BandAdvanced)
		So(model.BandFor(1500), ShouldEqual, model.BandIntermediate)
		So(model.BandFor(1400), ShouldEqual, model.BandIntermediate)
		So(model.BandFor(1399), ShouldEqual, model.BandBeginner)
		So(model.BandFor(1200), ShouldEqual, model.BandBeginner)
		So(model.BandFor(1199), ShouldEqual, model.BandNewcomer)
	})
}

func TestRoundGamesPlayed(t *testing.T) {
	Convey("Given a round", t, func() {
		So(model.RoundSubmission{}.GamesPlayed(), ShouldEqual, 0)

		r := model.RoundSubmission{Players: []model.RoundPlayerInput{{GamesPlayed: 4}, {GamesPlayed: 4}}}
		So(r.GamesPlayed(), ShouldEqual, 4)
	})
}

func TestHistoryEntryChange(t *testing.T) {
	Convey("Given a history entry", t, func() {
		h := model.HistoryEntry{RatingBefore: 1500, RatingAfter: 1488}
		So(h.RatingChange(), ShouldEqual, -12)
	})
}
