package simulate

import (
	"encoding/json"
	"testing"

	"github.com/okian/mahjic/internal/domain/model"
	"github.com/okian/mahjic/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

const houseEmail = "bob@mahjic.org"

func testConfig(game string) *Config {
	return &Config{
		Sessions:         50,
		Players:          12,
		Workers:          2,
		GameType:         game,
		HouseEmail:       houseEmail,
		HouseProbability: 0.5,
		StartingRating:   1500,
		Seed:             42,
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		for _, game := range []string{GameSocial, GameLeague, GameTournament, GameMixed} {
			subs := NewGenerator(testConfig(game), "run1").Generate(50)

			Convey("Every "+game+" session passes validation", func() {
				So(len(subs), ShouldEqual, 50)
				for _, sub := range subs {
					raw, err := json.Marshal(sub.Session)
					So(err, ShouldBeNil)
					parsed, err := validation.ParseSession(raw, validation.WithHouseEmail(houseEmail))
					So(err, ShouldBeNil)
					So(len(parsed.Rounds), ShouldEqual, len(sub.Session.Rounds))
					if game != GameMixed {
						So(string(parsed.GameType), ShouldEqual, game)
					}
				}
			})

			Convey("Points are present exactly for scored "+game+" sessions", func() {
				for _, sub := range subs {
					scored := model.GameType(sub.Session.GameType).ScoresPoints()
					for _, r := range sub.Session.Rounds {
						for _, p := range r.Players {
							So(p.Points != nil, ShouldEqual, scored)
						}
					}
				}
			})
		}

		Convey("Rounds hold two to four distinct seats and consistent hand counts", func() {
			for _, sub := range NewGenerator(testConfig(GameMixed), "run2").Generate(100) {
				for _, r := range sub.Session.Rounds {
					So(len(r.Players), ShouldBeBetweenOrEqual, 2, 4)
					seen := map[string]bool{}
					wins := r.WallGames
					for _, p := range r.Players {
						So(seen[p.Email], ShouldBeFalse)
						seen[p.Email] = true
						wins += p.Mahjongs
					}
					So(wins, ShouldEqual, r.Players[0].GamesPlayed)
				}
			}
		})

		Convey("The same seed yields the same sessions", func() {
			a := NewGenerator(testConfig(GameMixed), "same").Generate(5)
			b := NewGenerator(testConfig(GameMixed), "same").Generate(5)
			for i := range a {
				So(a[i].Session.GameType, ShouldEqual, b[i].Session.GameType)
				So(len(a[i].Session.Rounds), ShouldEqual, len(b[i].Session.Rounds))
				So(a[i].IdempotencyKey, ShouldNotEqual, b[i].IdempotencyKey)
			}
		})
	})
}
