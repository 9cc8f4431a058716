package rating_test

import (
	"math"
	"testing"

	"github.com/okian/mahjic/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExpectedScore(t *testing.T) {
	Convey("Given the logistic expectation", t, func() {
		Convey("When ratings are equal", func() {
			for _, r := range []float64{0, 1200, 1500, 2400} {
				So(rating.ExpectedScore(r, r), ShouldEqual, 0.5)
			}
		})

		Convey("When swapping the two sides", func() {
			pairs := [][2]float64{{1500, 1500}, {1500, 1700}, {1000, 2200}, {1834.5, 1422.25}, {-300, 300}}

			Convey("Then the two expectations add up to one", func() {
				for _, p := range pairs {
					sum := rating.ExpectedScore(p[0], p[1]) + rating.ExpectedScore(p[1], p[0])
					So(sum, ShouldAlmostEqual, 1.0, 1e-12)
				}
			})
		})

		Convey("When the opponent is 400 points stronger", func() {
			Convey("Then the expectation is 1/11", func() {
				So(rating.ExpectedScore(1500, 1900), ShouldAlmostEqual, 1.0/11, 1e-12)
			})
		})

		Convey("Then the result stays strictly inside (0, 1)", func() {
			e := rating.ExpectedScore(1500, 2500)
			So(e, ShouldBeGreaterThan, 0)
			So(e, ShouldBeLessThan, 1)
		})
	})
}

func TestActualScore(t *testing.T) {
	Convey("Given mahjong counts", t, func() {
		So(rating.ActualScore(3, 1), ShouldEqual, 1.0)
		So(rating.ActualScore(2, 2), ShouldEqual, 0.5)
		So(rating.ActualScore(0, 0), ShouldEqual, 0.5)
		So(rating.ActualScore(1, 2), ShouldEqual, 0.0)
	})
}

func TestKFactor(t *testing.T) {
	Convey("Given lifetime games played", t, func() {
		Convey("When the player is new", func() {
			So(rating.KFactor(0), ShouldEqual, 32)
			So(rating.KFactor(15), ShouldEqual, 32)
			So(rating.KFactor(29), ShouldEqual, 32)
		})

		Convey("When the player is intermediate", func() {
			So(rating.KFactor(30), ShouldEqual, 24)
			So(rating.KFactor(50), ShouldEqual, 24)
			So(rating.KFactor(100), ShouldEqual, 24)
		})

		Convey("When the player is experienced", func() {
			So(rating.KFactor(101), ShouldEqual, 16)
			So(rating.KFactor(500), ShouldEqual, 16)
		})
	})
}

func TestPointsBonus(t *testing.T) {
	Convey("Given a points differential", t, func() {
		Convey("When it is inside the cap", func() {
			So(rating.PointsBonus(150, 100), ShouldEqual, 1.0)
			So(rating.PointsBonus(100, 150), ShouldEqual, -1.0)
			So(rating.PointsBonus(80, 80), ShouldEqual, 0.0)
		})

		Convey("When it sits exactly on the cap", func() {
			So(rating.PointsBonus(250, 0), ShouldEqual, 5.0)
			So(rating.PointsBonus(0, 250), ShouldEqual, -5.0)
		})

		Convey("When its magnitude exceeds 250", func() {
			for _, diff := range []float64{250.5, 300, 1000, 1e9} {
				So(rating.PointsBonus(diff, 0), ShouldEqual, 5.0)
				So(rating.PointsBonus(0, diff), ShouldEqual, -5.0)
			}
		})

		Convey("Then it is never larger than the cap", func() {
			for _, diff := range []float64{-1e6, -251, -3, 0, 7, 251, 1e6} {
				So(math.Abs(rating.PointsBonus(diff, 0)), ShouldBeLessThanOrEqualTo, rating.PointsBonusCap)
			}
		})
	})
}
