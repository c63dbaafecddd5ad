package scoring_test

import (
	"testing"

	"github.com/okian/prive/internal/domain/model"
	scoring "github.com/okian/prive/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func allPillars(score float64) map[model.PillarID]float64 {
	scores := make(map[model.PillarID]float64, 6)
	for _, id := range model.PillarIDs() {
		scores[id] = score
	}
	return scores
}

func TestAggregate(t *testing.T) {
	Convey("Given the weighted aggregator", t, func() {
		Convey("When every pillar is at 100", func() {
			result := scoring.Aggregate(allPillars(100))

			Convey("Then the total is 100 and the tier is elite", func() {
				So(result.TotalScore, ShouldEqual, 100)
				So(result.Tier, ShouldEqual, model.TierElite)
				So(result.IsEligible, ShouldBeTrue)
			})
		})

		Convey("When every pillar is at 0", func() {
			result := scoring.Aggregate(allPillars(0))

			So(result.TotalScore, ShouldEqual, 0)
			So(result.Tier, ShouldEqual, model.TierNone)
			So(result.IsEligible, ShouldBeFalse)
		})

		Convey("When aggregating an empty score map", func() {
			result := scoring.Aggregate(map[model.PillarID]float64{})

			Convey("Then missing pillars count as zero", func() {
				So(result.TotalScore, ShouldEqual, 0)
				So(result.Tier, ShouldEqual, model.TierNone)
			})
		})

		Convey("When the total clears a tier threshold with trust above the floor", func() {
			Convey("Then uniform 70s land in signature", func() {
				result := scoring.Aggregate(allPillars(70))
				So(result.TotalScore, ShouldEqual, 70)
				So(result.Tier, ShouldEqual, model.TierSignature)
			})

			Convey("And uniform 85s land in elite", func() {
				result := scoring.Aggregate(allPillars(85))
				So(result.TotalScore, ShouldEqual, 85)
				So(result.Tier, ShouldEqual, model.TierElite)
			})

			Convey("And uniform 60s land in entry", func() {
				result := scoring.Aggregate(allPillars(60))
				So(result.TotalScore, ShouldEqual, 60)
				So(result.Tier, ShouldEqual, model.TierEntry)
			})
		})

		Convey("When the total clears entry but trust sits below the floor", func() {
			scores := allPillars(90)
			scores[model.PillarTrust] = 59

			result := scoring.Aggregate(scores)

			Convey("Then the trust floor vetoes the tier outright", func() {
				So(result.TotalScore, ShouldEqual, 83.8)
				So(result.Tier, ShouldEqual, model.TierNone)
				So(result.IsEligible, ShouldBeFalse)
			})

			Convey("And lifting trust to exactly the floor restores the tier", func() {
				scores[model.PillarTrust] = 60
				result := scoring.Aggregate(scores)
				So(result.TotalScore, ShouldEqual, 84)
				So(result.Tier, ShouldEqual, model.TierSignature)
			})
		})

		Convey("When uniform 50s meet the entry threshold but not the trust floor", func() {
			result := scoring.Aggregate(allPillars(50))

			Convey("Then a neutral trust score alone is never enough", func() {
				So(result.TotalScore, ShouldEqual, 50)
				So(result.Tier, ShouldEqual, model.TierNone)
			})
		})

		Convey("When a mixed profile totals just below entry", func() {
			result := scoring.Aggregate(map[model.PillarID]float64{
				model.PillarEngagement:    40,
				model.PillarTrust:         65,
				model.PillarInfluence:     30,
				model.PillarEconomicValue: 30,
				model.PillarBrandAffinity: 45,
				model.PillarNetwork:       45,
			})

			Convey("Then the user is ineligible despite passing the trust floor", func() {
				So(result.TotalScore, ShouldEqual, 42.5)
				So(result.Tier, ShouldEqual, model.TierNone)
				So(result.IsEligible, ShouldBeFalse)
			})
		})

		Convey("When a score sneaks in above the pillar maximum", func() {
			scores := allPillars(100)
			scores[model.PillarEngagement] = 150

			result := scoring.Aggregate(scores)

			Convey("Then the aggregator clamps it before weighting", func() {
				So(result.TotalScore, ShouldEqual, 100)
			})
		})

		Convey("When the weighted sum has a long fraction", func() {
			scores := allPillars(0)
			scores[model.PillarEngagement] = 33.333
			scores[model.PillarTrust] = 66.667

			result := scoring.Aggregate(scores)

			Convey("Then the total is rounded to two decimals", func() {
				// 33.333*0.25 + 66.667*0.20 = 8.33325 + 13.3334
				So(result.TotalScore, ShouldEqual, 21.67)
			})
		})

		Convey("When aggregating the same input twice", func() {
			scores := allPillars(73.5)
			first := scoring.Aggregate(scores)
			second := scoring.Aggregate(scores)

			Convey("Then the result is identical", func() {
				So(second, ShouldResemble, first)
			})
		})
	})
}
