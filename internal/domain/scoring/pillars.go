// Package scoring implements the pure pillar scorers and the weighted
// aggregator. Nothing in this package performs I/O or can fail; scores are
// deterministic functions of their factor bundles.
package scoring

import (
	"math"

	"github.com/okian/prive/internal/domain/model"
)

// Engagement pillar caps and breakpoints.
const (
	engagementBonusCap = 10.0
	monthsPerQuarter   = 3.0
)

// Engagement scores ordering activity: a breakpoint base on the 30-day
// order count plus a consistency bonus from the 90-day run rate.
func Engagement(f model.EngagementFactors) float64 {
	var score float64
	switch {
	case f.OrdersLast30Days >= 10:
		score = 90
	case f.OrdersLast30Days >= 6:
		score = 70
	case f.OrdersLast30Days >= 3:
		score = 50
	case f.OrdersLast30Days >= 1:
		score = 30
	}

	// Consistency bonus: compares the 30-day count against the monthly
	// run rate over 90 days. Skipped entirely when the 90-day count is
	// zero; a brand-new burst of activity earns no consistency credit.
	if f.OrdersLast90Days > 0 {
		ratio := float64(f.OrdersLast30Days) / (float64(f.OrdersLast90Days) / monthsPerQuarter)
		score += math.Min(engagementBonusCap, math.Round(ratio*5))
	}

	return model.ClampScore(score)
}

// Trust scores reliability from a neutral prior of 50: order completion is
// the biggest lever, with verification and account-age bonuses on top.
func Trust(f model.TrustFactors) float64 {
	score := model.NeutralTrustScore

	switch {
	case f.OrderCompletionRate >= 95:
		score += 30
	case f.OrderCompletionRate >= 80:
		score += 20
	case f.OrderCompletionRate >= 60:
		score += 10
	case f.OrderCompletionRate < 50:
		score -= 20
	}

	if f.EmailVerified {
		score += 5
	}
	if f.PhoneVerified {
		score += 5
	}

	switch {
	case f.AccountAgeDays >= 365:
		score += 10
	case f.AccountAgeDays >= 180:
		score += 7
	case f.AccountAgeDays >= 90:
		score += 5
	case f.AccountAgeDays >= 30:
		score += 2
	}

	return model.ClampScore(score)
}

// Influence scores referrals and review activity.
func Influence(f model.InfluenceFactors) float64 {
	score := math.Min(40, float64(f.SuccessfulReferrals)*10)
	score += math.Min(30, float64(f.ReviewsWritten)*5)
	score += math.Min(30, float64(f.ReviewsWithHelpfulVotes)*10)
	return model.ClampScore(score)
}

// EconomicValue scores spend volume, order value, purchase frequency and
// category diversity as four independently capped ladders.
func EconomicValue(f model.EconomicValueFactors) float64 {
	var score float64

	switch {
	case f.TotalSpend >= 50_000:
		score += 40
	case f.TotalSpend >= 20_000:
		score += 30
	case f.TotalSpend >= 10_000:
		score += 20
	case f.TotalSpend >= 5_000:
		score += 10
	}

	switch {
	case f.AverageOrderValue >= 2_000:
		score += 20
	case f.AverageOrderValue >= 1_000:
		score += 15
	case f.AverageOrderValue >= 500:
		score += 10
	}

	switch {
	case f.PurchaseFrequency >= 4:
		score += 20
	case f.PurchaseFrequency >= 2:
		score += 15
	case f.PurchaseFrequency >= 1:
		score += 10
	}

	score += math.Min(20, float64(f.CategoryDiversity)*4)

	return model.ClampScore(score)
}

// BrandAffinity scores loyalty: repeat store purchases, wishlist size and
// overall order count.
func BrandAffinity(f model.BrandAffinityFactors) float64 {
	score := math.Min(50, f.RepeatPurchaseRate/2)
	score += math.Min(30, float64(f.WishlistItemCount)*3)
	score += math.Min(20, float64(f.OrderCount)*2)
	return model.ClampScore(score)
}

// Network scores the referral network by size and quality.
func Network(f model.NetworkFactors) float64 {
	score := math.Min(50, float64(f.ReferralNetworkSize)*10)
	score += math.Min(50, f.ReferralQualityScore/2)
	return model.ClampScore(score)
}
