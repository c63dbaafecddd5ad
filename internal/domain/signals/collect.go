package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/prive/internal/domain/model"
)

// Collection windows used by the factor queries.
const (
	engagementShortWindow = 30 * 24 * time.Hour
	engagementLongWindow  = 90 * 24 * time.Hour
	frequencyWindowDays   = 90
)

// FactorSet is a fully staged set of factor bundles for one user. It is
// assembled in memory before any score is computed, so a failing source
// aborts the whole recalculation without touching stored state.
type FactorSet struct {
	Engagement    model.EngagementFactors
	Trust         model.TrustFactors
	Influence     model.InfluenceFactors
	EconomicValue model.EconomicValueFactors
	BrandAffinity model.BrandAffinityFactors
	Network       model.NetworkFactors
}

// Collect fetches every factor bundle from the sources. The first failing
// query aborts the collection and is returned wrapped with the name of the
// source that produced it.
func (s Sources) Collect(ctx context.Context, userID string, now time.Time) (FactorSet, error) {
	var fs FactorSet

	orders30, err := s.Orders.CountCompleted(ctx, userID, now.Add(-engagementShortWindow))
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	orders90, err := s.Orders.CountCompleted(ctx, userID, now.Add(-engagementLongWindow))
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	fs.Engagement = model.EngagementFactors{
		OrdersLast30Days: orders30,
		OrdersLast90Days: orders90,
	}

	completionRate, err := s.Orders.CompletionRate(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	flags, err := s.Identity.VerificationFlags(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("identity signals: %w", err)
	}
	accountAge, err := s.Identity.AccountAgeDays(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("identity signals: %w", err)
	}
	fs.Trust = model.TrustFactors{
		OrderCompletionRate: completionRate,
		EmailVerified:       flags.EmailVerified,
		PhoneVerified:       flags.PhoneVerified,
		AccountAgeDays:      accountAge,
	}

	referrals, err := s.Referral.CountByStatus(ctx, userID, ReferralStatusCompleted)
	if err != nil {
		return FactorSet{}, fmt.Errorf("referral signals: %w", err)
	}
	reviews, err := s.Reviews.CountWritten(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("review signals: %w", err)
	}
	helpful, err := s.Reviews.CountWithHelpfulVotes(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("review signals: %w", err)
	}
	fs.Influence = model.InfluenceFactors{
		SuccessfulReferrals:     referrals,
		ReviewsWritten:          reviews,
		ReviewsWithHelpfulVotes: helpful,
	}

	spend, err := s.Orders.TotalSpend(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	aov, err := s.Orders.AverageOrderValue(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	frequency, err := s.Orders.PurchaseFrequency(ctx, userID, frequencyWindowDays)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	diversity, err := s.Orders.CategoryDiversity(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	fs.EconomicValue = model.EconomicValueFactors{
		TotalSpend:        spend,
		AverageOrderValue: aov,
		PurchaseFrequency: frequency,
		CategoryDiversity: diversity,
	}

	repeatRate, err := s.Orders.RepeatPurchaseRate(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	wishlistItems, err := s.Wishlist.ItemCount(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("wishlist signals: %w", err)
	}
	totalOrders, err := s.Orders.CountCompleted(ctx, userID, time.Time{})
	if err != nil {
		return FactorSet{}, fmt.Errorf("order signals: %w", err)
	}
	fs.BrandAffinity = model.BrandAffinityFactors{
		RepeatPurchaseRate: repeatRate,
		WishlistItemCount:  wishlistItems,
		OrderCount:         totalOrders,
	}

	networkSize, err := s.Referral.NetworkSize(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("referral signals: %w", err)
	}
	quality, err := s.Referral.NetworkQualityScore(ctx, userID)
	if err != nil {
		return FactorSet{}, fmt.Errorf("referral signals: %w", err)
	}
	fs.Network = model.NetworkFactors{
		ReferralNetworkSize:  networkSize,
		ReferralQualityScore: quality,
	}

	return fs, nil
}
