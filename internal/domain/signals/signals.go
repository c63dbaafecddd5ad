// Package signals defines the read-only contracts the reputation engine
// needs from upstream behavioral data, and a staged collector that fetches
// every factor bundle before any scoring happens. How the raw counters are
// computed or stored upstream is not this package's concern.
package signals

import (
	"context"
	"time"
)

// ReferralStatusCompleted is the referral status counted as a successful
// referral.
const ReferralStatusCompleted = "completed"

// VerificationFlags are the identity checks the trust pillar reads.
type VerificationFlags struct {
	EmailVerified bool
	PhoneVerified bool
}

// OrderSignals reads order-derived counters for a user. A zero since value
// means "all time".
type OrderSignals interface {
	CountCompleted(ctx context.Context, userID string, since time.Time) (int, error)
	TotalSpend(ctx context.Context, userID string) (float64, error)
	AverageOrderValue(ctx context.Context, userID string) (float64, error)
	PurchaseFrequency(ctx context.Context, userID string, windowDays int) (float64, error)
	CategoryDiversity(ctx context.Context, userID string) (int, error)
	CompletionRate(ctx context.Context, userID string) (float64, error)
	RepeatPurchaseRate(ctx context.Context, userID string) (float64, error)
}

// ReferralSignals reads referral counters for a user.
type ReferralSignals interface {
	CountByStatus(ctx context.Context, userID, status string) (int, error)
	NetworkSize(ctx context.Context, userID string) (int, error)
	NetworkQualityScore(ctx context.Context, userID string) (float64, error)
}

// ReviewSignals reads review counters for a user.
type ReviewSignals interface {
	CountWritten(ctx context.Context, userID string) (int, error)
	CountWithHelpfulVotes(ctx context.Context, userID string) (int, error)
}

// WishlistSignals reads wishlist counters for a user.
type WishlistSignals interface {
	ItemCount(ctx context.Context, userID string) (int, error)
}

// IdentitySignals reads identity and account data for a user.
type IdentitySignals interface {
	VerificationFlags(ctx context.Context, userID string) (VerificationFlags, error)
	AccountAgeDays(ctx context.Context, userID string) (int, error)
}

// Sources bundles the five upstream signal providers.
type Sources struct {
	Orders   OrderSignals
	Referral ReferralSignals
	Reviews  ReviewSignals
	Wishlist WishlistSignals
	Identity IdentitySignals
}
