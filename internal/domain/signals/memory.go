package signals

import (
	"context"
	"sync"
	"time"
)

// Source names accepted by MemorySignals.FailSource.
const (
	SourceOrders   = "orders"
	SourceReferral = "referral"
	SourceReviews  = "reviews"
	SourceWishlist = "wishlist"
	SourceIdentity = "identity"
)

// Profile holds the raw counters MemorySignals serves for one user.
type Profile struct {
	OrdersLast30Days   int
	OrdersLast90Days   int
	TotalOrders        int
	TotalSpend         float64
	AverageOrderValue  float64
	PurchaseFrequency  float64
	CategoryDiversity  int
	CompletionRate     float64
	RepeatPurchaseRate float64

	SuccessfulReferrals int
	NetworkSize         int
	NetworkQualityScore float64
	ReviewsWritten      int
	ReviewsHelpfulVotes int
	WishlistItems       int
	EmailVerified       bool
	PhoneVerified       bool
	AccountAgeDays      int
}

// MemorySignals implements every signal-source contract from in-memory
// profiles. Unknown users read as all-zero. Individual sources can be
// forced to fail, which tests use to exercise abort semantics.
type MemorySignals struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	failures map[string]error
}

// NewMemorySignals creates an empty in-memory signal provider.
func NewMemorySignals() *MemorySignals {
	return &MemorySignals{
		profiles: make(map[string]Profile),
		failures: make(map[string]error),
	}
}

// SetProfile installs or replaces the raw counters for a user.
func (m *MemorySignals) SetProfile(userID string, p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = p
}

// FailSource forces every query against the named source to return err.
// A nil err clears the failure.
func (m *MemorySignals) FailSource(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, source)
		return
	}
	m.failures[source] = err
}

// Sources returns the provider wired into a Sources bundle.
func (m *MemorySignals) Sources() Sources {
	return Sources{
		Orders:   m,
		Referral: m,
		Reviews:  m,
		Wishlist: m,
		Identity: m,
	}
}

func (m *MemorySignals) lookup(source, userID string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[source]; err != nil {
		return Profile{}, err
	}
	return m.profiles[userID], nil
}

// CountCompleted implements OrderSignals. The fake buckets the since
// parameter into the 30-day, 90-day or all-time window.
func (m *MemorySignals) CountCompleted(ctx context.Context, userID string, since time.Time) (int, error) {
	p, err := m.lookup(SourceOrders, userID)
	if err != nil {
		return 0, err
	}
	switch {
	case since.IsZero():
		return p.TotalOrders, nil
	case time.Since(since) <= engagementShortWindow+24*time.Hour:
		return p.OrdersLast30Days, nil
	case time.Since(since) <= engagementLongWindow+24*time.Hour:
		return p.OrdersLast90Days, nil
	default:
		return p.TotalOrders, nil
	}
}

// TotalSpend implements OrderSignals.
func (m *MemorySignals) TotalSpend(ctx context.Context, userID string) (float64, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.TotalSpend, err
}

// AverageOrderValue implements OrderSignals.
func (m *MemorySignals) AverageOrderValue(ctx context.Context, userID string) (float64, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.AverageOrderValue, err
}

// PurchaseFrequency implements OrderSignals.
func (m *MemorySignals) PurchaseFrequency(ctx context.Context, userID string, windowDays int) (float64, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.PurchaseFrequency, err
}

// CategoryDiversity implements OrderSignals.
func (m *MemorySignals) CategoryDiversity(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.CategoryDiversity, err
}

// CompletionRate implements OrderSignals.
func (m *MemorySignals) CompletionRate(ctx context.Context, userID string) (float64, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.CompletionRate, err
}

// RepeatPurchaseRate implements OrderSignals.
func (m *MemorySignals) RepeatPurchaseRate(ctx context.Context, userID string) (float64, error) {
	p, err := m.lookup(SourceOrders, userID)
	return p.RepeatPurchaseRate, err
}

// CountByStatus implements ReferralSignals. Only the completed status has
// a counter in the fake; other statuses read as zero.
func (m *MemorySignals) CountByStatus(ctx context.Context, userID, status string) (int, error) {
	p, err := m.lookup(SourceReferral, userID)
	if err != nil {
		return 0, err
	}
	if status == ReferralStatusCompleted {
		return p.SuccessfulReferrals, nil
	}
	return 0, nil
}

// NetworkSize implements ReferralSignals.
func (m *MemorySignals) NetworkSize(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceReferral, userID)
	return p.NetworkSize, err
}

// NetworkQualityScore implements ReferralSignals.
func (m *MemorySignals) NetworkQualityScore(ctx context.Context, userID string) (float64, error) {
	p, err := m.lookup(SourceReferral, userID)
	return p.NetworkQualityScore, err
}

// CountWritten implements ReviewSignals.
func (m *MemorySignals) CountWritten(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceReviews, userID)
	return p.ReviewsWritten, err
}

// CountWithHelpfulVotes implements ReviewSignals.
func (m *MemorySignals) CountWithHelpfulVotes(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceReviews, userID)
	return p.ReviewsHelpfulVotes, err
}

// ItemCount implements WishlistSignals.
func (m *MemorySignals) ItemCount(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceWishlist, userID)
	return p.WishlistItems, err
}

// VerificationFlags implements IdentitySignals.
func (m *MemorySignals) VerificationFlags(ctx context.Context, userID string) (VerificationFlags, error) {
	p, err := m.lookup(SourceIdentity, userID)
	return VerificationFlags{EmailVerified: p.EmailVerified, PhoneVerified: p.PhoneVerified}, err
}

// AccountAgeDays implements IdentitySignals.
func (m *MemorySignals) AccountAgeDays(ctx context.Context, userID string) (int, error) {
	p, err := m.lookup(SourceIdentity, userID)
	return p.AccountAgeDays, err
}
