// Package model contains the reputation domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// PillarID identifies one of the six scored behavioral dimensions.
type PillarID string

// The six pillars. The order of PillarIDs() is the canonical display order.
const (
	PillarEngagement    PillarID = "engagement"
	PillarTrust         PillarID = "trust"
	PillarInfluence     PillarID = "influence"
	PillarEconomicValue PillarID = "economicValue"
	PillarBrandAffinity PillarID = "brandAffinity"
	PillarNetwork       PillarID = "network"
)

// PillarIDs returns the six pillar ids in canonical order.
func PillarIDs() []PillarID {
	return []PillarID{
		PillarEngagement,
		PillarTrust,
		PillarInfluence,
		PillarEconomicValue,
		PillarBrandAffinity,
		PillarNetwork,
	}
}

// ValidPillar reports whether id names one of the six pillars.
func ValidPillar(id PillarID) bool {
	switch id {
	case PillarEngagement, PillarTrust, PillarInfluence,
		PillarEconomicValue, PillarBrandAffinity, PillarNetwork:
		return true
	}
	return false
}

// Tier is the discrete membership level derived from the total score.
type Tier string

// Membership tiers, lowest to highest.
const (
	TierNone      Tier = "none"
	TierEntry     Tier = "entry"
	TierSignature Tier = "signature"
	TierElite     Tier = "elite"
)

// PillarWeights holds the fixed contribution weight of each pillar.
// The weights must sum to exactly 1.0; ValidateWeights enforces this at
// process start.
var PillarWeights = map[PillarID]float64{
	PillarEngagement:    0.25,
	PillarTrust:         0.20,
	PillarInfluence:     0.20,
	PillarEconomicValue: 0.15,
	PillarBrandAffinity: 0.10,
	PillarNetwork:       0.10,
}

// Eligibility thresholds on the weighted total score, plus the trust floor.
const (
	EntryThreshold     = 50.0
	SignatureThreshold = 70.0
	EliteThreshold     = 85.0
	TrustMinimum       = 60.0

	// MaxScore bounds every pillar score and the total.
	MaxScore = 100.0

	// NeutralTrustScore is the prior assigned to freshly created records.
	NeutralTrustScore = 50.0

	// HistoryLimit bounds the in-record snapshot window (FIFO eviction).
	HistoryLimit = 50

	// CalculationVersion tags records with the scoring-rule revision that
	// produced them, so rule migrations can tell stale records apart.
	CalculationVersion = "2024-08"
)

// ValidateWeights returns an error unless the pillar weights cover all six
// pillars and sum to exactly 1.0.
func ValidateWeights() error {
	sum := 0.0
	for _, id := range PillarIDs() {
		w, ok := PillarWeights[id]
		if !ok {
			return fmt.Errorf("pillar %q has no weight", id)
		}
		sum += w
	}
	if sum != 1.0 {
		return fmt.Errorf("pillar weights sum to %v, want exactly 1.0", sum)
	}
	return nil
}

// ClampScore bounds a pillar score to [0,100]. NaN collapses to 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(MaxScore, score))
}

// Round2 rounds to two decimal places, the precision of all reported scores.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// EngagementFactors feed the engagement pillar.
type EngagementFactors struct {
	OrdersLast30Days int `json:"ordersLast30Days"`
	OrdersLast90Days int `json:"ordersLast90Days"`
}

// TrustFactors feed the trust pillar.
type TrustFactors struct {
	OrderCompletionRate float64 `json:"orderCompletionRate"`
	EmailVerified       bool    `json:"emailVerified"`
	PhoneVerified       bool    `json:"phoneVerified"`
	AccountAgeDays      int     `json:"accountAgeDays"`
}

// InfluenceFactors feed the influence pillar.
type InfluenceFactors struct {
	SuccessfulReferrals     int `json:"successfulReferrals"`
	ReviewsWritten          int `json:"reviewsWritten"`
	ReviewsWithHelpfulVotes int `json:"reviewsWithHelpfulVotes"`
}

// EconomicValueFactors feed the economic-value pillar.
type EconomicValueFactors struct {
	TotalSpend        float64 `json:"totalSpend"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	// PurchaseFrequency is orders per month over the trailing 90 days.
	PurchaseFrequency float64 `json:"purchaseFrequency"`
	CategoryDiversity int     `json:"categoryDiversity"`
}

// BrandAffinityFactors feed the brand-affinity pillar.
type BrandAffinityFactors struct {
	// RepeatPurchaseRate is the percentage of distinct stores purchased
	// from more than once.
	RepeatPurchaseRate float64 `json:"repeatPurchaseRate"`
	WishlistItemCount  int     `json:"wishlistItemCount"`
	OrderCount         int     `json:"orderCount"`
}

// NetworkFactors feed the network pillar.
type NetworkFactors struct {
	ReferralNetworkSize int `json:"referralNetworkSize"`
	// ReferralQualityScore is the percentage of referred users that
	// reached completed status.
	ReferralQualityScore float64 `json:"referralQualityScore"`
}

// EngagementState is the persisted state of the engagement pillar.
type EngagementState struct {
	Score          float64           `json:"score"`
	Factors        EngagementFactors `json:"factors"`
	LastCalculated time.Time         `json:"lastCalculated"`
}

// TrustState is the persisted state of the trust pillar.
type TrustState struct {
	Score          float64      `json:"score"`
	Factors        TrustFactors `json:"factors"`
	LastCalculated time.Time    `json:"lastCalculated"`
}

// InfluenceState is the persisted state of the influence pillar.
type InfluenceState struct {
	Score          float64          `json:"score"`
	Factors        InfluenceFactors `json:"factors"`
	LastCalculated time.Time        `json:"lastCalculated"`
}

// EconomicValueState is the persisted state of the economic-value pillar.
type EconomicValueState struct {
	Score          float64              `json:"score"`
	Factors        EconomicValueFactors `json:"factors"`
	LastCalculated time.Time            `json:"lastCalculated"`
}

// BrandAffinityState is the persisted state of the brand-affinity pillar.
type BrandAffinityState struct {
	Score          float64              `json:"score"`
	Factors        BrandAffinityFactors `json:"factors"`
	LastCalculated time.Time            `json:"lastCalculated"`
}

// NetworkState is the persisted state of the network pillar.
type NetworkState struct {
	Score          float64        `json:"score"`
	Factors        NetworkFactors `json:"factors"`
	LastCalculated time.Time      `json:"lastCalculated"`
}

// Pillars groups the six pillar states of a record.
type Pillars struct {
	Engagement    EngagementState    `json:"engagement"`
	Trust         TrustState         `json:"trust"`
	Influence     InfluenceState     `json:"influence"`
	EconomicValue EconomicValueState `json:"economicValue"`
	BrandAffinity BrandAffinityState `json:"brandAffinity"`
	Network       NetworkState       `json:"network"`
}

// Score returns the current score of the named pillar.
func (p *Pillars) Score(id PillarID) float64 {
	switch id {
	case PillarEngagement:
		return p.Engagement.Score
	case PillarTrust:
		return p.Trust.Score
	case PillarInfluence:
		return p.Influence.Score
	case PillarEconomicValue:
		return p.EconomicValue.Score
	case PillarBrandAffinity:
		return p.BrandAffinity.Score
	case PillarNetwork:
		return p.Network.Score
	}
	return 0
}

// SetScore writes a clamped score and stamps the pillar's LastCalculated.
// Unknown ids are ignored; callers validate first.
func (p *Pillars) SetScore(id PillarID, score float64, at time.Time) {
	score = ClampScore(score)
	switch id {
	case PillarEngagement:
		p.Engagement.Score = score
		p.Engagement.LastCalculated = at
	case PillarTrust:
		p.Trust.Score = score
		p.Trust.LastCalculated = at
	case PillarInfluence:
		p.Influence.Score = score
		p.Influence.LastCalculated = at
	case PillarEconomicValue:
		p.EconomicValue.Score = score
		p.EconomicValue.LastCalculated = at
	case PillarBrandAffinity:
		p.BrandAffinity.Score = score
		p.BrandAffinity.LastCalculated = at
	case PillarNetwork:
		p.Network.Score = score
		p.Network.LastCalculated = at
	}
}

// Scores returns a snapshot of all six pillar scores.
func (p *Pillars) Scores() map[PillarID]float64 {
	return map[PillarID]float64{
		PillarEngagement:    p.Engagement.Score,
		PillarTrust:         p.Trust.Score,
		PillarInfluence:     p.Influence.Score,
		PillarEconomicValue: p.EconomicValue.Score,
		PillarBrandAffinity: p.BrandAffinity.Score,
		PillarNetwork:       p.Network.Score,
	}
}

// Snapshot is an immutable record of an aggregate result, tagged with the
// trigger that caused the computation.
type Snapshot struct {
	ID           string               `json:"id"`
	Date         time.Time            `json:"date"`
	TotalScore   float64              `json:"totalScore"`
	Tier         Tier                 `json:"tier"`
	PillarScores map[PillarID]float64 `json:"pillarScores"`
	Trigger      string               `json:"trigger"`
}

// NewSnapshot builds a snapshot of the given aggregate state.
func NewSnapshot(at time.Time, totalScore float64, tier Tier, scores map[PillarID]float64, trigger string) Snapshot {
	copied := make(map[PillarID]float64, len(scores))
	for id, s := range scores {
		copied[id] = s
	}
	return Snapshot{
		ID:           uuid.NewString(),
		Date:         at,
		TotalScore:   totalScore,
		Tier:         tier,
		PillarScores: copied,
		Trigger:      trigger,
	}
}

// ReputationRecord is the per-user reputation entity. TotalScore, Tier and
// IsEligible are derived fields written only from aggregator output.
type ReputationRecord struct {
	UserID             string     `json:"userId"`
	Pillars            Pillars    `json:"pillars"`
	TotalScore         float64    `json:"totalScore"`
	Tier               Tier       `json:"tier"`
	IsEligible         bool       `json:"isEligible"`
	LastCalculated     time.Time  `json:"lastCalculated"`
	CalculationVersion string     `json:"calculationVersion"`
	History            []Snapshot `json:"history"`

	// Revision is the optimistic-concurrency counter checked on save.
	// It is owned by the store, not serialized into the record body.
	Revision int64 `json:"-"`
}

// NewRecord creates a record with neutral defaults: trust starts at 50,
// every other pillar at 0, tier none.
func NewRecord(userID string) *ReputationRecord {
	r := &ReputationRecord{
		UserID:             userID,
		Tier:               TierNone,
		CalculationVersion: CalculationVersion,
	}
	r.Pillars.Trust.Score = NeutralTrustScore
	return r
}

// AppendSnapshot appends to the bounded history window, evicting the
// oldest entry first once the window holds HistoryLimit snapshots.
func (r *ReputationRecord) AppendSnapshot(s Snapshot) {
	if len(r.History) >= HistoryLimit {
		evict := len(r.History) - HistoryLimit + 1
		r.History = append(r.History[:0], r.History[evict:]...)
	}
	r.History = append(r.History, s)
}

// LatestSnapshot returns the most recent history entry, or false when the
// history is empty.
func (r *ReputationRecord) LatestSnapshot() (Snapshot, bool) {
	if len(r.History) == 0 {
		return Snapshot{}, false
	}
	return r.History[len(r.History)-1], true
}

// Clone returns a deep copy, so stores can hand out records without
// aliasing their internal state.
func (r *ReputationRecord) Clone() *ReputationRecord {
	cp := *r
	cp.History = make([]Snapshot, len(r.History))
	for i, s := range r.History {
		scores := make(map[PillarID]float64, len(s.PillarScores))
		for id, v := range s.PillarScores {
			scores[id] = v
		}
		s.PillarScores = scores
		cp.History[i] = s
	}
	return &cp
}
