package model

import "sort"

// Trend compares a pillar score against the previous snapshot.
type Trend string

// Trend values. Movements within the two-point dead band read as stable.
const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"

	trendDeadBand = 2.0
)

// pillarLabels are the human-readable pillar names used in projections.
var pillarLabels = map[PillarID]string{
	PillarEngagement:    "Engagement",
	PillarTrust:         "Trust & Integrity",
	PillarInfluence:     "Influence",
	PillarEconomicValue: "Economic Value",
	PillarBrandAffinity: "Brand Affinity",
	PillarNetwork:       "Network & Community",
}

// PillarLabel returns the display label for a pillar id.
func PillarLabel(id PillarID) string {
	return pillarLabels[id]
}

// PillarScore is the read-side projection of one pillar.
type PillarScore struct {
	ID            PillarID `json:"id"`
	Label         string   `json:"label"`
	Score         float64  `json:"score"`
	Weight        float64  `json:"weight"`
	WeightedScore float64  `json:"weightedScore"`
	Trend         Trend    `json:"trend"`
}

// EligibilitySnapshot is the derived eligibility view of a record.
type EligibilitySnapshot struct {
	IsEligible        bool          `json:"isEligible"`
	TotalScore        float64       `json:"totalScore"`
	Tier              Tier          `json:"tier"`
	Pillars           []PillarScore `json:"pillars"`
	TrustScore        float64       `json:"trustScore"`
	NextTierThreshold float64       `json:"nextTierThreshold"`
	PointsToNextTier  float64       `json:"pointsToNextTier"`
}

// PillarBreakdown is the diagnostics view: scores plus full factor bundles.
type PillarBreakdown struct {
	Pillars       []PillarScore        `json:"pillars"`
	Engagement    EngagementFactors    `json:"engagement"`
	Trust         TrustFactors         `json:"trust"`
	Influence     InfluenceFactors     `json:"influence"`
	EconomicValue EconomicValueFactors `json:"economicValue"`
	BrandAffinity BrandAffinityFactors `json:"brandAffinity"`
	Network       NetworkFactors       `json:"network"`
}

// Tip is one improvement suggestion for a low-scoring pillar.
type Tip struct {
	Pillar     PillarID `json:"pillar"`
	Label      string   `json:"label"`
	Score      float64  `json:"score"`
	Suggestion string   `json:"suggestion"`
}

var pillarTips = map[PillarID]string{
	PillarEngagement:    "Order more regularly; consistent monthly activity raises your engagement score.",
	PillarTrust:         "Complete your orders and verify your email and phone to strengthen your trust score.",
	PillarInfluence:     "Write reviews and refer friends; helpful reviews count double.",
	PillarEconomicValue: "Shop across more categories to grow your economic-value score.",
	PillarBrandAffinity: "Add items to your wishlist and buy again from stores you like.",
	PillarNetwork:       "Invite friends and help them complete their first order.",
}

// PillarScores projects the six pillars in canonical order, computing the
// weighted score and the trend against the previous snapshot (if any).
func (r *ReputationRecord) PillarScores() []PillarScore {
	prev, hasPrev := r.LatestSnapshot()

	out := make([]PillarScore, 0, len(PillarIDs()))
	for _, id := range PillarIDs() {
		score := r.Pillars.Score(id)
		weight := PillarWeights[id]

		trend := TrendStable
		if hasPrev {
			if prevScore, ok := prev.PillarScores[id]; ok {
				switch {
				case score-prevScore > trendDeadBand:
					trend = TrendUp
				case prevScore-score > trendDeadBand:
					trend = TrendDown
				}
			}
		}

		out = append(out, PillarScore{
			ID:            id,
			Label:         PillarLabel(id),
			Score:         score,
			Weight:        weight,
			WeightedScore: Round2(score * weight),
			Trend:         trend,
		})
	}
	return out
}

// Eligibility projects the record into its eligibility view.
func (r *ReputationRecord) Eligibility() EligibilitySnapshot {
	next := EntryThreshold
	switch r.Tier {
	case TierEntry:
		next = SignatureThreshold
	case TierSignature:
		next = EliteThreshold
	case TierElite:
		next = MaxScore
	}

	points := 0.0
	if r.Tier != TierElite {
		points = Round2(next - r.TotalScore)
		if points < 0 {
			points = 0
		}
	}

	return EligibilitySnapshot{
		IsEligible:        r.IsEligible,
		TotalScore:        r.TotalScore,
		Tier:              r.Tier,
		Pillars:           r.PillarScores(),
		TrustScore:        r.Pillars.Trust.Score,
		NextTierThreshold: next,
		PointsToNextTier:  points,
	}
}

// Breakdown projects the record into its diagnostics view.
func (r *ReputationRecord) Breakdown() PillarBreakdown {
	return PillarBreakdown{
		Pillars:       r.PillarScores(),
		Engagement:    r.Pillars.Engagement.Factors,
		Trust:         r.Pillars.Trust.Factors,
		Influence:     r.Pillars.Influence.Factors,
		EconomicValue: r.Pillars.EconomicValue.Factors,
		BrandAffinity: r.Pillars.BrandAffinity.Factors,
		Network:       r.Pillars.Network.Factors,
	}
}

// maxTips caps the improvement-tip projection.
const maxTips = 5

// ImprovementTips ranks the pillars ascending by score and suggests fixes
// for the lowest-scoring ones. Pillars already at the maximum are skipped.
// Derived only; never persisted.
func (r *ReputationRecord) ImprovementTips() []Tip {
	ids := PillarIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return r.Pillars.Score(ids[i]) < r.Pillars.Score(ids[j])
	})

	tips := make([]Tip, 0, maxTips)
	for _, id := range ids {
		if len(tips) == maxTips {
			break
		}
		score := r.Pillars.Score(id)
		if score >= MaxScore {
			continue
		}
		tips = append(tips, Tip{
			Pillar:     id,
			Label:      PillarLabel(id),
			Score:      score,
			Suggestion: pillarTips[id],
		})
	}
	return tips
}
