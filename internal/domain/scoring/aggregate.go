package scoring

import (
	"github.com/okian/prive/internal/domain/model"
)

// Result is the aggregator output: the weighted total and the derived tier.
type Result struct {
	TotalScore float64
	Tier       model.Tier
	IsEligible bool
}

// Aggregate computes the weighted total of the six pillar scores, rounded
// to two decimals, and derives the tier. The trust floor is a hard veto:
// trust below the minimum forces tier none regardless of the total.
// Pure and order-independent; identical inputs always produce identical
// output.
func Aggregate(scores map[model.PillarID]float64) Result {
	total := 0.0
	for _, id := range model.PillarIDs() {
		total += model.ClampScore(scores[id]) * model.PillarWeights[id]
	}
	total = model.Round2(total)

	tier := model.TierNone
	if scores[model.PillarTrust] >= model.TrustMinimum {
		switch {
		case total >= model.EliteThreshold:
			tier = model.TierElite
		case total >= model.SignatureThreshold:
			tier = model.TierSignature
		case total >= model.EntryThreshold:
			tier = model.TierEntry
		}
	}

	return Result{
		TotalScore: total,
		Tier:       tier,
		IsEligible: tier != model.TierNone,
	}
}
