// Package app provides the eligibility service: the imperative shell that
// loads reputation records, runs the pure scorers and aggregator, and
// persists the result with its audit snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/prive/internal/adapters/repository"
	"github.com/okian/prive/internal/domain/model"
	"github.com/okian/prive/internal/domain/scoring"
	"github.com/okian/prive/internal/domain/signals"
	"github.com/okian/prive/pkg/logger"
	"github.com/okian/prive/pkg/metrics"
)

// Recalculation trigger labels.
const (
	TriggerManual            = "manual"
	TriggerUserRefresh       = "user_refresh"
	TriggerOrderCompleted    = "order_completed"
	TriggerReviewSubmitted   = "review_submitted"
	TriggerReferralCompleted = "referral_completed"
)

// Override reason length bounds.
const (
	minReasonLength = 10
	maxReasonLength = 500
)

const defaultSaveRetries = 3

// defaultHistoryLimit is the GetHistory page size when none is given.
const defaultHistoryLimit = 20

// OverrideResult reports an applied administrative override.
type OverrideResult struct {
	Record           *model.ReputationRecord
	AppliedOverrides map[model.PillarID]float64
	NewTotalScore    float64
	NewTier          model.Tier
	NewEligibility   bool
}

// Service orchestrates get-or-create, recalculation and override against
// the record store and the upstream signal sources.
type Service struct {
	store   repository.Store
	sources signals.Sources

	saveRetries int
	now         func() time.Time
	logger      logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSaveRetries bounds how often a write is retried after losing an
// optimistic-concurrency race.
func WithSaveRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.saveRetries = n
		}
	}
}

// WithClock overrides the time source. Tests use this for deterministic
// snapshot dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service over the given store and signal sources.
func New(store repository.Store, sources signals.Sources, opts ...Option) *Service {
	s := &Service{
		store:       store,
		sources:     sources,
		saveRetries: defaultSaveRetries,
		now:         time.Now,
		logger:      logger.Named("eligibility"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the reputation record for userID, lazily creating a
// default one (neutral trust, tier none) on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*model.ReputationRecord, error) {
	return s.store.GetOrCreate(ctx, userID)
}

// GetEligibility projects the current record into its eligibility view.
func (s *Service) GetEligibility(ctx context.Context, userID string) (model.EligibilitySnapshot, error) {
	rec, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return model.EligibilitySnapshot{}, err
	}
	return rec.Eligibility(), nil
}

// GetPillarBreakdown returns pillar scores plus the full factor bundles.
func (s *Service) GetPillarBreakdown(ctx context.Context, userID string) (model.PillarBreakdown, error) {
	rec, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return model.PillarBreakdown{}, err
	}
	return rec.Breakdown(), nil
}

// ImprovementTips suggests fixes for the user's lowest-scoring pillars.
// Derived only; nothing is persisted.
func (s *Service) ImprovementTips(ctx context.Context, userID string) ([]model.Tip, error) {
	rec, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.ImprovementTips(), nil
}

// GetHistory returns up to limit snapshots for userID, newest first.
// A non-positive limit reads the default page of 20.
func (s *Service) GetHistory(ctx context.Context, userID string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.History(ctx, userID, limit)
}

// ListEligible returns eligible records ordered by total score descending,
// optionally filtered to one tier.
func (s *Service) ListEligible(ctx context.Context, tier model.Tier, limit int) ([]*model.ReputationRecord, error) {
	return s.store.ListEligible(ctx, tier, limit)
}

// Recalculate fetches every factor bundle, runs all six scorers and the
// aggregator, appends a snapshot tagged with trigger, and persists - all
// as one unit. A failing signal source aborts the whole recalculation and
// leaves the stored record untouched.
func (s *Service) Recalculate(ctx context.Context, userID, trigger string) (*model.ReputationRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= s.saveRetries; attempt++ {
		rec, err := s.store.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Stage everything in memory before the single persist.
		factors, err := s.sources.Collect(ctx, userID, s.now())
		if err != nil {
			metrics.RecordRecalculationFailure()
			metrics.RecordErrorByComponent("eligibility", "signal_source")
			return nil, fmt.Errorf("%w: %w", ErrRecalculationFailed, err)
		}

		now := s.now()
		prevTier := rec.Tier

		rec.Pillars.Engagement = model.EngagementState{
			Score:          scoring.Engagement(factors.Engagement),
			Factors:        factors.Engagement,
			LastCalculated: now,
		}
		rec.Pillars.Trust = model.TrustState{
			Score:          scoring.Trust(factors.Trust),
			Factors:        factors.Trust,
			LastCalculated: now,
		}
		rec.Pillars.Influence = model.InfluenceState{
			Score:          scoring.Influence(factors.Influence),
			Factors:        factors.Influence,
			LastCalculated: now,
		}
		rec.Pillars.EconomicValue = model.EconomicValueState{
			Score:          scoring.EconomicValue(factors.EconomicValue),
			Factors:        factors.EconomicValue,
			LastCalculated: now,
		}
		rec.Pillars.BrandAffinity = model.BrandAffinityState{
			Score:          scoring.BrandAffinity(factors.BrandAffinity),
			Factors:        factors.BrandAffinity,
			LastCalculated: now,
		}
		rec.Pillars.Network = model.NetworkState{
			Score:          scoring.Network(factors.Network),
			Factors:        factors.Network,
			LastCalculated: now,
		}

		snap := s.applyAggregate(rec, now, trigger)

		if err := s.store.Save(ctx, rec, snap); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		metrics.RecordRecalculation()
		metrics.RecordSnapshotAppended()
		if rec.Tier != prevTier {
			metrics.RecordTierTransition()
		}
		s.logger.Info(ctx, "recalculated reputation",
			logger.String("userID", userID),
			logger.String("trigger", trigger),
			logger.Float64("totalScore", rec.TotalScore),
			logger.String("tier", string(rec.Tier)),
		)
		return rec, nil
	}
	return nil, fmt.Errorf("recalculate %s: retries exhausted: %w", userID, lastErr)
}

// OverridePillars applies administrative pillar-score overrides with an
// audit snapshot. Validation failures reject the whole request without
// touching the stored record.
func (s *Service) OverridePillars(ctx context.Context, userID string, updates map[model.PillarID]float64, reason, actorID string) (OverrideResult, error) {
	reason = strings.TrimSpace(reason)
	if err := validateOverride(updates, reason); err != nil {
		metrics.RecordOverrideRejection()
		return OverrideResult{}, err
	}

	trigger := fmt.Sprintf("admin_override by %s: %s", actorID, reason)

	var lastErr error
	for attempt := 0; attempt <= s.saveRetries; attempt++ {
		// Override-before-first-read still gets a default record.
		rec, err := s.store.GetOrCreate(ctx, userID)
		if err != nil {
			return OverrideResult{}, err
		}

		now := s.now()
		prevTier := rec.Tier
		for id, score := range updates {
			rec.Pillars.SetScore(id, score, now)
		}

		snap := s.applyAggregate(rec, now, trigger)

		if err := s.store.Save(ctx, rec, snap); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				lastErr = err
				continue
			}
			return OverrideResult{}, err
		}

		metrics.RecordOverride()
		metrics.RecordSnapshotAppended()
		if rec.Tier != prevTier {
			metrics.RecordTierTransition()
		}
		s.logger.Info(ctx, "applied pillar override",
			logger.String("userID", userID),
			logger.String("actorID", actorID),
			logger.Int("pillars", len(updates)),
			logger.Float64("totalScore", rec.TotalScore),
			logger.String("tier", string(rec.Tier)),
		)
		return OverrideResult{
			Record:           rec,
			AppliedOverrides: updates,
			NewTotalScore:    rec.TotalScore,
			NewTier:          rec.Tier,
			NewEligibility:   rec.IsEligible,
		}, nil
	}
	return OverrideResult{}, fmt.Errorf("override %s: retries exhausted: %w", userID, lastErr)
}

// AdminRecalculate recalculates on behalf of an administrator, tagging the
// audit snapshot with the acting admin.
func (s *Service) AdminRecalculate(ctx context.Context, userID, actorID string) (*model.ReputationRecord, error) {
	return s.Recalculate(ctx, userID, fmt.Sprintf("admin_recalculation by %s", actorID))
}

// Event-trigger helpers for upstream collaborators.

// OnOrderCompleted recalculates after an order reaches completed status.
func (s *Service) OnOrderCompleted(ctx context.Context, userID string) error {
	_, err := s.Recalculate(ctx, userID, TriggerOrderCompleted)
	return err
}

// OnReviewSubmitted recalculates after a review is submitted.
func (s *Service) OnReviewSubmitted(ctx context.Context, userID string) error {
	_, err := s.Recalculate(ctx, userID, TriggerReviewSubmitted)
	return err
}

// OnReferralCompleted recalculates after a referral completes.
func (s *Service) OnReferralCompleted(ctx context.Context, userID string) error {
	_, err := s.Recalculate(ctx, userID, TriggerReferralCompleted)
	return err
}

// applyAggregate runs the aggregator over the record's pillar scores,
// writes the derived fields, and appends the audit snapshot.
func (s *Service) applyAggregate(rec *model.ReputationRecord, now time.Time, trigger string) model.Snapshot {
	result := scoring.Aggregate(rec.Pillars.Scores())
	rec.TotalScore = result.TotalScore
	rec.Tier = result.Tier
	rec.IsEligible = result.IsEligible
	rec.LastCalculated = now
	rec.CalculationVersion = model.CalculationVersion

	snap := model.NewSnapshot(now, result.TotalScore, result.Tier, rec.Pillars.Scores(), trigger)
	rec.AppendSnapshot(snap)
	return snap
}

func validateOverride(updates map[model.PillarID]float64, reason string) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: at least one pillar score must be provided", ErrValidation)
	}
	for id, score := range updates {
		if !model.ValidPillar(id) {
			return fmt.Errorf("%w: invalid pillar %q", ErrValidation, id)
		}
		if score != model.ClampScore(score) {
			return fmt.Errorf("%w: score for %q must be between 0 and 100", ErrValidation, id)
		}
	}
	if len(reason) < minReasonLength {
		return fmt.Errorf("%w: reason must be at least %d characters", ErrValidation, minReasonLength)
	}
	if len(reason) > maxReasonLength {
		return fmt.Errorf("%w: reason must be at most %d characters", ErrValidation, maxReasonLength)
	}
	return nil
}
