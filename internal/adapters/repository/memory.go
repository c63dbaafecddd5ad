package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/prive/internal/domain/model"
	"github.com/okian/prive/pkg/metrics"
)

// entry pairs a stored record with its full snapshot log. The log is
// unbounded here; the record's own history window stays capped.
type entry struct {
	rec *model.ReputationRecord
	log []model.Snapshot
}

// MemoryStore is a mutex-guarded in-memory Store. Records are deep-copied
// on the way in and out, so callers never alias stored state.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*entry)}
}

// GetOrCreate implements Store. Creation is atomic under the store mutex.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*model.ReputationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[userID]
	if !ok {
		e = &entry{rec: model.NewRecord(userID)}
		s.byID[userID] = e
		metrics.UpdateRecordsTotal(len(s.byID))
	}
	return e.rec.Clone(), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*model.ReputationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return e.rec.Clone(), nil
}

// Save implements Store with a compare-and-set on the record revision.
func (s *MemoryStore) Save(ctx context.Context, rec *model.ReputationRecord, snaps ...model.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[rec.UserID]
	if !ok {
		return ErrNotFound
	}
	if e.rec.Revision != rec.Revision {
		metrics.RecordSaveConflict()
		return ErrConflict
	}

	rec.Revision++
	stored := rec.Clone()
	e.rec = stored
	e.log = append(e.log, snaps...)
	return nil
}

// History implements Store, reading newest-first from the unbounded log.
func (s *MemoryStore) History(ctx context.Context, userID string, limit int) ([]model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if limit <= 0 || limit > len(e.log) {
		limit = len(e.log)
	}

	out := make([]model.Snapshot, 0, limit)
	for i := len(e.log) - 1; i >= len(e.log)-limit; i-- {
		out = append(out, e.log[i])
	}
	return out, nil
}

// ListEligible implements Store.
func (s *MemoryStore) ListEligible(ctx context.Context, tier model.Tier, limit int) ([]*model.ReputationRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	matched := make([]*model.ReputationRecord, 0)
	for _, e := range s.byID {
		if !e.rec.IsEligible {
			continue
		}
		if tier != "" && e.rec.Tier != tier {
			continue
		}
		matched = append(matched, e.rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TotalScore != matched[j].TotalScore {
			return matched[i].TotalScore > matched[j].TotalScore
		}
		return matched[i].UserID < matched[j].UserID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close implements Store. Nothing to release.
func (s *MemoryStore) Close() error {
	return nil
}
