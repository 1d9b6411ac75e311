package cache

import (
	"context"
	"log/slog"

	"surveypulse/internal/model"
	"surveypulse/internal/observability"
)

// CriteriaSource is the backing store the tiered cache falls through to.
type CriteriaSource interface {
	GetByID(ctx context.Context, id string) (*model.CriteriaSet, error)
	GetByName(ctx context.Context, name string) (*model.CriteriaSet, error)
}

// CachedCriteriaStore reads criteria sets through L1 memory, then L2 Redis,
// then the document store. Redis failures degrade to a store read.
type CachedCriteriaStore struct {
	source CriteriaSource
	l1     *MemoryCache
	l2     CriteriaCache
	logger *slog.Logger
}

// NewCachedCriteriaStore wires the tiers. l1 and l2 may each be nil.
func NewCachedCriteriaStore(source CriteriaSource, l1 *MemoryCache, l2 CriteriaCache, logger *slog.Logger) *CachedCriteriaStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCriteriaStore{source: source, l1: l1, l2: l2, logger: logger}
}

// GetByID returns (nil, nil) when the set does not exist. Misses are not cached.
func (s *CachedCriteriaStore) GetByID(ctx context.Context, id string) (*model.CriteriaSet, error) {
	if s.l1 != nil {
		if set, ok := s.l1.Get(id); ok {
			observability.CriteriaCacheHits.WithLabelValues("l1").Inc()
			return set, nil
		}
	}

	if s.l2 != nil {
		set, err := s.l2.Get(ctx, id)
		if err != nil {
			s.logger.Warn("criteria cache read failed", "criteria_set_id", id, "error", err)
		} else if set != nil {
			observability.CriteriaCacheHits.WithLabelValues("l2").Inc()
			s.fillL1(id, set)
			return set, nil
		}
	}

	observability.CriteriaCacheMisses.Inc()
	set, err := s.source.GetByID(ctx, id)
	if err != nil || set == nil {
		return set, err
	}

	if s.l2 != nil {
		if err := s.l2.Set(ctx, set); err != nil {
			s.logger.Warn("criteria cache write failed", "criteria_set_id", id, "error", err)
		}
	}
	s.fillL1(id, set)
	return set, nil
}

// GetByName caches by name in L1 only.
func (s *CachedCriteriaStore) GetByName(ctx context.Context, name string) (*model.CriteriaSet, error) {
	key := "name:" + name
	if s.l1 != nil {
		if set, ok := s.l1.Get(key); ok {
			observability.CriteriaCacheHits.WithLabelValues("l1").Inc()
			return set, nil
		}
	}

	observability.CriteriaCacheMisses.Inc()
	set, err := s.source.GetByName(ctx, name)
	if err != nil || set == nil {
		return set, err
	}
	s.fillL1(key, set)
	return set, nil
}

// Invalidate drops a set from both tiers after an admin change.
func (s *CachedCriteriaStore) Invalidate(ctx context.Context, set *model.CriteriaSet) error {
	if s.l1 != nil {
		s.l1.Del(set.ID)
		s.l1.Del("name:" + set.Name)
	}
	if s.l2 != nil {
		return s.l2.Delete(ctx, set.ID)
	}
	return nil
}

func (s *CachedCriteriaStore) fillL1(key string, set *model.CriteriaSet) {
	if s.l1 != nil {
		s.l1.Set(key, set)
	}
}
