// internal/abtest/service.go
package abtest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/common/metrics"
	"lead-funnel/internal/storage"
)

// Config holds the test identity and storage knobs.
type Config struct {
	TestName   string
	StorageKey string
	// AssignmentTTL bounds how long an assignment sticks. Zero means the
	// stored key lives forever.
	AssignmentTTL time.Duration
}

// Service assigns headline variants with sticky, weighted-random semantics
// and attributes conversions back to the assigned variant.
type Service struct {
	cfg      Config
	catalog  []HeadlineVariant
	total    int
	store    storage.KV
	emitter  *analytics.Emitter
	logger   logger.Logger
	randFunc func(n int) int
}

// NewService builds a Service over a fixed catalog. Weights must be positive;
// a bad catalog is a programming error surfaced at startup.
func NewService(cfg Config, catalog []HeadlineVariant, store storage.KV, emitter *analytics.Emitter, log logger.Logger) (*Service, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("variant catalog is empty")
	}
	total := 0
	for _, v := range catalog {
		if v.Weight <= 0 {
			return nil, fmt.Errorf("variant %q has non-positive weight %d", v.ID, v.Weight)
		}
		total += v.Weight
	}

	return &Service{
		cfg:      cfg,
		catalog:  catalog,
		total:    total,
		store:    store,
		emitter:  emitter,
		logger:   log.WithFields(map[string]interface{}{"testName": cfg.TestName}),
		randFunc: rand.Intn,
	}, nil
}

// Catalog returns the variant catalog.
func (s *Service) Catalog() []HeadlineVariant {
	return s.catalog
}

// Lookup finds a catalog entry by id.
func (s *Service) Lookup(id string) (HeadlineVariant, bool) {
	for _, v := range s.catalog {
		if v.ID == id {
			return v, true
		}
	}
	return HeadlineVariant{}, false
}

// SelectVariant returns the sticky variant for a visitor, assigning one on
// first sight. Storage failures and unknown persisted ids fall back to a
// fresh assignment: headline display must never block on storage.
func (s *Service) SelectVariant(ctx context.Context, visitorID string) HeadlineVariant {
	key := s.storageKey(visitorID)

	if stored, err := s.store.Get(ctx, key); err == nil {
		if variant, ok := s.Lookup(stored); ok {
			return variant
		}
		s.logger.Warn("persisted variant not in catalog, reassigning", map[string]interface{}{
			"visitorId": visitorID,
			"variantId": stored,
		})
	} else if err != storage.ErrNotFound {
		s.logger.Warn("assignment storage read failed, reassigning", map[string]interface{}{
			"visitorId": visitorID,
			"error":     err.Error(),
		})
	}

	variant := s.draw()

	if err := s.store.Set(ctx, key, variant.ID, s.cfg.AssignmentTTL); err != nil {
		// Best effort. The visitor may land in a different bucket next
		// time, which only matters once storage recovers.
		s.logger.Warn("assignment storage write failed", map[string]interface{}{
			"visitorId": visitorID,
			"error":     err.Error(),
		})
	}

	metrics.ABAssignments.WithLabelValues(variant.ID).Inc()
	s.emitter.Emit(ctx, analytics.EventABAssignment, map[string]interface{}{
		"test_name":  s.cfg.TestName,
		"variant_id": variant.ID,
	})

	return variant
}

// TrackConversion attributes a conversion to the visitor's assigned variant.
// No-op when no assignment is persisted yet.
func (s *Service) TrackConversion(ctx context.Context, visitorID string, event ConversionEvent) {
	stored, err := s.store.Get(ctx, s.storageKey(visitorID))
	if err != nil || stored == "" {
		return
	}

	metrics.ABConversions.WithLabelValues(stored, string(event)).Inc()
	s.emitter.Emit(ctx, analytics.EventABConversion, map[string]interface{}{
		"test_name":        s.cfg.TestName,
		"variant_id":       stored,
		"conversion_event": string(event),
	})
}

// AssignedVariantID returns the persisted assignment, "" when none.
func (s *Service) AssignedVariantID(ctx context.Context, visitorID string) string {
	stored, err := s.store.Get(ctx, s.storageKey(visitorID))
	if err != nil {
		return ""
	}
	if _, ok := s.Lookup(stored); !ok {
		return ""
	}
	return stored
}

// draw performs the weighted random selection: a uniform draw in
// [0, totalWeight) and a cumulative walk over the catalog.
func (s *Service) draw() HeadlineVariant {
	r := s.randFunc(s.total)
	cumulative := 0
	for _, v := range s.catalog {
		cumulative += v.Weight
		if r < cumulative {
			return v
		}
	}
	// Unreachable while weights sum to total.
	return s.catalog[len(s.catalog)-1]
}

func (s *Service) storageKey(visitorID string) string {
	return s.cfg.StorageKey + ":" + visitorID
}
