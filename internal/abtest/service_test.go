// internal/abtest/service_test.go
package abtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/storage"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestService(t *testing.T, kv storage.KV) (*Service, *analytics.MemorySink) {
	sink := analytics.NewMemorySink(0)
	emitter := analytics.NewEmitter(sink, logger.NewTestLogger(t))

	svc, err := NewService(
		Config{TestName: "headline_variants", StorageKey: "headline_variant"},
		DefaultCatalog(),
		kv, emitter, logger.NewTestLogger(t),
	)
	require.NoError(t, err)
	return svc, sink
}

func eventsNamed(sink *analytics.MemorySink, name string) []analytics.Event {
	var out []analytics.Event
	for _, e := range sink.Snapshot() {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// ==========================
// Construction
// ==========================

func TestNewService_RejectsBadCatalog(t *testing.T) {
	kv := storage.NewMemoryKV()
	emitter := analytics.NewEmitter(nil, logger.NewNoOpLogger())

	_, err := NewService(Config{}, nil, kv, emitter, logger.NewNoOpLogger())
	assert.Error(t, err)

	_, err = NewService(Config{}, []HeadlineVariant{{ID: "x", Weight: 0}}, kv, emitter, logger.NewNoOpLogger())
	assert.Error(t, err)
}

// ==========================
// Assignment
// ==========================

func TestSelectVariant_StickyAcrossCalls(t *testing.T) {
	svc, sink := createTestService(t, storage.NewMemoryKV())
	ctx := context.Background()

	first := svc.SelectVariant(ctx, "visitor-1")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first.ID, svc.SelectVariant(ctx, "visitor-1").ID)
	}

	// Only the first call assigns.
	assert.Len(t, eventsNamed(sink, analytics.EventABAssignment), 1)
}

func TestSelectVariant_IndependentVisitors(t *testing.T) {
	svc, _ := createTestService(t, storage.NewMemoryKV())
	ctx := context.Background()

	// Force distinct buckets via the injected draw.
	draws := []int{0, 30, 60, 90}
	i := 0
	svc.randFunc = func(n int) int {
		r := draws[i%len(draws)]
		i++
		return r
	}

	seen := map[string]string{}
	for v := 0; v < 4; v++ {
		id := fmt.Sprintf("visitor-%d", v)
		seen[id] = svc.SelectVariant(ctx, id).ID
	}

	assert.Equal(t, "original", seen["visitor-0"])
	assert.Equal(t, "performance-focused", seen["visitor-1"])
	assert.Equal(t, "roi-focused", seen["visitor-2"])
	assert.Equal(t, "speed-focused", seen["visitor-3"])
}

func TestSelectVariant_WeightedDistribution(t *testing.T) {
	kv := storage.NewMemoryKV()
	svc, _ := createTestService(t, kv)
	ctx := context.Background()

	counts := map[string]int{}
	const trials = 10000
	for i := 0; i < trials; i++ {
		// A fresh visitor per trial keeps every draw independent.
		id := fmt.Sprintf("visitor-%d", i)
		counts[svc.SelectVariant(ctx, id).ID]++
	}

	for _, v := range DefaultCatalog() {
		share := float64(counts[v.ID]) / trials
		assert.InDelta(t, 0.25, share, 0.03, "variant %s share", v.ID)
	}
}

func TestSelectVariant_UnknownPersistedIDReassigns(t *testing.T) {
	kv := storage.NewMemoryKV()
	svc, _ := createTestService(t, kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "headline_variant:visitor-1", "retired-variant", 0))

	variant := svc.SelectVariant(ctx, "visitor-1")
	_, ok := svc.Lookup(variant.ID)
	assert.True(t, ok)

	// The fresh assignment is persisted over the stale one.
	stored, err := kv.Get(ctx, "headline_variant:visitor-1")
	require.NoError(t, err)
	assert.Equal(t, variant.ID, stored)
}

func TestSelectVariant_StorageFailureStillServes(t *testing.T) {
	svc, sink := createTestService(t, storage.FailingKV{Err: assert.AnError})
	ctx := context.Background()

	variant := svc.SelectVariant(ctx, "visitor-1")
	_, ok := svc.Lookup(variant.ID)
	assert.True(t, ok)

	// Assignment still emitted even though persistence failed.
	assert.Len(t, eventsNamed(sink, analytics.EventABAssignment), 1)
}

func TestSelectVariant_ClearedStorageRedraws(t *testing.T) {
	kv := storage.NewMemoryKV()
	svc, sink := createTestService(t, kv)
	ctx := context.Background()

	svc.SelectVariant(ctx, "visitor-1")
	kv.Delete("headline_variant:visitor-1")
	svc.SelectVariant(ctx, "visitor-1")

	assert.Len(t, eventsNamed(sink, analytics.EventABAssignment), 2)
}

// ==========================
// Conversions
// ==========================

func TestTrackConversion_AttributesToAssignedVariant(t *testing.T) {
	svc, sink := createTestService(t, storage.NewMemoryKV())
	ctx := context.Background()

	assigned := svc.SelectVariant(ctx, "visitor-1")
	svc.TrackConversion(ctx, "visitor-1", ConversionSegmentSelect)

	conversions := eventsNamed(sink, analytics.EventABConversion)
	require.Len(t, conversions, 1)
	assert.Equal(t, assigned.ID, conversions[0].Fields["variant_id"])
	assert.Equal(t, "segment_select", conversions[0].Fields["conversion_event"])
	assert.Equal(t, "headline_variants", conversions[0].Fields["test_name"])
}

func TestTrackConversion_NoOpWithoutAssignment(t *testing.T) {
	svc, sink := createTestService(t, storage.NewMemoryKV())

	svc.TrackConversion(context.Background(), "never-seen", ConversionEmailSubmit)
	assert.Empty(t, eventsNamed(sink, analytics.EventABConversion))
}

func TestAssignedVariantID(t *testing.T) {
	kv := storage.NewMemoryKV()
	svc, _ := createTestService(t, kv)
	ctx := context.Background()

	assert.Equal(t, "", svc.AssignedVariantID(ctx, "visitor-1"))

	assigned := svc.SelectVariant(ctx, "visitor-1")
	assert.Equal(t, assigned.ID, svc.AssignedVariantID(ctx, "visitor-1"))

	// A stale id no longer in the catalog reads as unassigned.
	require.NoError(t, kv.Set(ctx, "headline_variant:visitor-2", "retired", 0))
	assert.Equal(t, "", svc.AssignedVariantID(ctx, "visitor-2"))
}

// ==========================
// Draw mechanics
// ==========================

func TestDraw_CumulativeWalk(t *testing.T) {
	svc, _ := createTestService(t, storage.NewMemoryKV())

	tests := []struct {
		roll    int
		wantID  string
	}{
		{roll: 0, wantID: "original"},
		{roll: 24, wantID: "original"},
		{roll: 25, wantID: "performance-focused"},
		{roll: 49, wantID: "performance-focused"},
		{roll: 50, wantID: "roi-focused"},
		{roll: 74, wantID: "roi-focused"},
		{roll: 75, wantID: "speed-focused"},
		{roll: 99, wantID: "speed-focused"},
	}

	for _, tt := range tests {
		svc.randFunc = func(n int) int { return tt.roll }
		assert.Equal(t, tt.wantID, svc.draw().ID, "roll %d", tt.roll)
	}
}
