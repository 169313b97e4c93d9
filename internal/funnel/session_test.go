// internal/funnel/session_test.go
package funnel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-funnel/internal/abtest"
	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/errors"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/delivery"
	"lead-funnel/internal/models"
	"lead-funnel/internal/storage"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingDeliverer struct {
	mu    sync.Mutex
	leads []models.LeadRecord
	metas []delivery.Meta
	err   error
}

func (d *recordingDeliverer) Deliver(_ context.Context, lead models.LeadRecord, meta delivery.Meta) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leads = append(d.leads, lead)
	d.metas = append(d.metas, meta)
	return d.err
}

func (d *recordingDeliverer) delivered() []models.LeadRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.LeadRecord(nil), d.leads...)
}

type testEnv struct {
	session   *Session
	sink      *analytics.MemorySink
	deliverer *recordingDeliverer
	kv        *storage.MemoryKV
	ab        *abtest.Service
}

func createTestEnv(t *testing.T, delay time.Duration) *testEnv {
	sink := analytics.NewMemorySink(0)
	emitter := analytics.NewEmitter(sink, logger.NewTestLogger(t))
	kv := storage.NewMemoryKV()

	ab, err := abtest.NewService(
		abtest.Config{TestName: "headline_variants", StorageKey: "headline_variant"},
		abtest.DefaultCatalog(), kv, emitter, logger.NewTestLogger(t),
	)
	require.NoError(t, err)

	deliverer := &recordingDeliverer{}
	deps := Deps{
		AB:        ab,
		Emitter:   emitter,
		Deliverer: deliverer,
		Logger:    logger.NewTestLogger(t),
		StepDelay: delay,
	}

	meta := delivery.Meta{UserAgent: "test-agent", Referrer: "https://google.com", URL: "https://adeyseymedia.com/"}
	return &testEnv{
		session:   NewSession("session-1", "visitor-1", meta, deps),
		sink:      sink,
		deliverer: deliverer,
		kv:        kv,
		ab:        ab,
	}
}

func stepEvents(sink *analytics.MemorySink) []analytics.Event {
	var out []analytics.Event
	for _, e := range sink.Snapshot() {
		if e.Event == analytics.EventStepCompleted {
			out = append(out, e)
		}
	}
	return out
}

func advanceToUserType(t *testing.T, env *testEnv) {
	ctx := context.Background()
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))
	require.NoError(t, env.session.SubmitPhone(ctx, "+14155550123"))
}

func advanceToCreatorDetails(t *testing.T, env *testEnv) {
	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))
	require.NoError(t, env.session.TogglePlatform("tiktok", true))
	require.NoError(t, env.session.TogglePlatform("instagram", true))
	require.NoError(t, env.session.SubmitPlatforms(ctx))
}

// ==========================
// Email step
// ==========================

func TestSubmitEmail_ValidAdvances(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	state := env.session.Snapshot()
	assert.Equal(t, StepPhone, state.Step)
	assert.Equal(t, "jane@example.com", state.Email)
	assert.Empty(t, state.Errors)

	events := stepEvents(env.sink)
	require.Len(t, events, 1)
	assert.Equal(t, "email", events[0].Fields["step"])
	assert.Equal(t, "example.com", events[0].Fields["email_domain"])
}

func TestSubmitEmail_InvalidStaysWithFieldError(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()

	err := env.session.SubmitEmail(ctx, "not-an-email")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmailInvalid, errors.CodeOf(err))

	state := env.session.Snapshot()
	assert.Equal(t, StepEmail, state.Step)
	assert.Equal(t, "Please enter a valid email address", state.Errors["email"])
	assert.False(t, state.Submitting)
	assert.Empty(t, stepEvents(env.sink))
}

func TestSubmitEmail_RetryAfterFailureClearsError(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()

	require.Error(t, env.session.SubmitEmail(ctx, ""))
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	state := env.session.Snapshot()
	assert.Equal(t, StepPhone, state.Step)
	assert.Empty(t, state.Errors)
}

// ==========================
// Phone step
// ==========================

func TestSubmitPhone_OptionalEmptyAdvances(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	require.NoError(t, env.session.SubmitPhone(ctx, ""))
	assert.Equal(t, StepUserType, env.session.Snapshot().Step)

	events := stepEvents(env.sink)
	require.Len(t, events, 2)
	assert.Equal(t, false, events[1].Fields["phone_provided"])
}

func TestSubmitPhone_TooShortStays(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	err := env.session.SubmitPhone(ctx, "555-0123")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePhoneInvalid, errors.CodeOf(err))

	state := env.session.Snapshot()
	assert.Equal(t, StepPhone, state.Step)
	assert.Equal(t, "Phone number must be at least 10 digits", state.Errors["phone"])
}

func TestSkipPhone(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	require.NoError(t, env.session.SkipPhone())
	state := env.session.Snapshot()
	assert.Equal(t, StepUserType, state.Step)
	assert.Equal(t, "", state.Phone)

	// Skipping emits no step event; nothing was submitted.
	assert.Len(t, stepEvents(env.sink), 1)
}

func TestSkipPhone_WrongStepRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	err := env.session.SkipPhone()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))
}

// ==========================
// User type branch
// ==========================

func TestSelectUserType_BrandCompletesImmediately(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)

	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeBrand))

	state := env.session.Snapshot()
	assert.Equal(t, StepComplete, state.Step)

	leads := env.deliverer.delivered()
	require.Len(t, leads, 1)
	assert.Equal(t, models.UserTypeBrand, leads[0].UserType)
	assert.Equal(t, "jane@example.com", leads[0].Email)
	// Brand leads carry no creator-only fields.
	assert.Empty(t, leads[0].Name)
	assert.Empty(t, leads[0].Platforms)
	assert.Empty(t, leads[0].PlatformDetails)
	assert.Empty(t, leads[0].ReferralSource)
}

func TestSelectUserType_CreatorContinues(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)

	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))
	assert.Equal(t, StepPlatforms, env.session.Snapshot().Step)
	assert.Empty(t, env.deliverer.delivered())
}

func TestSelectUserType_FiresSegmentConversion(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()

	// An assignment must exist for conversions to attribute.
	env.ab.SelectVariant(ctx, "visitor-1")
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))

	var conversions []analytics.Event
	for _, e := range env.sink.Snapshot() {
		if e.Event == analytics.EventABConversion {
			conversions = append(conversions, e)
		}
	}
	require.Len(t, conversions, 1)
	assert.Equal(t, "segment_select", conversions[0].Fields["conversion_event"])
}

func TestSelectUserType_UnknownRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	advanceToUserType(t, env)

	err := env.session.SelectUserType(context.Background(), "agency")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownUserType, errors.CodeOf(err))
	assert.Equal(t, StepUserType, env.session.Snapshot().Step)
}

// ==========================
// Platforms step
// ==========================

func TestTogglePlatform_DetailsTrackMembership(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))

	require.NoError(t, env.session.TogglePlatform("tiktok", true))
	require.NoError(t, env.session.TogglePlatform("youtube", true))

	state := env.session.Snapshot()
	assert.Equal(t, []string{"tiktok", "youtube"}, state.Platforms)
	assert.Contains(t, state.PlatformDetails, "tiktok")
	assert.Contains(t, state.PlatformDetails, "youtube")

	// Toggle-on twice never duplicates.
	require.NoError(t, env.session.TogglePlatform("tiktok", true))
	assert.Len(t, env.session.Snapshot().Platforms, 2)

	// Toggle-off removes selection and detail together.
	require.NoError(t, env.session.TogglePlatform("tiktok", false))
	state = env.session.Snapshot()
	assert.Equal(t, []string{"youtube"}, state.Platforms)
	assert.NotContains(t, state.PlatformDetails, "tiktok")
}

func TestTogglePlatform_UnknownRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))

	err := env.session.TogglePlatform("myspace", true)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownPlatform, errors.CodeOf(err))
}

func TestSubmitPlatforms_EmptySelectionRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))

	err := env.session.SubmitPlatforms(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePlatformsRequired, errors.CodeOf(err))

	state := env.session.Snapshot()
	assert.Equal(t, StepPlatforms, state.Step)
	assert.Equal(t, "Please select at least one platform", state.Errors["platforms"])
}

func TestSubmitPlatforms_Advances(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeCreator))
	require.NoError(t, env.session.TogglePlatform("tiktok", true))

	require.NoError(t, env.session.SubmitPlatforms(ctx))
	assert.Equal(t, StepCreatorDetails, env.session.Snapshot().Step)

	events := stepEvents(env.sink)
	last := events[len(events)-1]
	assert.Equal(t, "platforms", last.Fields["step"])
	assert.Equal(t, 1, last.Fields["platforms_selected"])
}

// ==========================
// Creator details step
// ==========================

func TestSubmitCreatorDetails_CompletesAndDelivers(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToCreatorDetails(t, env)

	env.session.SetName("Jane Doe")
	env.session.SetReferralSource("Google Search")
	require.NoError(t, env.session.UpdatePlatformDetail("tiktok", "username", "@jane"))
	require.NoError(t, env.session.UpdatePlatformDetail("tiktok", "followerCount", "10K - 100K (Micro-influencer)"))
	require.NoError(t, env.session.UpdatePlatformDetail("instagram", "username", "@jane.gram"))
	require.NoError(t, env.session.UpdatePlatformDetail("instagram", "followerCount", "1K - 10K (Nano-influencer)"))

	require.NoError(t, env.session.SubmitCreatorDetails(ctx))
	assert.Equal(t, StepComplete, env.session.Snapshot().Step)

	leads := env.deliverer.delivered()
	require.Len(t, leads, 1)
	lead := leads[0]
	assert.Equal(t, models.UserTypeCreator, lead.UserType)
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, []string{"tiktok", "instagram"}, lead.Platforms)
	assert.Equal(t, "@jane", lead.PlatformDetails["tiktok"].Username)
	assert.Equal(t, "Google Search", lead.ReferralSource)
	assert.Greater(t, lead.CompletionTime, int64(0))
	assert.GreaterOrEqual(t, lead.CompletionTime, lead.FormStartTime)

	// The meta from session start rides along to delivery.
	require.Len(t, env.deliverer.metas, 1)
	assert.Equal(t, "test-agent", env.deliverer.metas[0].UserAgent)
}

func TestSubmitCreatorDetails_MissingNameRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToCreatorDetails(t, env)

	err := env.session.SubmitCreatorDetails(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNameRequired, errors.CodeOf(err))
	assert.Equal(t, "Name is required", env.session.Snapshot().Errors["name"])
	assert.Empty(t, env.deliverer.delivered())
}

func TestSubmitCreatorDetails_IncompleteDetailsRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToCreatorDetails(t, env)

	env.session.SetName("Jane Doe")
	require.NoError(t, env.session.UpdatePlatformDetail("tiktok", "username", "@jane"))
	// tiktok has no follower count, instagram has nothing.

	err := env.session.SubmitCreatorDetails(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodePlatformDetailsIncomplete, errors.CodeOf(err))
	assert.Equal(t, "Please complete all platform details", env.session.Snapshot().Errors["platforms"])
}

func TestUpdatePlatformDetail_UnselectedPlatformRejected(t *testing.T) {
	env := createTestEnv(t, 0)
	advanceToCreatorDetails(t, env)

	err := env.session.UpdatePlatformDetail("youtube", "username", "@jane")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownPlatform, errors.CodeOf(err))
}

// ==========================
// Back navigation
// ==========================

func TestBack_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		advance  func(t *testing.T, env *testEnv)
		wantFrom Step
		wantTo   Step
	}{
		{
			name: "phone to email",
			advance: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.session.SubmitEmail(context.Background(), "jane@example.com"))
			},
			wantFrom: StepPhone,
			wantTo:   StepEmail,
		},
		{
			name:     "user type to phone",
			advance:  advanceToUserType,
			wantFrom: StepUserType,
			wantTo:   StepPhone,
		},
		{
			name: "platforms to user type",
			advance: func(t *testing.T, env *testEnv) {
				advanceToUserType(t, env)
				require.NoError(t, env.session.SelectUserType(context.Background(), models.UserTypeCreator))
			},
			wantFrom: StepPlatforms,
			wantTo:   StepUserType,
		},
		{
			name:     "creator details to platforms",
			advance:  advanceToCreatorDetails,
			wantFrom: StepCreatorDetails,
			wantTo:   StepPlatforms,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := createTestEnv(t, 0)
			tt.advance(t, env)
			require.Equal(t, tt.wantFrom, env.session.Snapshot().Step)

			require.NoError(t, env.session.Back())
			assert.Equal(t, tt.wantTo, env.session.Snapshot().Step)
		})
	}
}

func TestBack_NoEdgeFromEmailOrComplete(t *testing.T) {
	env := createTestEnv(t, 0)
	err := env.session.Back()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))

	ctx := context.Background()
	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeBrand))
	assert.Error(t, env.session.Back())
}

func TestBack_PreservesEnteredData(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()
	advanceToUserType(t, env)

	require.NoError(t, env.session.Back())
	state := env.session.Snapshot()
	assert.Equal(t, StepPhone, state.Step)
	assert.Equal(t, "jane@example.com", state.Email)
	assert.Equal(t, "+14155550123", state.Phone)

	// Resubmitting moves forward again.
	require.NoError(t, env.session.SubmitPhone(ctx, "+14155550123"))
	assert.Equal(t, StepUserType, env.session.Snapshot().Step)
}

// ==========================
// Submitting gate
// ==========================

func TestSubmittingGate_RejectsConcurrentSubmit(t *testing.T) {
	env := createTestEnv(t, 100*time.Millisecond)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- env.session.SubmitEmail(ctx, "jane@example.com") }()

	// Let the first submit take the gate, then collide with it.
	time.Sleep(20 * time.Millisecond)
	err := env.session.SubmitEmail(ctx, "jane@example.com")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateSubmit, errors.CodeOf(err))

	require.NoError(t, <-done)
	assert.Equal(t, StepPhone, env.session.Snapshot().Step)
}

func TestSubmittingGate_BlocksBackWhileInFlight(t *testing.T) {
	env := createTestEnv(t, 100*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	done := make(chan error, 1)
	go func() { done <- env.session.SubmitPhone(ctx, "+14155550123") }()

	time.Sleep(20 * time.Millisecond)
	err := env.session.Back()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateSubmit, errors.CodeOf(err))

	require.NoError(t, <-done)
}

func TestDelay_CancelledContextStopsAdvance(t *testing.T) {
	env := createTestEnv(t, 200*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.session.SubmitEmail(ctx, "jane@example.com") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.Equal(t, StepEmail, env.session.Snapshot().Step)
}

// ==========================
// Delivery decoupling
// ==========================

func TestCompletion_DeliveryFailureDoesNotBlock(t *testing.T) {
	env := createTestEnv(t, 0)
	env.deliverer.err = assert.AnError
	ctx := context.Background()

	advanceToUserType(t, env)
	require.NoError(t, env.session.SelectUserType(ctx, models.UserTypeBrand))

	// Completion holds even though delivery failed.
	assert.Equal(t, StepComplete, env.session.Snapshot().Step)
	require.NotNil(t, env.session.Lead())
	assert.Len(t, env.deliverer.delivered(), 1)
}

// ==========================
// Step event fields
// ==========================

func TestStepEvents_CarryVariantWhenAssigned(t *testing.T) {
	env := createTestEnv(t, 0)
	ctx := context.Background()

	assigned := env.ab.SelectVariant(ctx, "visitor-1")
	require.NoError(t, env.session.SubmitEmail(ctx, "jane@example.com"))

	events := stepEvents(env.sink)
	require.Len(t, events, 1)
	assert.Equal(t, assigned.ID, events[0].Fields["headline_variant"])
	assert.Contains(t, events[0].Fields, "form_duration")
}
