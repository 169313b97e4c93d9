// internal/funnel/session.go
package funnel

import (
	"context"
	"sync"
	"time"

	"lead-funnel/internal/abtest"
	"lead-funnel/internal/analytics"
	"lead-funnel/internal/common/errors"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/common/metrics"
	"lead-funnel/internal/common/observability"
	"lead-funnel/internal/common/validation"
	"lead-funnel/internal/delivery"
	"lead-funnel/internal/models"
)

// Step identifies where a capture session stands.
type Step string

const (
	StepEmail          Step = "email"
	StepPhone          Step = "phone"
	StepUserType       Step = "userType"
	StepPlatforms      Step = "platforms"
	StepCreatorDetails Step = "creatorDetails"
	StepComplete       Step = "complete"
)

// backTransitions moves exactly one step backward. Email and complete have
// no backward edge.
var backTransitions = map[Step]Step{
	StepPhone:          StepEmail,
	StepUserType:       StepPhone,
	StepPlatforms:      StepUserType,
	StepCreatorDetails: StepPlatforms,
}

// Deps bundles the collaborators a session needs.
type Deps struct {
	AB        *abtest.Service
	Emitter   *analytics.Emitter
	Deliverer delivery.Deliverer
	Logger    logger.Logger

	// Obs is optional; nil disables the otel counters.
	Obs *observability.Observability

	// StepDelay simulates upstream latency before each advance. The delay
	// honours context cancellation so a torn-down session stops early.
	StepDelay time.Duration

	// Clock is overridable in tests. Nil means time.Now.
	Clock func() time.Time
}

// Session is one visitor's pass through the capture funnel. All mutation is
// serialized by the session mutex; Submitting rejects duplicate dispatch
// while a submit is in flight, mirroring the disabled submit button.
type Session struct {
	mu sync.Mutex

	id        string
	visitorID string
	meta      delivery.Meta
	deps      Deps
	clock     func() time.Time

	step       Step
	submitting bool
	stepStart  time.Time
	errors     map[string]string
	formStart  time.Time

	email           string
	phone           string
	userType        models.UserType
	name            string
	platforms       []string
	platformDetails map[string]models.PlatformDetail
	referralSource  string

	lead *models.LeadRecord
}

// NewSession starts a fresh session at the email step.
func NewSession(id, visitorID string, meta delivery.Meta, deps Deps) *Session {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Session{
		id:              id,
		visitorID:       visitorID,
		meta:            meta,
		deps:            deps,
		clock:           clock,
		step:            StepEmail,
		errors:          make(map[string]string),
		formStart:       clock(),
		platformDetails: make(map[string]models.PlatformDetail),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// VisitorID returns the visitor this session belongs to.
func (s *Session) VisitorID() string { return s.visitorID }

// State is a copy of the session for handlers and the debug endpoint.
type State struct {
	Step            Step                              `json:"step"`
	Submitting      bool                              `json:"submitting"`
	Errors          map[string]string                 `json:"errors"`
	Email           string                            `json:"email"`
	Phone           string                            `json:"phone,omitempty"`
	UserType        models.UserType                   `json:"userType,omitempty"`
	Name            string                            `json:"name,omitempty"`
	Platforms       []string                          `json:"platforms"`
	PlatformDetails map[string]models.PlatformDetail  `json:"platformDetails"`
	ReferralSource  string                            `json:"referralSource,omitempty"`
	FormStartTime   int64                             `json:"formStartTime"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Step:            s.step,
		Submitting:      s.submitting,
		Errors:          make(map[string]string, len(s.errors)),
		Email:           s.email,
		Phone:           s.phone,
		UserType:        s.userType,
		Name:            s.name,
		Platforms:       append([]string(nil), s.platforms...),
		PlatformDetails: make(map[string]models.PlatformDetail, len(s.platformDetails)),
		ReferralSource:  s.referralSource,
		FormStartTime:   s.formStart.UnixMilli(),
	}
	for k, v := range s.errors {
		st.Errors[k] = v
	}
	for k, v := range s.platformDetails {
		st.PlatformDetails[k] = v
	}
	return st
}

// Lead returns the synthesized record once the session is complete.
func (s *Session) Lead() *models.LeadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead
}

// ==========================
// Step submit handlers
// ==========================

// SubmitEmail validates and records the email, advancing to the phone step.
func (s *Session) SubmitEmail(ctx context.Context, email string) error {
	if err := s.begin(StepEmail, "submit"); err != nil {
		return err
	}
	defer s.end()

	s.setField(func() { s.email = email }, "email")

	if msg := validation.ValidateEmail(email); msg != "" {
		s.fail("email", msg)
		return errors.NewEmailInvalidError(email)
	}

	s.clearError("email")
	s.emitStepCompleted(ctx, StepEmail, nil)

	if err := s.delay(ctx); err != nil {
		return err
	}

	s.setStep(StepPhone)
	return nil
}

// SubmitPhone validates and records the phone, advancing to the user type
// step. Phone is optional everywhere: an empty value passes.
func (s *Session) SubmitPhone(ctx context.Context, phone string) error {
	if err := s.begin(StepPhone, "submit"); err != nil {
		return err
	}
	defer s.end()

	s.setField(func() { s.phone = phone }, "phone")

	if msg := validation.ValidatePhone(phone); msg != "" {
		s.fail("phone", msg)
		return errors.NewPhoneInvalidError(phone)
	}

	s.clearError("phone")
	s.emitStepCompleted(ctx, StepPhone, map[string]interface{}{
		"phone_provided": phone != "",
	})

	if err := s.delay(ctx); err != nil {
		return err
	}

	s.setStep(StepUserType)
	return nil
}

// SkipPhone advances past the optional phone step without a value.
func (s *Session) SkipPhone() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepPhone {
		return errors.NewInvalidTransitionError(string(s.step), "skip")
	}
	if s.submitting {
		return errors.NewDuplicateSubmitError(string(s.step))
	}

	s.step = StepUserType
	return nil
}

// SelectUserType records the segment and branches: brands complete
// immediately, creators continue to platform selection.
func (s *Session) SelectUserType(ctx context.Context, userType models.UserType) error {
	if !userType.Valid() {
		return &errors.StandardError{
			Code:      errors.ErrCodeUnknownUserType,
			Message:   "Unknown user type",
			Details:   string(userType),
			Timestamp: s.clock().UTC(),
		}
	}

	if err := s.begin(StepUserType, "submit"); err != nil {
		return err
	}
	defer s.end()

	s.setField(func() { s.userType = userType }, "")

	s.emitStepCompleted(ctx, StepUserType, map[string]interface{}{
		"user_type": string(userType),
	})
	s.deps.AB.TrackConversion(ctx, s.visitorID, abtest.ConversionSegmentSelect)

	if err := s.delay(ctx); err != nil {
		return err
	}

	if userType == models.UserTypeBrand {
		// Brands go straight to booking: synthesize and hand off now.
		s.completeWithLead(ctx)
		return nil
	}

	s.setStep(StepPlatforms)
	return nil
}

// TogglePlatform flips membership of a platform in the selection. Detail
// entries track membership exactly: toggle-on creates an empty entry once,
// toggle-off removes both.
func (s *Session) TogglePlatform(platformID string, selected bool) error {
	if !KnownPlatform(platformID) {
		return &errors.StandardError{
			Code:      errors.ErrCodeUnknownPlatform,
			Message:   "Unknown platform",
			Details:   platformID,
			Timestamp: s.clock().UTC(),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepPlatforms {
		return errors.NewInvalidTransitionError(string(s.step), "togglePlatform")
	}

	idx := -1
	for i, id := range s.platforms {
		if id == platformID {
			idx = i
			break
		}
	}

	if selected {
		if idx == -1 {
			s.platforms = append(s.platforms, platformID)
		}
		if _, ok := s.platformDetails[platformID]; !ok {
			s.platformDetails[platformID] = models.PlatformDetail{}
		}
	} else {
		if idx != -1 {
			s.platforms = append(s.platforms[:idx], s.platforms[idx+1:]...)
		}
		delete(s.platformDetails, platformID)
	}

	delete(s.errors, "platforms")
	return nil
}

// SubmitPlatforms requires at least one selection, then advances.
func (s *Session) SubmitPlatforms(ctx context.Context) error {
	if err := s.begin(StepPlatforms, "submit"); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	count := len(s.platforms)
	s.mu.Unlock()

	if count == 0 {
		s.fail("platforms", "Please select at least one platform")
		return &errors.StandardError{
			Code:      errors.ErrCodePlatformsRequired,
			Message:   "Please select at least one platform",
			Timestamp: s.clock().UTC(),
		}
	}

	s.clearError("platforms")
	s.emitStepCompleted(ctx, StepPlatforms, map[string]interface{}{
		"platforms_selected": count,
	})

	if err := s.delay(ctx); err != nil {
		return err
	}

	s.setStep(StepCreatorDetails)
	return nil
}

// UpdatePlatformDetail records a creator's username or follower count for a
// selected platform. Editing clears the shared platforms error.
func (s *Session) UpdatePlatformDetail(platformID, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != StepCreatorDetails && s.step != StepPlatforms {
		return errors.NewInvalidTransitionError(string(s.step), "updatePlatformDetail")
	}

	detail, ok := s.platformDetails[platformID]
	if !ok {
		return &errors.StandardError{
			Code:      errors.ErrCodeUnknownPlatform,
			Message:   "Platform not selected",
			Details:   platformID,
			Timestamp: s.clock().UTC(),
		}
	}

	switch field {
	case "username":
		detail.Username = value
	case "followerCount":
		detail.FollowerCount = value
	default:
		return errors.NewInvalidTransitionError(string(s.step), "updatePlatformDetail:"+field)
	}

	s.platformDetails[platformID] = detail
	delete(s.errors, "platforms")
	return nil
}

// SetName records the creator's name, clearing its error.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	delete(s.errors, "name")
	s.mu.Unlock()
}

// SetReferralSource records the optional referral source.
func (s *Session) SetReferralSource(source string) {
	s.mu.Lock()
	s.referralSource = source
	s.mu.Unlock()
}

// SubmitCreatorDetails validates the name and per-platform details, then
// synthesizes the lead and completes the session.
func (s *Session) SubmitCreatorDetails(ctx context.Context) error {
	if err := s.begin(StepCreatorDetails, "submit"); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	name := s.name
	missingDetails := false
	for _, id := range s.platforms {
		d := s.platformDetails[id]
		if d.Username == "" || d.FollowerCount == "" {
			missingDetails = true
			break
		}
	}
	count := len(s.platforms)
	referral := s.referralSource
	s.mu.Unlock()

	if msg := validation.ValidateName(name); msg != "" {
		s.fail("name", msg)
		return &errors.StandardError{
			Code:      errors.ErrCodeNameRequired,
			Message:   msg,
			Timestamp: s.clock().UTC(),
		}
	}

	if missingDetails {
		// Shared error key with the platforms step, kept on purpose.
		s.fail("platforms", "Please complete all platform details")
		return &errors.StandardError{
			Code:      errors.ErrCodePlatformDetailsIncomplete,
			Message:   "Please complete all platform details",
			Timestamp: s.clock().UTC(),
		}
	}

	s.clearError("name")
	s.clearError("platforms")
	s.emitStepCompleted(ctx, StepCreatorDetails, map[string]interface{}{
		"platforms_count": count,
		"referral_source": referral,
	})

	if err := s.delay(ctx); err != nil {
		return err
	}

	s.completeWithLead(ctx)
	return nil
}

// Back moves exactly one step backward.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return errors.NewDuplicateSubmitError(string(s.step))
	}

	prev, ok := backTransitions[s.step]
	if !ok {
		return errors.NewInvalidTransitionError(string(s.step), "back")
	}

	s.step = prev
	return nil
}

// ==========================
// Internals
// ==========================

// begin takes the submitting gate for a step submit.
func (s *Session) begin(step Step, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != step {
		return errors.NewInvalidTransitionError(string(s.step), action)
	}
	if s.submitting {
		return errors.NewDuplicateSubmitError(string(s.step))
	}

	s.submitting = true
	s.stepStart = s.clock()
	return nil
}

// end releases the submitting gate. Deferred on every submit path so the
// gate clears even on validation failure.
func (s *Session) end() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

func (s *Session) setField(set func(), clearError string) {
	s.mu.Lock()
	set()
	if clearError != "" {
		delete(s.errors, clearError)
	}
	s.mu.Unlock()
}

func (s *Session) fail(field, msg string) {
	s.mu.Lock()
	s.errors[field] = msg
	s.mu.Unlock()
	metrics.FunnelValidationFailures.WithLabelValues(field).Inc()
}

func (s *Session) clearError(field string) {
	s.mu.Lock()
	delete(s.errors, field)
	s.mu.Unlock()
}

func (s *Session) setStep(step Step) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
}

// delay suspends for the configured artificial latency. Cancelled contexts
// cut the suspension short so a torn-down session never advances afterwards.
func (s *Session) delay(ctx context.Context) error {
	if s.deps.StepDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.deps.StepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) emitStepCompleted(ctx context.Context, step Step, extra map[string]interface{}) {
	s.mu.Lock()
	email := s.email
	started := s.formStart
	stepStart := s.stepStart
	s.mu.Unlock()

	fields := map[string]interface{}{
		"step":          string(step),
		"form_duration": s.clock().Sub(started).Milliseconds(),
	}
	if domain := validation.EmailDomain(email); domain != "" {
		fields["email_domain"] = domain
	}
	if variant := s.deps.AB.AssignedVariantID(ctx, s.visitorID); variant != "" {
		fields["headline_variant"] = variant
	}
	for k, v := range extra {
		fields[k] = v
	}

	metrics.FunnelStepsCompleted.WithLabelValues(string(step)).Inc()
	if !stepStart.IsZero() {
		metrics.FunnelStepDuration.WithLabelValues(string(step)).Observe(s.clock().Sub(stepStart).Seconds())
	}
	if s.deps.Obs != nil {
		s.deps.Obs.RecordStepProcessed(ctx, string(step), "completed")
	}
	s.deps.Emitter.Emit(ctx, analytics.EventStepCompleted, fields)
}

// completeWithLead synthesizes the immutable LeadRecord, hands it to the
// deliverer exactly once, and moves to complete. Delivery failure is logged
// and instrumented but never blocks the local completion.
func (s *Session) completeWithLead(ctx context.Context) {
	now := s.clock()

	s.mu.Lock()
	lead := &models.LeadRecord{
		Email:           s.email,
		Phone:           s.phone,
		UserType:        s.userType,
		HeadlineVariant: s.deps.AB.AssignedVariantID(ctx, s.visitorID),
		TimeOnPage:      now.Sub(s.formStart).Milliseconds(),
		FormStartTime:   s.formStart.UnixMilli(),
		CompletionTime:  now.UnixMilli(),
	}
	if s.userType == models.UserTypeCreator {
		lead.Name = s.name
		lead.Platforms = append([]string(nil), s.platforms...)
		lead.PlatformDetails = make(map[string]models.PlatformDetail, len(s.platformDetails))
		for k, v := range s.platformDetails {
			lead.PlatformDetails[k] = v
		}
		lead.ReferralSource = s.referralSource
	}
	s.lead = lead
	meta := s.meta
	s.mu.Unlock()

	if err := s.deps.Deliverer.Deliver(ctx, *lead, meta); err != nil {
		s.deps.Logger.Error("lead delivery failed", map[string]interface{}{
			"sessionId": s.id,
			"userType":  string(lead.UserType),
			"error":     err.Error(),
		})
	}

	s.setStep(StepComplete)
}
