// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"lead-funnel/internal/abtest"
	stderrors "lead-funnel/internal/common/errors"
	"lead-funnel/internal/delivery"
	"lead-funnel/internal/funnel"
	"lead-funnel/internal/models"
	"lead-funnel/internal/sequence"
)

type HealthResponse struct {
	Status        string `json:"status"`
	LiveSessions  int    `json:"live_sessions"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		LiveSessions:  s.host.Len(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// HeadlineResponse is the variant served to a visitor.
type HeadlineResponse struct {
	VariantID string `json:"variantId"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

func (s *Server) handleHeadline(w http.ResponseWriter, r *http.Request) {
	visitorID := r.URL.Query().Get("vid")
	if visitorID == "" {
		http.Error(w, "Missing vid", http.StatusBadRequest)
		return
	}

	variant := s.ab.SelectVariant(r.Context(), visitorID)
	writeJSON(w, http.StatusOK, HeadlineResponse{
		VariantID: variant.ID,
		Primary:   variant.Primary,
		Secondary: variant.Secondary,
	})
}

// ConvertRequest is the conversion beacon body.
type ConvertRequest struct {
	VisitorID string `json:"vid"`
	Event     string `json:"event"`
}

var conversionEvents = map[string]abtest.ConversionEvent{
	"email_submit":    abtest.ConversionEmailSubmit,
	"phone_submit":    abtest.ConversionPhoneSubmit,
	"segment_select":  abtest.ConversionSegmentSelect,
	"onboarding_view": abtest.ConversionOnboardingView,
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.VisitorID == "" {
		http.Error(w, "Missing vid", http.StatusBadRequest)
		return
	}
	event, ok := conversionEvents[req.Event]
	if !ok {
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	s.ab.TrackConversion(r.Context(), req.VisitorID, event)
	w.WriteHeader(http.StatusNoContent)
}

// SequencesResponse bundles both channel previews for a segment.
type SequencesResponse struct {
	UserType models.UserType      `json:"userType"`
	Emails   []sequence.EmailStep `json:"emails"`
	SMS      []sequence.SMSStep   `json:"sms,omitempty"`
	Summary  sequence.Summary     `json:"summary"`
}

func (s *Server) handleSequences(w http.ResponseWriter, r *http.Request) {
	userType := models.UserType(r.URL.Query().Get("userType"))

	emails, err := sequence.EmailSequence(userType)
	if err != nil {
		http.Error(w, "Invalid user type", http.StatusBadRequest)
		return
	}
	summary, _ := sequence.Summarize(userType)

	resp := SequencesResponse{UserType: userType, Emails: emails, Summary: summary}
	// SMS previews only make sense when a phone exists.
	if r.URL.Query().Get("phone") != "" {
		resp.SMS, _ = sequence.SMSSequence(userType)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ==========================
// Session lifecycle
// ==========================

type StartSessionRequest struct {
	VisitorID string `json:"visitorId"`
	Referrer  string `json:"referrer"`
	URL       string `json:"url"`
}

type SessionResponse struct {
	SessionID string       `json:"sessionId"`
	State     funnel.State `json:"state"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.VisitorID == "" {
		http.Error(w, "Missing visitorId", http.StatusBadRequest)
		return
	}

	session := s.host.StartSession(req.VisitorID, delivery.Meta{
		UserAgent: r.UserAgent(),
		Referrer:  req.Referrer,
		URL:       req.URL,
	})

	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: session.ID(),
		State:     session.Snapshot(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: session.ID(), State: session.Snapshot()})
}

func (s *Server) handleSubmitEmail(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := session.SubmitEmail(r.Context(), body.Email)
	s.respondStep(w, session, err)
}

func (s *Server) handleSubmitPhone(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Phone string `json:"phone"`
		Skip  bool   `json:"skip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var err error
	if body.Skip {
		err = session.SkipPhone()
	} else {
		err = session.SubmitPhone(r.Context(), body.Phone)
	}
	s.respondStep(w, session, err)
}

func (s *Server) handleSelectUserType(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		UserType models.UserType `json:"userType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := session.SelectUserType(r.Context(), body.UserType)
	s.respondStep(w, session, err)
}

func (s *Server) handleTogglePlatform(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Platform string `json:"platform"`
		Selected bool   `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := session.TogglePlatform(body.Platform, body.Selected)
	s.respondStep(w, session, err)
}

func (s *Server) handleSubmitPlatforms(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	err := session.SubmitPlatforms(r.Context())
	s.respondStep(w, session, err)
}

// handleUpdateDetails applies partial edits on the creator details step:
// name, referral source, or one platform detail field per call.
func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Name           *string `json:"name"`
		ReferralSource *string `json:"referralSource"`
		Platform       string  `json:"platform"`
		Field          string  `json:"field"`
		Value          string  `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if body.Name != nil {
		session.SetName(*body.Name)
	}
	if body.ReferralSource != nil {
		session.SetReferralSource(*body.ReferralSource)
	}

	var err error
	if body.Platform != "" {
		err = session.UpdatePlatformDetail(body.Platform, body.Field, body.Value)
	}
	s.respondStep(w, session, err)
}

func (s *Server) handleSubmitDetails(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	err := session.SubmitCreatorDetails(r.Context())
	s.respondStep(w, session, err)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	err := session.Back()
	s.respondStep(w, session, err)
}

// OnboardingResponse is the completed-lead view with both sequence previews.
type OnboardingResponse struct {
	Lead   *models.LeadRecord   `json:"lead"`
	Emails []sequence.EmailStep `json:"emails"`
	SMS    []sequence.SMSStep   `json:"sms,omitempty"`
}

func (s *Server) handleViewOnboarding(w http.ResponseWriter, r *http.Request) {
	lead, err := s.host.ViewOnboarding(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	emails, _ := sequence.EmailSequence(lead.UserType)
	resp := OnboardingResponse{Lead: lead, Emails: emails}
	if lead.Phone != "" {
		resp.SMS, _ = sequence.SMSSequence(lead.UserType)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReturnHome(w http.ResponseWriter, r *http.Request) {
	fresh, err := s.host.ReturnHome(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: fresh.ID(), State: fresh.Snapshot()})
}

// ==========================
// Helpers
// ==========================

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*funnel.Session, bool) {
	session, err := s.host.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return session, true
}

// respondStep returns the post-action state. Validation failures are carried
// as field errors inside the state with a 422; state machine violations map
// to 409.
func (s *Server) respondStep(w http.ResponseWriter, session *funnel.Session, err error) {
	status := http.StatusOK
	if err != nil {
		switch stderrors.GetErrorCategory(stderrors.CodeOf(err)) {
		case "validation":
			status = http.StatusUnprocessableEntity
		default:
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, status, SessionResponse{SessionID: session.ID(), State: session.Snapshot()})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := stderrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case stderrors.ErrCodeSessionNotFound:
		status = http.StatusNotFound
	case stderrors.ErrCodeInvalidTransition, stderrors.ErrCodeDuplicateSubmit:
		status = http.StatusConflict
	case stderrors.ErrCodeUnknownUserType, stderrors.ErrCodeUnknownPlatform:
		status = http.StatusBadRequest
	}

	message := err.Error()
	if stdErr, ok := err.(*stderrors.StandardError); ok {
		message = stdErr.Message
	}
	if status == http.StatusInternalServerError {
		// Unmapped errors go through the handler so the log line carries
		// the category and retry budget.
		stdErr := s.errs.Handle("http", err)
		code = stdErr.Code
		message = stdErr.Message
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
