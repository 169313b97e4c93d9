// internal/delivery/webhook.go
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lead-funnel/internal/analytics"
	httpclient "lead-funnel/internal/common/http"
	"lead-funnel/internal/common/logger"
	"lead-funnel/internal/common/metrics"
	"lead-funnel/internal/common/observability"
	"lead-funnel/internal/models"
)

// Meta carries the request context the landing page attached to every
// webhook payload.
type Meta struct {
	UserAgent string
	Referrer  string
	URL       string
}

// Deliverer hands a completed lead to the external automation endpoint.
// Delivery is fire-and-forget: the capture flow never waits on or reverses
// over a delivery result.
type Deliverer interface {
	Deliver(ctx context.Context, lead models.LeadRecord, meta Meta) error
}

// Payload is the webhook body: the lead record plus request context.
type Payload struct {
	models.LeadRecord

	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer"`
	URL       string `json:"url"`
}

// PayloadValidator checks a payload against the schema registry. Advisory
// only; a failed check is logged, never blocks delivery.
type PayloadValidator interface {
	ValidateLeadPayload(data []byte) error
}

// WebhookClient POSTs leads to the configured automation webhook.
type WebhookClient struct {
	webhookURL string
	source     string
	httpClient *httpclient.Client
	emitter    *analytics.Emitter
	logger     logger.Logger
	validator  PayloadValidator
	journal    *Journal
	obs        *observability.Observability
	now        func() time.Time
}

type Option func(*WebhookClient)

// WithValidator attaches an advisory payload schema check.
func WithValidator(v PayloadValidator) Option {
	return func(c *WebhookClient) { c.validator = v }
}

// WithJournal attaches the best-effort delivery journal.
func WithJournal(j *Journal) Option {
	return func(c *WebhookClient) { c.journal = j }
}

// WithObservability attaches the otel delivery duration histogram.
func WithObservability(obs *observability.Observability) Option {
	return func(c *WebhookClient) { c.obs = obs }
}

func NewWebhookClient(webhookURL, source string, timeout time.Duration, emitter *analytics.Emitter, log logger.Logger, opts ...Option) *WebhookClient {
	c := &WebhookClient{
		webhookURL: webhookURL,
		source:     source,
		httpClient: httpclient.NewClient(timeout),
		emitter:    emitter,
		logger:     log.WithFields(map[string]interface{}{"component": "delivery"}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver POSTs the lead. Any reachable HTTP outcome counts as success, the
// same contract the landing page relied on; non-2xx is only logged. A
// transport failure emits exactly one error analytics event and returns the
// error for the caller's log line.
func (c *WebhookClient) Deliver(ctx context.Context, lead models.LeadRecord, meta Meta) error {
	if c.webhookURL == "" {
		c.logger.Warn("webhook url not configured, dropping lead delivery", map[string]interface{}{
			"userType": string(lead.UserType),
		})
		metrics.LeadDeliveries.WithLabelValues("unconfigured").Inc()
		return nil
	}

	payload := Payload{
		LeadRecord: lead,
		Source:     c.source,
		Timestamp:  c.now().UTC().Format(time.RFC3339),
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
		URL:        meta.URL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if c.validator != nil {
		if err := c.validator.ValidateLeadPayload(body); err != nil {
			c.logger.Warn("lead payload failed schema check", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		metrics.LeadDeliveries.WithLabelValues("error").Inc()
		c.recordDuration(ctx, c.now().Sub(start), "error")
		c.emitter.Emit(ctx, analytics.EventWebhookError, map[string]interface{}{
			"step":  "webhook",
			"error": "webhook_failed",
		})
		c.journalAttempt(ctx, lead, "error", 0)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("webhook returned non-2xx, treating as delivered", map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": c.now().Sub(start).String(),
		})
	}

	metrics.LeadDeliveries.WithLabelValues("sent").Inc()
	c.recordDuration(ctx, c.now().Sub(start), "sent")
	c.emitter.Emit(ctx, analytics.EventWebhookSent, map[string]interface{}{
		"step":      "webhook",
		"user_type": string(lead.UserType),
	})
	c.journalAttempt(ctx, lead, "sent", resp.StatusCode)

	return nil
}

func (c *WebhookClient) recordDuration(ctx context.Context, d time.Duration, status string) {
	if c.obs == nil {
		return
	}
	c.obs.RecordDeliveryDuration(ctx, d, status)
}

func (c *WebhookClient) journalAttempt(ctx context.Context, lead models.LeadRecord, status string, httpStatus int) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, lead, status, httpStatus); err != nil {
		c.logger.Warn("delivery journal write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
