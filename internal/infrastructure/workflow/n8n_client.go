package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"matchmap/internal/observability"
	"matchmap/internal/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrTriggerFailed = errors.New("workflow trigger failed")
	ErrNotConfigured = errors.New("workflow webhook url not configured")
)

const unknownExecutionID = "unknown"

type Trigger interface {
	Start(ctx context.Context, p StartPayload) (executionID string, err error)
}

type StartPayload struct {
	RequestID         uuid.UUID `json:"requestId"`
	TenantID          uuid.UUID `json:"tenantId"`
	TenantSlug        string    `json:"tenantSlug"`
	JobFileURL        string    `json:"jobFileUrl"`
	ApplicantFileURLs []string  `json:"applicantFileUrls"`
	Metadata          Metadata  `json:"metadata"`
	CallbackURL       string    `json:"callbackUrl"`
}

type Metadata struct {
	JobTitle   string  `json:"jobTitle"`
	Department *string `json:"department,omitempty"`
	Seniority  *string `json:"seniority,omitempty"`
}

type startResponse struct {
	ExecutionID json.RawMessage `json:"executionId"`
	ID          json.RawMessage `json:"id"`
}

type httpN8NClient struct {
	webhookURL string
	client     *http.Client
	logger     logger.Logger
}

func NewN8NClient(webhookURL string, timeout time.Duration, log logger.Logger) Trigger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpN8NClient{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: timeout},
		logger:     logger.OrNop(log).WithFields(map[string]interface{}{"component": "n8n"}),
	}
}

// Start posts the payload to the start webhook. Any transport error or
// non-2xx answer is reported as ErrTriggerFailed.
func (c *httpN8NClient) Start(ctx context.Context, p StartPayload) (execID string, err error) {
	ctx, span := observability.StartSpan(ctx, "workflow.n8n.start",
		attribute.String("request.id", p.RequestID.String()),
		attribute.String("tenant.slug", p.TenantSlug),
	)
	started := time.Now()
	defer func() {
		observability.WorkflowTriggerDuration.Observe(time.Since(started).Seconds())
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
		}
		observability.WorkflowTriggers.WithLabelValues(outcome).Inc()
		observability.EndSpan(span, err)
	}()

	if c.webhookURL == "" {
		return "", fmt.Errorf("%w: %w", ErrTriggerFailed, ErrNotConfigured)
	}
	if p.ApplicantFileURLs == nil {
		p.ApplicantFileURLs = []string{}
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("n8n trigger request failed", map[string]interface{}{"request_id": p.RequestID.String(), "error": err})
		return "", fmt.Errorf("%w: %w", ErrTriggerFailed, err)
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := strings.TrimSpace(string(rb))
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		c.logger.Error("n8n trigger rejected", map[string]interface{}{
			"request_id": p.RequestID.String(),
			"status":     resp.StatusCode,
			"body":       bodyStr,
		})
		return "", fmt.Errorf("%w: status=%d body=%s", ErrTriggerFailed, resp.StatusCode, bodyStr)
	}

	return executionID(rb), nil
}

// executionID prefers executionId, then id. Either may be a string or a
// number. Bodies that are empty or not JSON still count as an accepted
// trigger.
func executionID(body []byte) string {
	var out startResponse
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &out) == nil {
		if id := idString(out.ExecutionID); id != "" {
			return id
		}
		if id := idString(out.ID); id != "" {
			return id
		}
	}
	return unknownExecutionID
}

func idString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil && n != "0" {
		return n.String()
	}
	return ""
}

var _ Trigger = (*httpN8NClient)(nil)
