package lifecycle

import (
	"context"
	"fmt"

	"matchmap/internal/domain/event"
	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/infrastructure/workflow"

	"github.com/google/uuid"
)

type StartResult struct {
	RequestID   uuid.UUID
	Status      request.Status
	ExecutionID string
}

// Start triggers the workflow for a DRAFT or PENDING_PAYMENT request. DRAFT
// rows are not billable yet, so starting one consults billing again.
func (c *Controller) Start(ctx context.Context, actx tenant.AuthenticatedTenantContext, id uuid.UUID) (StartResult, error) {
	if err := requireTenant(actx); err != nil {
		return StartResult{}, err
	}
	r, err := c.requests.GetForTenant(ctx, actx.TenantID, id)
	if err != nil {
		return StartResult{}, mapNotFound(err)
	}
	if r.Status == request.StatusDraft {
		if _, err := c.allow(ctx, actx.TenantID); err != nil {
			return StartResult{}, err
		}
	}
	return c.start(ctx, actx, r)
}

func (c *Controller) start(ctx context.Context, actx tenant.AuthenticatedTenantContext, r request.Request) (StartResult, error) {
	if !r.HasFiles() {
		return StartResult{}, ErrMissingFiles
	}

	ok, err := c.requests.TransitionStatus(ctx, actx.TenantID, r.ID, request.StartableStatuses, request.StatusQueued)
	if err != nil {
		return StartResult{}, err
	}
	if !ok {
		return StartResult{}, fmt.Errorf("%w: %s", ErrInvalidState, r.Status)
	}
	c.transitioned(actx.TenantID, r.ID, request.StatusQueued)

	payload := c.payload(actx, r)

	tctx, cancel := context.WithTimeout(ctx, c.triggerTimeout)
	execID, trigErr := c.trigger.Start(tctx, payload)
	cancel()

	// The workflow may already be running; persist the outcome even if the
	// caller has gone away.
	ctx = context.WithoutCancel(ctx)

	if trigErr != nil {
		return c.failTrigger(ctx, actx, r.ID, trigErr)
	}

	status, err := c.requests.MarkRunning(ctx, r.ID, execID)
	if err != nil {
		return StartResult{}, fmt.Errorf("record workflow execution: %w", err)
	}
	if status == request.StatusRunning {
		c.transitioned(actx.TenantID, r.ID, request.StatusRunning)
	}

	c.appendEvent(ctx, event.New(actx.TenantID, r.ID, event.TypeWorkflowStarted, map[string]any{
		"executionId": execID,
	}))
	c.logger.Info("workflow started", map[string]interface{}{
		"request_id":   r.ID.String(),
		"tenant_slug":  actx.TenantSlug,
		"execution_id": execID,
		"status":       string(status),
	})
	return StartResult{RequestID: r.ID, Status: status, ExecutionID: execID}, nil
}

func (c *Controller) failTrigger(ctx context.Context, actx tenant.AuthenticatedTenantContext, id uuid.UUID, cause error) (StartResult, error) {
	c.logger.Error("workflow trigger failed", map[string]interface{}{
		"request_id":  id.String(),
		"tenant_slug": actx.TenantSlug,
		"error":       cause,
	})

	failed, err := c.requests.TransitionStatus(ctx, actx.TenantID, id, []request.Status{request.StatusQueued}, request.StatusFailed)
	if err != nil {
		c.logger.Error("could not mark request failed", map[string]interface{}{"request_id": id.String(), "error": err})
	}
	if failed {
		c.transitioned(actx.TenantID, id, request.StatusFailed)
	}

	c.appendEvent(ctx, event.New(actx.TenantID, id, event.TypeWorkflowFailed, map[string]any{
		"error": cause.Error(),
	}))
	return StartResult{RequestID: id, Status: request.StatusFailed}, fmt.Errorf("%w: %w", ErrTriggerFailure, cause)
}

func (c *Controller) payload(actx tenant.AuthenticatedTenantContext, r request.Request) workflow.StartPayload {
	applicants := make([]string, 0, len(r.ApplicantFiles))
	for _, f := range r.ApplicantFiles {
		applicants = append(applicants, c.links.FileURL(actx.TenantSlug, f))
	}
	return workflow.StartPayload{
		RequestID:         r.ID,
		TenantID:          actx.TenantID,
		TenantSlug:        actx.TenantSlug,
		JobFileURL:        c.links.FileURL(actx.TenantSlug, *r.JobFile),
		ApplicantFileURLs: applicants,
		Metadata: workflow.Metadata{
			JobTitle:   r.JobTitle,
			Department: r.Department,
			Seniority:  r.Seniority,
		},
		CallbackURL: c.links.CallbackURL(),
	}
}

// appendEvent writes to the audit log. Audit failures never undo a transition.
func (c *Controller) appendEvent(ctx context.Context, e event.Entry) {
	if c.events == nil {
		return
	}
	if err := c.events.Append(ctx, e); err != nil {
		c.logger.Error("append webhook event failed", map[string]interface{}{"type": string(e.Type), "error": err})
	}
}
