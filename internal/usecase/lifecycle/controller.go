// Package lifecycle owns the analysis request state machine:
//
//	DRAFT -> PENDING_PAYMENT | QUEUED -> RUNNING -> DONE | FAILED
//
// Transitions are conditional SQL updates so a workflow is triggered at most
// once per request, however many start calls race.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchmap/internal/domain/event"
	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/infrastructure/storage"
	"matchmap/internal/infrastructure/workflow"
	"matchmap/internal/observability"
	"matchmap/internal/pkg/logger"
	"matchmap/internal/pkg/signature"
	"matchmap/internal/usecase/billing"

	"github.com/google/uuid"
)

type Deps struct {
	Requests request.Repository
	Events   event.Log
	Billing  billing.Gate
	Storage  storage.Provider
	Trigger  workflow.Trigger
	Links    *Links
	// Verifier checks callback signatures. Nil accepts unsigned callbacks.
	Verifier *signature.Verifier
	Notifier Notifier
	Logger   logger.Logger

	TriggerTimeout time.Duration
	StaleAfter     time.Duration
	// UploadWorkers bounds concurrent applicant uploads.
	UploadWorkers int
}

type Controller struct {
	requests request.Repository
	events   event.Log
	billing  billing.Gate
	storage  storage.Provider
	trigger  workflow.Trigger
	links    *Links
	verifier *signature.Verifier
	notifier Notifier
	logger   logger.Logger

	triggerTimeout time.Duration
	staleAfter     time.Duration
	uploadWorkers  int
	now            func() time.Time
}

func NewController(d Deps) *Controller {
	c := &Controller{
		requests:       d.Requests,
		events:         d.Events,
		billing:        d.Billing,
		storage:        d.Storage,
		trigger:        d.Trigger,
		links:          d.Links,
		verifier:       d.Verifier,
		notifier:       d.Notifier,
		logger:         d.Logger,
		triggerTimeout: d.TriggerTimeout,
		staleAfter:     d.StaleAfter,
		uploadWorkers:  d.UploadWorkers,
		now:            time.Now,
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	c.logger = logger.OrNop(c.logger).WithFields(map[string]interface{}{"component": "lifecycle"})
	if c.links == nil {
		c.links = NewLinks("", nil, 0)
	}
	if c.triggerTimeout <= 0 {
		c.triggerTimeout = 30 * time.Second
	}
	if c.staleAfter <= 0 {
		c.staleAfter = 6 * time.Hour
	}
	if c.uploadWorkers <= 0 {
		c.uploadWorkers = 4
	}
	if c.verifier == nil {
		c.logger.Warn("n8n callback secret not configured, callback signatures are not verified", nil)
	}
	return c
}

// transitioned records a status change that has already been committed.
func (c *Controller) transitioned(tenantID, requestID uuid.UUID, to request.Status) {
	observability.RequestTransitions.WithLabelValues(string(to)).Inc()
	c.notifier.RequestUpdated(tenantID, requestID, to)
}

func requireTenant(actx tenant.AuthenticatedTenantContext) error {
	if !actx.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, request.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (c *Controller) List(ctx context.Context, actx tenant.AuthenticatedTenantContext) ([]request.Summary, error) {
	if err := requireTenant(actx); err != nil {
		return nil, err
	}
	out, err := c.requests.ListForTenant(ctx, actx.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// Get returns the request with its files and results. Requests of other
// tenants are reported as not found.
func (c *Controller) Get(ctx context.Context, actx tenant.AuthenticatedTenantContext, id uuid.UUID) (request.Detail, error) {
	if err := requireTenant(actx); err != nil {
		return request.Detail{}, err
	}
	r, err := c.requests.GetForTenant(ctx, actx.TenantID, id)
	if err != nil {
		return request.Detail{}, mapNotFound(err)
	}
	results, err := c.requests.ListResults(ctx, r.ID)
	if err != nil {
		return request.Detail{}, fmt.Errorf("list results: %w", err)
	}
	if results == nil {
		results = []request.ResultCandidate{}
	}
	return request.Detail{Request: r, Results: results}, nil
}

// ExpireStale fails every QUEUED or RUNNING request untouched for longer
// than olderThan. Zero uses the configured deadline.
func (c *Controller) ExpireStale(ctx context.Context, olderThan time.Duration) ([]request.Expired, error) {
	if olderThan <= 0 {
		olderThan = c.staleAfter
	}
	deadline := c.now().UTC().Add(-olderThan)

	expired, err := c.requests.ExpireStale(ctx, deadline)
	if err != nil {
		return nil, err
	}
	for _, e := range expired {
		observability.RequestsExpired.Inc()
		c.transitioned(e.TenantID, e.ID, request.StatusFailed)
		c.logger.Info("request expired", map[string]interface{}{
			"request_id":      e.ID.String(),
			"tenant_id":       e.TenantID.String(),
			"previous_status": string(e.PrevStatus),
		})
	}
	return expired, nil
}
