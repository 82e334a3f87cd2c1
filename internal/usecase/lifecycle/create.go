package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/infrastructure/storage"
	"matchmap/internal/observability"
	"matchmap/internal/pkg/workerpool"
	"matchmap/internal/usecase/billing"

	"github.com/google/uuid"
)

// Upload is one incoming file. Open may be called once.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type Metadata struct {
	JobTitle   string
	Department *string
	Seniority  *string
}

type CreateInput struct {
	Metadata       Metadata
	JobFile        *Upload
	ApplicantFiles []Upload
}

type CreateResult struct {
	RequestID     uuid.UUID
	Status        request.Status
	PaymentStatus request.PaymentStatus
	ExecutionID   string
}

// Create consults billing once, stores the blobs and persists the request.
// A demo request starts right away; every other request waits in
// PENDING_PAYMENT for an explicit Start. A failing trigger does not fail
// Create; the result then reports FAILED.
func (c *Controller) Create(ctx context.Context, actx tenant.AuthenticatedTenantContext, in CreateInput) (CreateResult, error) {
	if err := requireTenant(actx); err != nil {
		return CreateResult{}, err
	}

	decision, err := c.allow(ctx, actx.TenantID)
	if err != nil {
		return CreateResult{}, err
	}

	meta, err := validateMetadata(in.Metadata)
	if err != nil {
		return CreateResult{}, err
	}
	if err := validateFiles(in.JobFile, in.ApplicantFiles); err != nil {
		return CreateResult{}, err
	}

	now := c.now().UTC()
	r := request.Request{
		ID:              uuid.New(),
		TenantID:        actx.TenantID,
		CreatedByUserID: actx.UserID,
		JobTitle:        meta.JobTitle,
		Department:      meta.Department,
		Seniority:       meta.Seniority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if decision.IsDemo {
		r.Status, r.PaymentStatus = request.StatusDraft, request.PaymentWaived
	} else {
		r.Status, r.PaymentStatus = request.StatusPendingPayment, request.PaymentUnpaid
	}

	var uploaded []string
	cleanup := func() {
		dctx := context.WithoutCancel(ctx)
		for _, p := range uploaded {
			if err := c.storage.Delete(dctx, p); err != nil {
				c.logger.Warn("orphaned blob cleanup failed", map[string]interface{}{"path": p, "error": err})
			}
		}
	}

	job, err := c.store(ctx, r, request.FileKindJob, *in.JobFile, now)
	if err != nil {
		return CreateResult{}, err
	}
	uploaded = append(uploaded, job.StoragePath)
	r.JobFile = &job

	applicants, err := c.storeApplicants(ctx, r, in.ApplicantFiles, now)
	for _, f := range applicants {
		if f.StoragePath != "" {
			uploaded = append(uploaded, f.StoragePath)
		}
	}
	if err != nil {
		cleanup()
		return CreateResult{}, err
	}
	r.ApplicantFiles = applicants

	if err := c.requests.Create(ctx, r); err != nil {
		cleanup()
		return CreateResult{}, fmt.Errorf("persist request: %w", err)
	}
	observability.RequestsCreated.WithLabelValues(string(r.Status)).Inc()
	c.notifier.RequestUpdated(r.TenantID, r.ID, r.Status)
	c.logger.Info("request created", map[string]interface{}{
		"request_id":  r.ID.String(),
		"tenant_slug": actx.TenantSlug,
		"status":      string(r.Status),
		"applicants":  len(r.ApplicantFiles),
	})

	res := CreateResult{RequestID: r.ID, Status: r.Status, PaymentStatus: r.PaymentStatus}
	if !decision.IsDemo {
		return res, nil
	}

	started, err := c.start(ctx, actx, r)
	if err != nil {
		if errors.Is(err, ErrTriggerFailure) {
			res.Status = request.StatusFailed
			return res, nil
		}
		return res, err
	}
	res.Status = started.Status
	res.ExecutionID = started.ExecutionID
	return res, nil
}

func (c *Controller) allow(ctx context.Context, tenantID uuid.UUID) (billing.Decision, error) {
	decision, err := c.billing.CanCreateRequest(ctx, tenantID)
	if err != nil {
		return billing.Decision{}, fmt.Errorf("billing check: %w", err)
	}
	if !decision.Allowed {
		observability.BillingDenied.Inc()
		return billing.Decision{}, &PaymentRequiredError{Reason: decision.Reason, RequiresPayment: decision.RequiresPayment}
	}
	return decision, nil
}

// storeApplicants uploads in parallel and keeps the input order. On error the
// returned slice still holds every file that was stored.
func (c *Controller) storeApplicants(ctx context.Context, r request.Request, uploads []Upload, now time.Time) ([]request.File, error) {
	out := make([]request.File, len(uploads))
	pool := workerpool.New(c.uploadWorkers, len(uploads))
	results := pool.Run(ctx)
	for i, u := range uploads {
		pool.Submit(func(ctx context.Context) error {
			f, err := c.store(ctx, r, request.FileKindApplicant, u, now)
			if err != nil {
				return err
			}
			out[i] = f
			return nil
		})
	}
	pool.Close()

	var errs []error
	n := 0
	for res := range results {
		n++
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	if n < len(uploads) && ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}
	return out, errors.Join(errs...)
}

func (c *Controller) store(ctx context.Context, r request.Request, kind request.FileKind, u Upload, now time.Time) (request.File, error) {
	body, err := u.Open()
	if err != nil {
		return request.File{}, fmt.Errorf("open %s: %w", u.Filename, err)
	}
	defer body.Close()

	p := storage.BuildPath(r.TenantID, r.ID, kind, u.Filename)
	ct := baseMime(u.ContentType)
	n, err := c.storage.Upload(ctx, p, io.LimitReader(body, MaxFileSize+1), ct)
	if err != nil {
		return request.File{}, fmt.Errorf("upload %s: %w", u.Filename, err)
	}
	if n > MaxFileSize {
		_ = c.storage.Delete(context.WithoutCancel(ctx), p)
		return request.File{}, fmt.Errorf("%w: %s: file too large, maximum 10MB", ErrValidation, u.Filename)
	}

	return request.File{
		ID:          uuid.New(),
		RequestID:   r.ID,
		Kind:        kind,
		Filename:    u.Filename,
		MimeType:    ct,
		StoragePath: p,
		FileSize:    n,
		CreatedAt:   now,
	}, nil
}
