// Package billing decides whether a tenant may create another analysis
// request under its plan. Payment collection itself is out of scope.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchmap/internal/domain/tenant"

	"github.com/google/uuid"
)

var ErrTenantNotFound = errors.New("tenant not found")

// Unlimited is reported as the limit of plans without a monthly cap.
const Unlimited = -1

type PlanLimits struct {
	MonthlyRequests int
	Demo            bool
}

var Plans = map[tenant.Plan]PlanLimits{
	tenant.PlanStarter:    {MonthlyRequests: 1, Demo: true},
	tenant.PlanPro:        {MonthlyRequests: 50},
	tenant.PlanEnterprise: {MonthlyRequests: Unlimited},
}

type Decision struct {
	Allowed         bool   `json:"allowed"`
	RequiresPayment bool   `json:"requiresPayment"`
	IsDemo          bool   `json:"isDemo"`
	Reason          string `json:"reason,omitempty"`
}

type Usage struct {
	Plan      tenant.Plan `json:"plan"`
	Used      int         `json:"used"`
	Limit     int         `json:"limit"`
	Remaining int         `json:"remaining"`
}

type Gate interface {
	CanCreateRequest(ctx context.Context, tenantID uuid.UUID) (Decision, error)
	Usage(ctx context.Context, tenantID uuid.UUID) (Usage, error)
}

type TenantReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (tenant.Tenant, error)
}

type RequestCounter interface {
	CountBillableSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error)
}

type PlanGate struct {
	tenants  TenantReader
	requests RequestCounter
	now      func() time.Time
}

func NewPlanGate(tenants TenantReader, requests RequestCounter) *PlanGate {
	return &PlanGate{tenants: tenants, requests: requests, now: time.Now}
}

// StartOfMonth is midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (g *PlanGate) usage(ctx context.Context, tenantID uuid.UUID) (Usage, PlanLimits, error) {
	t, err := g.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return Usage{}, PlanLimits{}, ErrTenantNotFound
		}
		return Usage{}, PlanLimits{}, fmt.Errorf("load tenant plan: %w", err)
	}
	limits, ok := Plans[t.Plan]
	if !ok {
		limits = Plans[tenant.PlanStarter]
	}

	used, err := g.requests.CountBillableSince(ctx, tenantID, StartOfMonth(g.now()))
	if err != nil {
		return Usage{}, PlanLimits{}, fmt.Errorf("count billable requests: %w", err)
	}

	u := Usage{Plan: t.Plan, Used: used, Limit: limits.MonthlyRequests, Remaining: Unlimited}
	if limits.MonthlyRequests != Unlimited {
		u.Remaining = max(limits.MonthlyRequests-used, 0)
	}
	return u, limits, nil
}

// CanCreateRequest denies an unknown tenant instead of failing.
func (g *PlanGate) CanCreateRequest(ctx context.Context, tenantID uuid.UUID) (Decision, error) {
	u, limits, err := g.usage(ctx, tenantID)
	if errors.Is(err, ErrTenantNotFound) {
		return Decision{Allowed: false, Reason: ErrTenantNotFound.Error()}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if limits.MonthlyRequests == Unlimited || u.Used < limits.MonthlyRequests {
		return Decision{Allowed: true, IsDemo: limits.Demo}, nil
	}

	reason := "monthly request limit reached, please upgrade your plan"
	if limits.Demo {
		reason = "free demo analysis already used, please upgrade to Pro"
	}
	return Decision{Allowed: false, RequiresPayment: true, Reason: reason}, nil
}

func (g *PlanGate) Usage(ctx context.Context, tenantID uuid.UUID) (Usage, error) {
	u, _, err := g.usage(ctx, tenantID)
	return u, err
}

var _ Gate = (*PlanGate)(nil)
