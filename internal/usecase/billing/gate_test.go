package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchmap/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenants struct {
	plan tenant.Plan
	err  error
}

func (f fakeTenants) GetByID(_ context.Context, id uuid.UUID) (tenant.Tenant, error) {
	if f.err != nil {
		return tenant.Tenant{}, f.err
	}
	return tenant.Tenant{ID: id, Plan: f.plan}, nil
}

type fakeCounter struct {
	n     int
	since time.Time
}

func (f *fakeCounter) CountBillableSince(_ context.Context, _ uuid.UUID, since time.Time) (int, error) {
	f.since = since
	return f.n, nil
}

func TestCanCreateRequest(t *testing.T) {
	tests := []struct {
		name string
		plan tenant.Plan
		used int
		want Decision
	}{
		{name: "starter demo unused", plan: tenant.PlanStarter, used: 0, want: Decision{Allowed: true, IsDemo: true}},
		{name: "starter demo used", plan: tenant.PlanStarter, used: 1, want: Decision{RequiresPayment: true, Reason: "free demo analysis already used, please upgrade to Pro"}},
		{name: "pro under limit", plan: tenant.PlanPro, used: 49, want: Decision{Allowed: true}},
		{name: "pro at limit", plan: tenant.PlanPro, used: 50, want: Decision{RequiresPayment: true, Reason: "monthly request limit reached, please upgrade your plan"}},
		{name: "enterprise", plan: tenant.PlanEnterprise, used: 100000, want: Decision{Allowed: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPlanGate(fakeTenants{plan: tt.plan}, &fakeCounter{n: tt.used})
			got, err := g.CanCreateRequest(context.Background(), uuid.New())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCounterStartsAtMonthBeginningUTC(t *testing.T) {
	c := &fakeCounter{}
	g := NewPlanGate(fakeTenants{plan: tenant.PlanPro}, c)
	g.now = func() time.Time { return time.Date(2026, 3, 17, 23, 30, 0, 0, time.FixedZone("CET", 3600)) }

	_, err := g.CanCreateRequest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), c.since)
}

func TestUsage(t *testing.T) {
	tests := []struct {
		plan tenant.Plan
		used int
		want Usage
	}{
		{plan: tenant.PlanStarter, used: 3, want: Usage{Plan: tenant.PlanStarter, Used: 3, Limit: 1, Remaining: 0}},
		{plan: tenant.PlanPro, used: 10, want: Usage{Plan: tenant.PlanPro, Used: 10, Limit: 50, Remaining: 40}},
		{plan: tenant.PlanEnterprise, used: 7, want: Usage{Plan: tenant.PlanEnterprise, Used: 7, Limit: Unlimited, Remaining: Unlimited}},
	}
	for _, tt := range tests {
		g := NewPlanGate(fakeTenants{plan: tt.plan}, &fakeCounter{n: tt.used})
		got, err := g.Usage(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestCanCreateRequest_UnknownTenant(t *testing.T) {
	g := NewPlanGate(fakeTenants{err: tenant.ErrNotFound}, &fakeCounter{})
	got, err := g.CanCreateRequest(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, Decision{Reason: "tenant not found"}, got)

	_, err = g.Usage(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTenantNotFound)

	g = NewPlanGate(fakeTenants{err: errors.New("db down")}, &fakeCounter{})
	_, err = g.CanCreateRequest(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTenantNotFound)
}
