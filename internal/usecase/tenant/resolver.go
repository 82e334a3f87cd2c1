// Package tenant resolves a caller and a tenant slug into a verified
// AuthenticatedTenantContext and manages tenant settings.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tenantdomain "matchmap/internal/domain/tenant"
	"matchmap/internal/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("tenant not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrSlugExhausted = errors.New("could not generate a unique tenant slug")
)

// MembershipCache is satisfied by *cache.Redis. Implementations must treat
// an unavailable backend as a miss.
type MembershipCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type Resolver struct {
	tenants tenantdomain.Repository
	cache   MembershipCache
	ttl     time.Duration
	logger  logger.Logger
}

func NewResolver(tenants tenantdomain.Repository, cache MembershipCache, ttl time.Duration, log logger.Logger) *Resolver {
	return &Resolver{tenants: tenants, cache: cache, ttl: ttl, logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "tenant_resolver"})}
}

func membershipKey(slug string, userID uuid.UUID) string {
	return "tenant:member:" + slug + ":" + userID.String()
}

// Resolve returns ErrNotFound for an unknown slug and ErrForbidden when
// userID has no membership in it.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, slug string) (tenantdomain.AuthenticatedTenantContext, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" || userID == uuid.Nil {
		return tenantdomain.AuthenticatedTenantContext{}, ErrNotFound
	}

	key := membershipKey(slug, userID)
	if r.cache != nil {
		var m tenantdomain.Membership
		hit, err := r.cache.GetJSON(ctx, key, &m)
		if err != nil {
			r.logger.Debug("membership cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		if hit && m.Tenant.ID != uuid.Nil {
			return tenantdomain.ContextFromMembership(m), nil
		}
	}

	m, err := r.tenants.GetMembership(ctx, slug, userID)
	if err != nil {
		switch {
		case errors.Is(err, tenantdomain.ErrNotFound):
			return tenantdomain.AuthenticatedTenantContext{}, ErrNotFound
		case errors.Is(err, tenantdomain.ErrNotMember):
			return tenantdomain.AuthenticatedTenantContext{}, ErrForbidden
		}
		return tenantdomain.AuthenticatedTenantContext{}, fmt.Errorf("resolve tenant %q: %w", slug, err)
	}

	if r.cache != nil {
		if err := r.cache.SetJSON(ctx, key, m, r.ttl); err != nil {
			r.logger.Debug("membership cache write failed", map[string]interface{}{"key": key, "error": err})
		}
	}
	return tenantdomain.ContextFromMembership(m), nil
}

// UpdateSettings renames the tenant. Only owners and admins may do so.
func (r *Resolver) UpdateSettings(ctx context.Context, actx tenantdomain.AuthenticatedTenantContext, name string) (tenantdomain.Tenant, error) {
	if !actx.IsAdmin() {
		return tenantdomain.Tenant{}, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return tenantdomain.Tenant{}, fmt.Errorf("%w: name must be between 2 and 100 characters", ErrInvalidInput)
	}

	t, err := r.tenants.UpdateName(ctx, actx.TenantID, name)
	if err != nil {
		if errors.Is(err, tenantdomain.ErrNotFound) {
			return tenantdomain.Tenant{}, ErrNotFound
		}
		return tenantdomain.Tenant{}, fmt.Errorf("update tenant settings: %w", err)
	}

	r.Invalidate(ctx, actx.TenantSlug)
	r.logger.Info("tenant settings updated", map[string]interface{}{"tenant_id": t.ID.String(), "user_id": actx.UserID.String()})
	return t, nil
}

// Invalidate drops every cached membership of slug.
func (r *Resolver) Invalidate(ctx context.Context, slug string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DeleteByPattern(ctx, "tenant:member:"+slug+":*"); err != nil {
		r.logger.Warn("membership cache invalidation failed", map[string]interface{}{"slug": slug, "error": err})
	}
}
