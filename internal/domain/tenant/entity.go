package tenant

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanStarter    Plan = "STARTER"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Membership is a tenant row joined with one user's role in it.
type Membership struct {
	Tenant Tenant
	UserID uuid.UUID
	Role   Role
}

// AuthenticatedTenantContext is the verified caller identity passed into
// every tenant-scoped operation.
type AuthenticatedTenantContext struct {
	UserID     uuid.UUID `json:"userId"`
	TenantID   uuid.UUID `json:"tenantId"`
	TenantSlug string    `json:"tenantSlug"`
	TenantName string    `json:"tenantName"`
	Plan       Plan      `json:"plan"`
	Role       Role      `json:"role"`
}

func (a AuthenticatedTenantContext) IsOwner() bool {
	return a.Role == RoleOwner
}

func (a AuthenticatedTenantContext) IsAdmin() bool {
	return a.Role == RoleOwner || a.Role == RoleAdmin
}

func (a AuthenticatedTenantContext) CanManageMembers() bool {
	return a.IsAdmin()
}

func (a AuthenticatedTenantContext) Valid() bool {
	return a.UserID != uuid.Nil && a.TenantID != uuid.Nil && a.TenantSlug != ""
}

func ContextFromMembership(m Membership) AuthenticatedTenantContext {
	return AuthenticatedTenantContext{
		UserID:     m.UserID,
		TenantID:   m.Tenant.ID,
		TenantSlug: m.Tenant.Slug,
		TenantName: m.Tenant.Name,
		Plan:       m.Tenant.Plan,
		Role:       m.Role,
	}
}
