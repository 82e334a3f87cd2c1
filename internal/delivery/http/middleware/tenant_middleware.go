package middleware

import (
	"context"
	"errors"

	"matchmap/internal/domain/tenant"
	uctenant "matchmap/internal/usecase/tenant"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type TenantResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, slug string) (tenant.AuthenticatedTenantContext, error)
}

// TenantMiddleware turns the :slug route param and the authenticated user
// into an AuthenticatedTenantContext. It must run after AuthMiddleware.
type TenantMiddleware struct {
	resolver TenantResolver
}

func NewTenantMiddleware(resolver TenantResolver) *TenantMiddleware {
	return &TenantMiddleware{resolver: resolver}
}

func (m *TenantMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		userID, ok := UserIDFrom(c)
		if !ok {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		actx, err := m.resolver.Resolve(c.Context(), userID, c.Params("slug"))
		if err != nil {
			switch {
			case errors.Is(err, uctenant.ErrNotFound):
				return NewAppError(fiber.StatusNotFound, "Tenant not found", nil, err)
			case errors.Is(err, uctenant.ErrForbidden):
				return NewAppError(fiber.StatusForbidden, "Not a member of this tenant", nil, err)
			default:
				return NewAppError(fiber.StatusInternalServerError, "", nil, err)
			}
		}

		c.Locals(CtxTenantKey, actx)
		return c.Next()
	}
}

// Optional resolves the tenant only for authenticated callers that do not
// present a signed URL token.
func (m *TenantMiddleware) Optional() fiber.Handler {
	required := m.Middleware()
	return func(c fiber.Ctx) error {
		if _, ok := UserIDFrom(c); !ok || c.Query("token") != "" {
			return c.Next()
		}
		return required(c)
	}
}

// TenantFrom returns the context stored by TenantMiddleware.
func TenantFrom(c fiber.Ctx) (tenant.AuthenticatedTenantContext, bool) {
	actx, ok := c.Locals(CtxTenantKey).(tenant.AuthenticatedTenantContext)
	return actx, ok && actx.Valid()
}
