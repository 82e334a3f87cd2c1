package routes

import (
	"matchmap/internal/delivery/http/handler"
	"matchmap/internal/delivery/http/middleware"
	"matchmap/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Requests *handler.RequestHandler
	Callback *handler.CallbackHandler
	Files    *handler.FileHandler
	Tenant   *handler.TenantHandler
	WS       *ws.Handler
	// Metrics is mounted at MetricsPath when set.
	Metrics     fiber.Handler
	MetricsPath string
}

type Middleware struct {
	Auth   *middleware.AuthMiddleware
	Tenant *middleware.TenantMiddleware
}

type Registry struct {
	h  Handlers
	mw Middleware
}

func NewRegistry(h Handlers, mw Middleware) *Registry {
	return &Registry{h: h, mw: mw}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerOps(app)
	r.registerAPI(app)
}

func (r *Registry) registerOps(app *fiber.App) {
	if r.h.Health != nil {
		r.h.Health.RegisterRoutes(app)
	}
	if r.h.Metrics != nil {
		path := r.h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, r.h.Metrics)
	}
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")

	if r.h.Auth != nil {
		r.h.Auth.RegisterRoutes(api.Group("/auth"))
	}
	if r.h.Callback != nil {
		r.h.Callback.RegisterRoutes(api.Group("/n8n"))
	}

	// Registered ahead of the member group: its middleware is prefix-matched
	// and would otherwise demand a session from signed-URL fetches.
	if r.h.Files != nil {
		api.Get("/t/:slug/files/:fileId", r.mw.Auth.Optional(), r.mw.Tenant.Optional(), r.h.Files.Download)
	}

	member := api.Group("/t/:slug", r.mw.Auth.Middleware(), r.mw.Tenant.Middleware())
	if r.h.Requests != nil {
		r.h.Requests.RegisterRoutes(member)
	}
	if r.h.Tenant != nil {
		r.h.Tenant.RegisterRoutes(member)
	}
	if r.h.WS != nil {
		member.Get("/ws", r.h.WS.Upgrade(tenantTopic))
	}
}

func tenantTopic(c fiber.Ctx) (uuid.UUID, error) {
	actx, ok := middleware.TenantFrom(c)
	if !ok {
		return uuid.Nil, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return actx.TenantID, nil
}
