package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"matchmap/internal/config"
	"matchmap/internal/delivery/http/handler"
	"matchmap/internal/delivery/http/middleware"
	"matchmap/internal/delivery/http/routes"
	"matchmap/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// maxBodyBytes leaves headroom for one job file and fifty applicant files.
const maxBodyBytes = 512 << 20

func New(c *Container) *App {
	cfg := c.Config
	f := fiber.New(fiber.Config{
		AppName:   cfg.App.AppName,
		BodyLimit: maxBodyBytes,
	})

	registerGlobalMiddleware(f, c)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

// Bootstrap builds the container, migrates when configured and returns the
// HTTP app with its cleanup function.
func Bootstrap(cfg config.Config) (*App, func() error, error) {
	c, err := NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := c.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}

	app := New(c)
	return app, c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, c *Container) {
	accessMw := middleware.NewAccessLogMiddleware(c.Logger)
	app.Use(accessMw.Middleware())

	errMw := middleware.NewErrorMiddleware(c.Logger)
	app.Use(errMw.Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	cfg := c.Config

	h := routes.Handlers{
		Health:   handler.NewHealthHandler(c.DB),
		Auth:     handler.NewAuthHandler(c.Auth, handler.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}),
		Requests: handler.NewRequestHandler(c.Lifecycle),
		Callback: handler.NewCallbackHandler(c.Lifecycle),
		Files:    handler.NewFileHandler(c.Files),
		Tenant:   handler.NewTenantHandler(c.Billing, c.Tenants),
		WS:       ws.NewHandler(c.Hub, c.Logger),
	}
	if cfg.Metrics.Enabled {
		h.Metrics = adaptor.HTTPHandler(promhttp.Handler())
		h.MetricsPath = cfg.Metrics.Path
	}

	mw := routes.Middleware{
		Auth:   middleware.NewAuthMiddleware(c.Auth, cfg.Auth.CookieName),
		Tenant: middleware.NewTenantMiddleware(c.Tenants),
	}
	routes.NewRegistry(h, mw).Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
