package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchmap/internal/config"
	"matchmap/internal/database"
	"matchmap/internal/database/migration"
	dbpostgres "matchmap/internal/database/postgres"
	"matchmap/internal/database/sqldb"
	"matchmap/internal/infrastructure/cache"
	"matchmap/internal/infrastructure/storage"
	"matchmap/internal/infrastructure/workflow"
	"matchmap/internal/pkg/jwt"
	"matchmap/internal/pkg/logger"
	"matchmap/internal/pkg/signature"
	"matchmap/internal/repository"
	"matchmap/internal/usecase/auth"
	"matchmap/internal/usecase/billing"
	"matchmap/internal/usecase/files"
	"matchmap/internal/usecase/lifecycle"
	uctenant "matchmap/internal/usecase/tenant"
	"matchmap/internal/ws"
	"matchmap/migrations"
)

// Container owns every long-lived dependency of the server and the
// command-line tools.
type Container struct {
	Config config.Config
	Logger logger.Logger
	DB     database.DB

	Storage storage.Provider
	Cache   *cache.Redis
	Hub     *ws.Hub

	Auth      *auth.Service
	Tenants   *uctenant.Resolver
	Billing   *billing.PlanGate
	Files     *files.Service
	Lifecycle *lifecycle.Controller

	stopHub context.CancelFunc
}

func NewContainer(cfg config.Config) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := &Container{Config: cfg, Logger: logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)}

	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.DB = db

	if err := c.wire(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func connect(ctx context.Context, cfg config.DatabaseConfig) (database.DB, error) {
	if cfg.Driver == "pq" {
		return sqldb.Connect(ctx, cfg)
	}
	return dbpostgres.Connect(ctx, cfg)
}

func (c *Container) wire(ctx context.Context) error {
	cfg := c.Config

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	c.Storage = store
	c.Cache = cache.NewRedis(cfg.Redis, c.Logger)

	hubCtx, stop := context.WithCancel(context.Background())
	c.stopHub = stop
	c.Hub = ws.NewHub(c.Logger)
	go c.Hub.Run(hubCtx)

	users := repository.NewPostgresUserRepository(c.DB)
	tenants := repository.NewPostgresTenantRepository(c.DB)
	requests := repository.NewPostgresRequestRepository(c.DB)
	events := repository.NewPostgresEventLogRepository(c.DB)

	urlSigner, err := signature.NewURLSigner(cfg.Lifecycle.FileURLSecret)
	if err != nil {
		return fmt.Errorf("file url signer: %w", err)
	}
	var verifier *signature.Verifier
	if cfg.N8N.CallbackSecret != "" {
		if verifier, err = signature.NewVerifier(cfg.N8N.CallbackSecret); err != nil {
			return fmt.Errorf("callback verifier: %w", err)
		}
	} else {
		c.Logger.Warn("n8n.callback_secret is empty, callbacks are accepted unsigned", nil)
	}

	tokens := jwt.NewHMACService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.App.AppName)
	c.Auth = auth.NewService(users, tenants, tokens, c.Logger)
	c.Tenants = uctenant.NewResolver(tenants, c.Cache, cfg.Redis.TTL, c.Logger)
	c.Billing = billing.NewPlanGate(tenants, requests)
	c.Files = files.NewService(requests, tenants, store, urlSigner, c.Logger)
	c.Lifecycle = lifecycle.NewController(lifecycle.Deps{
		Requests:       requests,
		Events:         events,
		Billing:        c.Billing,
		Storage:        store,
		Trigger:        workflow.NewN8NClient(cfg.N8N.WebhookURL, cfg.N8N.Timeout, c.Logger),
		Links:          lifecycle.NewLinks(cfg.App.BaseURL, urlSigner, cfg.Lifecycle.FileURLTTL),
		Verifier:       verifier,
		Notifier:       c.Hub,
		Logger:         c.Logger,
		TriggerTimeout: cfg.N8N.Timeout,
		StaleAfter:     cfg.Lifecycle.StaleAfter,
	})
	return nil
}

// Migrate applies the embedded schema migrations.
func (c *Container) Migrate(ctx context.Context) error {
	r := migration.Runner{FS: migrations.FS, Logger: c.Logger}
	_, err := r.Run(ctx, c.DB.SQLDB())
	return err
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.stopHub != nil {
		c.stopHub()
	}
	var errs []error
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}
