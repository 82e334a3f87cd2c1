package handler

import (
	"context"

	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/usecase/auth"
	"matchmap/internal/usecase/billing"
	"matchmap/internal/usecase/files"
	"matchmap/internal/usecase/lifecycle"

	"github.com/google/uuid"
)

type tenantCtx = tenant.AuthenticatedTenantContext

type AuthService interface {
	Signup(ctx context.Context, in auth.SignupInput) (auth.Session, error)
	Signin(ctx context.Context, in auth.SigninInput) (auth.Session, error)
}

// RequestService is implemented by *lifecycle.Controller.
type RequestService interface {
	List(ctx context.Context, actx tenantCtx) ([]request.Summary, error)
	Get(ctx context.Context, actx tenantCtx, id uuid.UUID) (request.Detail, error)
	Create(ctx context.Context, actx tenantCtx, in lifecycle.CreateInput) (lifecycle.CreateResult, error)
	Start(ctx context.Context, actx tenantCtx, id uuid.UUID) (lifecycle.StartResult, error)
}

type CallbackReceiver interface {
	ReceiveCallback(ctx context.Context, sig string, body []byte) (lifecycle.CallbackResult, error)
}

type FileService interface {
	Download(ctx context.Context, actx tenantCtx, fileID uuid.UUID, kind request.FileKind) (files.Content, error)
	DownloadWithToken(ctx context.Context, slug string, fileID uuid.UUID, kind request.FileKind, exp, token string) (files.Content, error)
}

type UsageReader interface {
	Usage(ctx context.Context, tenantID uuid.UUID) (billing.Usage, error)
}

type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, actx tenantCtx, name string) (tenant.Tenant, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}
