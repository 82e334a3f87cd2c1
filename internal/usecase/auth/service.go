package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"matchmap/internal/domain/tenant"
	"matchmap/internal/domain/user"
	"matchmap/internal/pkg/jwt"
	"matchmap/internal/pkg/logger"
	uctenant "matchmap/internal/usecase/tenant"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrInternal               = errors.New("internal error")
)

type SignupInput struct {
	Email       string
	Password    string
	Name        string
	CompanyName string
}

type SigninInput struct {
	Email    string
	Password string
}

// Session is what the handler turns into the session cookie.
type Session struct {
	User       user.User
	TenantSlug string
	Token      string
	ExpiresAt  time.Time
}

// AccountStore creates the user, tenant and owner membership atomically.
type AccountStore interface {
	user.Repository
	CreateAccount(ctx context.Context, u user.User, t tenant.Tenant) error
}

type Service struct {
	users   AccountStore
	tenants tenant.Repository
	tokens  jwt.Service
	logger  logger.Logger
	now     func() time.Time
}

func NewService(users AccountStore, tenants tenant.Repository, tokens jwt.Service, log logger.Logger) *Service {
	return &Service{
		users:   users,
		tenants: tenants,
		tokens:  tokens,
		logger:  logger.OrNop(log).WithFields(map[string]interface{}{"component": "auth"}),
		now:     time.Now,
	}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if !isValidEmail(email) {
		return Session{}, fmt.Errorf("%w: a valid email address is required", ErrInvalidInput)
	}
	if !isValidPassword(in.Password) {
		return Session{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(name) < 2 {
		return Session{}, fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidInput)
	}
	company := strings.TrimSpace(in.CompanyName)
	if utf8.RuneCountInString(company) < 2 {
		return Session{}, fmt.Errorf("%w: company name must be at least 2 characters", ErrInvalidInput)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if exists {
		return Session{}, ErrEmailAlreadyRegistered
	}

	slug, err := uctenant.UniqueSlug(ctx, s.tenants, company)
	if err != nil {
		if errors.Is(err, uctenant.ErrInvalidInput) || errors.Is(err, uctenant.ErrSlugExhausted) {
			return Session{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	now := s.now().UTC()
	u := user.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         &name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t := tenant.Tenant{
		ID:        uuid.New(),
		Name:      company,
		Slug:      slug,
		Plan:      tenant.PlanStarter,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.CreateAccount(ctx, u, t); err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			return Session{}, ErrEmailAlreadyRegistered
		case errors.Is(err, tenant.ErrSlugTaken):
			return Session{}, fmt.Errorf("%w: company name already in use, please choose another", ErrInvalidInput)
		}
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	s.logger.Info("account created", map[string]interface{}{"user_id": u.ID.String(), "tenant_slug": slug})
	return s.issue(u, slug)
}

func (s *Service) Signin(ctx context.Context, in SigninInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	memberships, err := s.tenants.ListMemberships(ctx, u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	slug := ""
	if len(memberships) > 0 {
		slug = memberships[0].Tenant.Slug
	}
	return s.issue(u, slug)
}

// Authenticate validates a session token and returns its user id.
func (s *Service) Authenticate(token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrUnauthenticated
	}
	c, err := s.tokens.ValidateToken(token)
	if err != nil {
		return uuid.Nil, ErrUnauthenticated
	}
	return c.UserID, nil
}

func (s *Service) issue(u user.User, slug string) (Session, error) {
	tok, exp, err := s.tokens.GenerateSessionToken(u.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return Session{User: sanitizeUser(u), TenantSlug: slug, Token: tok, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isValidPassword(pw string) bool {
	return len(strings.TrimSpace(pw)) >= 8
}

func sanitizeUser(u user.User) user.User {
	u.PasswordHash = ""
	return u
}
