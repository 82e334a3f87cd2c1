package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const (
	CtxUserIDKey = "user_id"
	CtxTenantKey = "tenant_ctx"
)

// Authenticator validates a session token. *auth.Service satisfies it.
type Authenticator interface {
	Authenticate(token string) (uuid.UUID, error)
}

type AuthMiddleware struct {
	auth       Authenticator
	cookieName string
}

func NewAuthMiddleware(auth Authenticator, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, cookieName: cookieName}
}

// Middleware accepts the session cookie or an Authorization bearer token.
func (m *AuthMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := SessionToken(c, m.cookieName)
		if token == "" {
			return NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}

		userID, err := m.auth.Authenticate(token)
		if err != nil {
			return NewAppError(fiber.StatusUnauthorized, "Invalid session", nil, err)
		}

		c.Locals(CtxUserIDKey, userID)
		return c.Next()
	}
}

// Optional authenticates when a valid session is present and otherwise
// passes the request through anonymously.
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c fiber.Ctx) error {
		if token := SessionToken(c, m.cookieName); token != "" {
			if userID, err := m.auth.Authenticate(token); err == nil {
				c.Locals(CtxUserIDKey, userID)
			}
		}
		return c.Next()
	}
}

// SessionToken returns the bearer token if present, else the cookie value.
func SessionToken(c fiber.Ctx, cookieName string) string {
	if tok, ok := bearerTokenFromHeader(c.Get("Authorization")); ok {
		return tok
	}
	if cookieName == "" {
		return ""
	}
	return strings.TrimSpace(c.Cookies(cookieName))
}

func UserIDFrom(c fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(CtxUserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func bearerTokenFromHeader(authHeader string) (string, bool) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}
