package handler

import (
	"time"

	"matchmap/internal/pkg/response"
	"matchmap/internal/usecase/auth"

	"github.com/gofiber/fiber/v3"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    AuthService
	cookie CookieConfig
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(svc AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "mm_session"
	}
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/signup", h.Signup)
	r.Post("/signin", h.Signin)
	r.Post("/signout", h.Signout)
}

func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req signupRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest("Bad request", err)
	}

	sess, err := h.svc.Signup(c.Context(), auth.SignupInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		return mapAuthError(err)
	}

	h.setSession(c, sess)
	data := map[string]any{
		"success":    true,
		"tenantSlug": sess.TenantSlug,
		"userId":     sess.User.ID,
	}
	return response.Success(c, fiber.StatusCreated, "Account created", data)
}

func (h *AuthHandler) Signin(c fiber.Ctx) error {
	var req signinRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest("Bad request", err)
	}

	sess, err := h.svc.Signin(c.Context(), auth.SigninInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return mapAuthError(err)
	}

	h.setSession(c, sess)
	data := map[string]any{
		"success":    true,
		"tenantSlug": sess.TenantSlug,
		"userId":     sess.User.ID,
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

func (h *AuthHandler) Signout(c fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"success": true})
}

func (h *AuthHandler) setSession(c fiber.Ctx, sess auth.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
