package handler

import (
	"matchmap/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type TenantHandler struct {
	usage    UsageReader
	settings SettingsUpdater
}

type settingsRequest struct {
	Name string `json:"name"`
}

func NewTenantHandler(usage UsageReader, settings SettingsUpdater) *TenantHandler {
	return &TenantHandler{usage: usage, settings: settings}
}

func (h *TenantHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/billing/usage", h.Usage)
	r.Patch("/settings", h.UpdateSettings)
}

func (h *TenantHandler) Usage(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}
	u, err := h.usage.Usage(c.Context(), actx.TenantID)
	if err != nil {
		return internalError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, u)
}

func (h *TenantHandler) UpdateSettings(c fiber.Ctx) error {
	actx, err := requireTenant(c)
	if err != nil {
		return err
	}
	var req settingsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest("Bad request", err)
	}
	t, err := h.settings.UpdateSettings(c.Context(), actx, req.Name)
	if err != nil {
		return mapTenantError(err)
	}
	return response.Success(c, fiber.StatusOK, "Settings updated", t)
}
