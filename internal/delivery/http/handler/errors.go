package handler

import (
	"errors"

	"matchmap/internal/delivery/http/middleware"
	"matchmap/internal/pkg/response"
	"matchmap/internal/usecase/auth"
	"matchmap/internal/usecase/files"
	"matchmap/internal/usecase/lifecycle"
	uctenant "matchmap/internal/usecase/tenant"

	"github.com/gofiber/fiber/v3"
)

func internalError(err error) error {
	return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
}

func badRequest(msg string, err error) error {
	return middleware.NewAppError(fiber.StatusBadRequest, msg, nil, err)
}

func mapLifecycleError(err error) error {
	if err == nil {
		return nil
	}

	var payment *lifecycle.PaymentRequiredError
	switch {
	case errors.As(err, &payment):
		data := map[string]any{"requiresPayment": payment.RequiresPayment, "reason": payment.Reason}
		return middleware.NewAppError(fiber.StatusPaymentRequired, "Payment required", data, err)
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)
	case errors.Is(err, lifecycle.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Request not found", nil, err)
	case errors.Is(err, lifecycle.ErrForbidden):
		return middleware.NewAppError(fiber.StatusForbidden, "Forbidden", nil, err)
	case errors.Is(err, lifecycle.ErrInvalidState):
		return middleware.NewAppError(fiber.StatusBadRequest, "Request cannot be started in its current status", nil, err)
	case errors.Is(err, lifecycle.ErrMissingFiles):
		return middleware.NewAppError(fiber.StatusBadRequest, "Job file and at least one applicant file are required", nil, err)
	case errors.Is(err, lifecycle.ErrValidation):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, lifecycle.ErrBadSignature):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid signature", nil, err)
	default:
		return internalError(err)
	}
}

func mapAuthError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		return middleware.NewAppError(fiber.StatusConflict, "Email already registered", nil, err)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid email or password", nil, err)
	case errors.Is(err, auth.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	default:
		return internalError(err)
	}
}

func mapTenantError(err error) error {
	switch {
	case errors.Is(err, uctenant.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Tenant not found", nil, err)
	case errors.Is(err, uctenant.ErrForbidden):
		return middleware.NewAppError(fiber.StatusForbidden, "Only owners and admins may change settings", nil, err)
	case errors.Is(err, uctenant.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	default:
		return internalError(err)
	}
}

func mapFilesError(err error) error {
	switch {
	case errors.Is(err, files.ErrUnauthenticated):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, err)
	case errors.Is(err, files.ErrForbidden):
		return middleware.NewAppError(fiber.StatusForbidden, "Forbidden", nil, err)
	case errors.Is(err, files.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "File not found", nil, err)
	default:
		return internalError(err)
	}
}

func requireTenant(c fiber.Ctx) (tenantCtx, error) {
	actx, ok := middleware.TenantFrom(c)
	if !ok {
		return actx, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return actx, nil
}
