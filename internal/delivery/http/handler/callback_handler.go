package handler

import (
	"bytes"

	"matchmap/internal/pkg/signature"

	"github.com/gofiber/fiber/v3"
)

// CallbackHandler receives the workflow engine's verdict. The body is read
// raw because the signature covers the exact bytes.
type CallbackHandler struct {
	receiver CallbackReceiver
}

func NewCallbackHandler(receiver CallbackReceiver) *CallbackHandler {
	return &CallbackHandler{receiver: receiver}
}

func (h *CallbackHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/callback", h.Receive)
}

func (h *CallbackHandler) Receive(c fiber.Ctx) error {
	body := bytes.Clone(c.Body())

	res, err := h.receiver.ReceiveCallback(c.Context(), c.Get(signature.HeaderName), body)
	if err != nil {
		return mapLifecycleError(err)
	}
	// The engine reads these fields at the top level, outside the envelope.
	return c.Status(fiber.StatusOK).JSON(map[string]any{
		"success":      true,
		"requestId":    res.RequestID,
		"status":       res.Status,
		"resultsCount": res.ResultsCount,
	})
}
