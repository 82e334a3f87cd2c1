package ws

import (
	"net/http"

	"matchmap/internal/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	hub    *Hub
	logger logger.Logger
}

func NewHandler(hub *Hub, log logger.Logger) *Handler {
	return &Handler{hub: hub, logger: logger.OrNop(log)}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Upgrade subscribes the connection to topic, normally the caller's tenant
// id as resolved by the tenant middleware.
func (h *Handler) Upgrade(topic func(c fiber.Ctx) (uuid.UUID, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		if h == nil || h.hub == nil {
			return fiber.ErrServiceUnavailable
		}
		id, err := topic(c)
		if err != nil {
			return err
		}
		return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.serve(w, r, id)
		})(c)
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, topic uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", map[string]interface{}{"error": err})
		return
	}

	client := NewClient(h.hub, conn, topic)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
