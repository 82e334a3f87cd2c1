package ws

import (
	"encoding/json"
	"time"

	"matchmap/internal/domain/request"

	"github.com/google/uuid"
)

const EventRequestUpdated = "request_updated"

type RequestUpdatedEvent struct {
	Type      string         `json:"type"`
	RequestID uuid.UUID      `json:"requestId"`
	Status    request.Status `json:"status"`
	Timestamp string         `json:"timestamp"`
}

// RequestUpdated publishes a status change to the tenant's subscribers.
func (h *Hub) RequestUpdated(tenantID, requestID uuid.UUID, status request.Status) {
	if h == nil {
		return
	}
	b, err := json.Marshal(RequestUpdatedEvent{
		Type:      EventRequestUpdated,
		RequestID: requestID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	h.Broadcast(tenantID, b)
}
