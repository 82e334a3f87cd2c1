package lifecycle

import (
	"matchmap/internal/domain/request"

	"github.com/google/uuid"
)

// Notifier is told about every status a request enters. Implementations
// must not block.
type Notifier interface {
	RequestUpdated(tenantID, requestID uuid.UUID, status request.Status)
}

type nopNotifier struct{}

func (nopNotifier) RequestUpdated(uuid.UUID, uuid.UUID, request.Status) {}
