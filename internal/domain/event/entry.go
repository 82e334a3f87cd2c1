package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeWorkflowStarted Type = "N8N_WORKFLOW_STARTED"
	TypeWorkflowFailed  Type = "N8N_WORKFLOW_FAILED"
	TypeCallback        Type = "N8N_CALLBACK"
	TypeRequestExpired  Type = "REQUEST_EXPIRED"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	RequestID *uuid.UUID
	Type      Type
	Payload   map[string]any
	CreatedAt time.Time
}

func New(tenantID uuid.UUID, requestID uuid.UUID, t Type, payload map[string]any) Entry {
	rid := requestID
	if payload == nil {
		payload = map[string]any{}
	}
	return Entry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		RequestID: &rid,
		Type:      t,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

type Log interface {
	Append(ctx context.Context, e Entry) error
}
