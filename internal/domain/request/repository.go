package request

import (
	"context"
	"errors"
	"time"

	"matchmap/internal/domain/event"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("request not found")
	ErrFileNotFound = errors.New("file not found")
)

// Outcome is everything a callback changes, applied in one transaction.
type Outcome struct {
	RequestID   uuid.UUID
	Status      Status
	CompletedAt time.Time
	// ReplaceResults swaps the stored result set for Results when true.
	ReplaceResults bool
	Results        []ResultCandidate
	Event          event.Entry
}

// Expired is a request moved to FAILED by the stale sweep.
type Expired struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	PrevStatus Status
}

type Repository interface {
	// Create persists the request and all of its file rows atomically.
	Create(ctx context.Context, r Request) error
	GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (Request, error)
	GetByID(ctx context.Context, id uuid.UUID) (Request, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Summary, error)
	ListResults(ctx context.Context, requestID uuid.UUID) ([]ResultCandidate, error)

	// TransitionStatus moves the request to `to` only when its current status
	// is one of `from`. It reports whether a row changed.
	TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from []Status, to Status) (bool, error)
	// MarkRunning stores the execution id and moves QUEUED to RUNNING in one
	// statement. Requests already past QUEUED keep their status.
	MarkRunning(ctx context.Context, id uuid.UUID, executionID string) (Status, error)
	ApplyOutcome(ctx context.Context, o Outcome) error
	ExpireStale(ctx context.Context, before time.Time) ([]Expired, error)

	CountBillableSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error)
	GetFile(ctx context.Context, kind FileKind, fileID uuid.UUID) (OwnedFile, error)
}
