package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"matchmap/internal/database"
	"matchmap/internal/domain/event"

	"github.com/google/uuid"
)

type PostgresEventLogRepository struct {
	db database.DB
}

func NewPostgresEventLogRepository(db database.DB) *PostgresEventLogRepository {
	return &PostgresEventLogRepository{db: db}
}

func (r *PostgresEventLogRepository) Append(ctx context.Context, e event.Entry) error {
	return appendEvent(ctx, r.db, e)
}

func appendEvent(ctx context.Context, ex execer, e event.Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = ex.Exec(ctx,
		`INSERT INTO webhook_event_logs (id, tenant_id, request_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		e.ID,
		e.TenantID,
		e.RequestID,
		string(e.Type),
		string(b),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}
