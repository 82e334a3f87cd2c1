package postgres

import (
	"context"
	"time"

	"matchmap/internal/observability"

	"github.com/jackc/pgx/v5"
)

type startKey struct{}

// queryTracer feeds statement latency into the db histogram.
type queryTracer struct{}

func (queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, startKey{}, time.Now())
}

func (queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryEndData) {
	start, ok := ctx.Value(startKey{}).(time.Time)
	if !ok {
		return
	}
	observability.DBQueryDuration.Observe(time.Since(start).Seconds())
}
