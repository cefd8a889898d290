package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var dbTracer = otel.Tracer("github.com/geocoder89/speakup/db")

// ObserveDB runs fn inside a span named after the logical operation and
// records its latency. A missing row is an expected outcome and is not
// counted as an error.
func (p *Prom) ObserveDB(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := dbTracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "postgresql")),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		status = "not_found"
	default:
		status = "error"
		class := classifyDBErr(err)
		p.DbErrorsTotal.WithLabelValues(op, class).Inc()
		span.SetAttributes(attribute.String("db.error_class", class))
		span.SetStatus(codes.Error, class)
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return "unique_violation"
		case pgErr.Code == pgerrcode.UndefinedTable:
			return "missing_migration"
		case pgErr.Code == pgerrcode.QueryCanceled:
			return "query_canceled"
		case pgerrcode.IsConnectionException(pgErr.Code):
			return "connection"
		case pgerrcode.IsInsufficientResources(pgErr.Code):
			return "insufficient_resources"
		default:
			return "pg_" + pgErr.Code
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "connect:"):
		return "connection"
	default:
		return "unknown"
	}
}
