// File: internal/auditlog/postgres.go
package auditlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
)

// DBPool abstracts pgxpool.Pool so the sink can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS mission_reports (
	report_id          TEXT PRIMARY KEY,
	sweep_id           TEXT NOT NULL,
	recorded_at        TIMESTAMPTZ NOT NULL,
	target             TEXT NOT NULL,
	target_id          TEXT NOT NULL,
	offense_count      INT NOT NULL,
	promises_made      INT NOT NULL,
	promises_kept      INT NOT NULL,
	fulfillment_rate   TEXT NOT NULL,
	verdict            TEXT NOT NULL,
	action             TEXT NOT NULL,
	communique_post_id TEXT,
	status             TEXT NOT NULL
)`

const insertReportSQL = `
INSERT INTO mission_reports (
	report_id, sweep_id, recorded_at, target, target_id,
	offense_count, promises_made, promises_kept, fulfillment_rate,
	verdict, action, communique_post_id, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresSink mirrors mission reports into a relational table.
// Insert-only; rows are never updated or deleted by this process.
type PostgresSink struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.AuditSink = (*PostgresSink)(nil)

// NewPostgresSink verifies the connection and ensures the table exists.
func NewPostgresSink(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresSink, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to ensure mission_reports table: %w", err)
	}

	return &PostgresSink{
		pool: pool,
		log:  logger.Named("auditlog.postgres"),
	}, nil
}

// Append inserts one report row. Timestamps are normalized to UTC before
// insertion to avoid ambiguity.
func (s *PostgresSink) Append(ctx context.Context, report schemas.MissionReport) error {
	communiqueID := any(nil)
	if report.CommuniquePostID != "" {
		communiqueID = report.CommuniquePostID
	}

	_, err := s.pool.Exec(ctx, insertReportSQL,
		report.ReportID, report.SweepID, report.Timestamp.UTC(),
		report.Target, report.TargetID,
		report.OffenseCount, report.PromisesMade, report.PromisesKept,
		report.FulfillmentRate, report.Verdict, string(report.Action),
		communiqueID, string(report.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mission report: %w", err)
	}
	return nil
}

// Close is a no-op; the pool's lifecycle belongs to the caller.
func (s *PostgresSink) Close() error {
	return nil
}
