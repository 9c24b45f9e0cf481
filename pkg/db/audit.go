package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pondworks/command-engine/pkg/events"
)

const auditLogPrefix = "db:audit"

// AuditLog records dispatch failures for operator visibility. The engine
// itself stays stateless; this sink only observes the error channel.
type AuditLog struct {
	pool *pgxpool.Pool
}

// NewAuditLog creates a new AuditLog over the given pool.
func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

// Insert records one dispatch failure.
func (a *AuditLog) Insert(ctx context.Context, cmdErr *events.CommandError) (*DispatchFailure, error) {
	row := DispatchFailure{
		ID:      uuid.NewString(),
		Command: cmdErr.Command,
		Kind:    string(cmdErr.Kind),
		Message: cmdErr.Message,
		Created: time.Now().UTC(),
	}

	_, err := a.pool.Exec(ctx,
		`INSERT INTO dispatch_failures (id, command, kind, message, created)
		 VALUES ($1, $2, $3, $4, $5)`,
		row.ID, row.Command, row.Kind, row.Message, row.Created)
	if err != nil {
		return nil, fmt.Errorf("%s - insert failed: %w", auditLogPrefix, err)
	}
	return &row, nil
}

// Recent returns the most recent failures, newest first.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]DispatchFailure, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := a.pool.Query(ctx,
		`SELECT id, command, kind, message, created
		 FROM dispatch_failures
		 ORDER BY created DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - query failed: %w", auditLogPrefix, err)
	}
	defer rows.Close()

	var out []DispatchFailure
	for rows.Next() {
		var f DispatchFailure
		if err := rows.Scan(&f.ID, &f.Command, &f.Kind, &f.Message, &f.Created); err != nil {
			return nil, fmt.Errorf("%s - scan failed: %w", auditLogPrefix, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountByKind returns failure counts grouped by error kind.
func (a *AuditLog) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT kind, COUNT(*) FROM dispatch_failures GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("%s - query failed: %w", auditLogPrefix, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("%s - scan failed: %w", auditLogPrefix, err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}

// Ping checks sink availability for health reporting.
func (a *AuditLog) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// AuditReporter adapts an AuditLog to the events.Reporter channel. Write
// failures are logged and swallowed so a broken sink can never stall or
// fail the dispatch path.
type AuditReporter struct {
	log *AuditLog
}

// NewAuditReporter creates a new AuditReporter.
func NewAuditReporter(log *AuditLog) *AuditReporter {
	return &AuditReporter{log: log}
}

// Report records the failure.
func (r *AuditReporter) Report(ctx context.Context, cmdErr *events.CommandError) error {
	if _, err := r.log.Insert(ctx, cmdErr); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to record %s failure for %q: %v", auditLogPrefix, cmdErr.Kind, cmdErr.Command, err))
	}
	return nil
}
