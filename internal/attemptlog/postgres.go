package attemptlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq" // postgres driver

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// PostgresStore persists attempt log entries in PostgreSQL. The structured
// fields (attempts, notes, violations) are stored as JSONB so operators can
// query failure kinds directly.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an existing connection pool and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS attempt_log (
			id              TEXT PRIMARY KEY,
			request_id      TEXT NOT NULL,
			intent          TEXT NOT NULL,
			disposition     TEXT NOT NULL,
			provider        TEXT NOT NULL DEFAULT '',
			model           TEXT NOT NULL DEFAULT '',
			fallback_used   BOOLEAN NOT NULL DEFAULT FALSE,
			fallback_reason TEXT NOT NULL DEFAULT '',
			attempts        JSONB NOT NULL DEFAULT '[]',
			notes           JSONB NOT NULL DEFAULT '[]',
			violations      JSONB NOT NULL DEFAULT '[]',
			escalations     INTEGER NOT NULL DEFAULT 0,
			error           TEXT NOT NULL DEFAULT '',
			latency_ms      BIGINT NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_attempt_log_intent ON attempt_log (intent);
		CREATE INDEX IF NOT EXISTS idx_attempt_log_created_at ON attempt_log (created_at);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("attemptlog: ensure schema: %w", err)
	}
	return nil
}

// Append stores one entry.
func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	attemptsJSON, _ := json.Marshal(entry.Attempts)
	notesJSON, _ := json.Marshal(entry.Notes)
	violationsJSON, _ := json.Marshal(entry.Violations)

	const query = `
		INSERT INTO attempt_log (
			id, request_id, intent, disposition, provider, model,
			fallback_used, fallback_reason, attempts, notes, violations,
			escalations, error, latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.RequestID, entry.Intent, string(entry.Disposition),
		entry.Provider, entry.Model,
		entry.FallbackUsed, entry.FallbackReason,
		string(attemptsJSON), string(notesJSON), string(violationsJSON),
		entry.Escalations, entry.Error, entry.LatencyMS, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("attemptlog: insert entry: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	query := `
		SELECT id, request_id, intent, disposition, provider, model,
		       fallback_used, fallback_reason, attempts, notes, violations,
		       escalations, error, latency_ms, created_at
		FROM attempt_log
		WHERE 1=1`

	var args []any
	idx := 1
	if filter.Intent != "" {
		query += fmt.Sprintf(" AND intent = $%d", idx)
		args = append(args, filter.Intent)
		idx++
	}
	if filter.Disposition != "" {
		query += fmt.Sprintf(" AND disposition = $%d", idx)
		args = append(args, string(filter.Disposition))
		idx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, filter.Since)
		idx++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attemptlog: list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attemptlog: iterate entries: %w", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var entry Entry
	var disposition, attemptsJSON, notesJSON, violationsJSON string

	err := rows.Scan(
		&entry.ID, &entry.RequestID, &entry.Intent, &disposition,
		&entry.Provider, &entry.Model,
		&entry.FallbackUsed, &entry.FallbackReason,
		&attemptsJSON, &notesJSON, &violationsJSON,
		&entry.Escalations, &entry.Error, &entry.LatencyMS, &entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("attemptlog: scan entry: %w", err)
	}

	entry.Disposition = types.Disposition(disposition)
	_ = json.Unmarshal([]byte(attemptsJSON), &entry.Attempts)
	_ = json.Unmarshal([]byte(notesJSON), &entry.Notes)
	_ = json.Unmarshal([]byte(violationsJSON), &entry.Violations)
	return &entry, nil
}

// Stats summarizes all stored entries.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	const query = `
		SELECT disposition, COUNT(*), COUNT(*) FILTER (WHERE fallback_used)
		FROM attempt_log
		GROUP BY disposition`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("attemptlog: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &Stats{Dispositions: make(map[string]int64)}
	for rows.Next() {
		var disposition string
		var count, fallbacks int64
		if err := rows.Scan(&disposition, &count, &fallbacks); err != nil {
			return nil, fmt.Errorf("attemptlog: scan stats: %w", err)
		}
		stats.Dispositions[disposition] = count
		stats.Total += count
		stats.Fallbacks += fallbacks
	}
	return stats, rows.Err()
}

// Purge removes entries created before cutoff.
func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempt_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("attemptlog: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the caller owns the connection pool.
func (s *PostgresStore) Close() error {
	return nil
}
