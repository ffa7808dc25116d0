package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"

	"github.com/oshokin/safety-monitor/internal/domain/safety"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS safety_alerts (
	id BIGSERIAL PRIMARY KEY,
	event_id TEXT NOT NULL UNIQUE,
	device_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	event_code TEXT NOT NULL,
	severity TEXT NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	metadata JSONB NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	insertAlertQuery = `INSERT INTO safety_alerts
	(event_id, device_id, user_id, event_code, severity, timestamp_ms, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (event_id) DO NOTHING`

	selectColumns = `SELECT event_id, device_id, user_id, event_code, severity, timestamp_ms, metadata
FROM safety_alerts`

	recentAlertsQuery = selectColumns + ` ORDER BY id DESC LIMIT $1`
	allAlertsQuery    = selectColumns + ` ORDER BY id`
)

// PostgresRepository stores alerts in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres connects to dsn, checks the connection and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := NewPostgresRepository(db)
	if err = repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

// NewPostgresRepository wraps an open database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the alerts table if needed.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("create alerts table: %w", err)
	}

	return nil
}

// Append implements Repository.
func (r *PostgresRepository) Append(ctx context.Context, alert *safety.Alert) error {
	metadata, err := json.Marshal(alert.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	result, err := r.db.ExecContext(ctx, insertAlertQuery,
		alert.EventID,
		alert.DeviceID,
		alert.UserID,
		string(alert.EventCode),
		string(alert.Severity),
		alert.TimestampMs,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	if inserted == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, alert.EventID)
	}

	return nil
}

// Recent implements Repository.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*safety.Alert, error) {
	return r.query(ctx, recentAlertsQuery, limit)
}

// All implements Repository.
func (r *PostgresRepository) All(ctx context.Context) ([]*safety.Alert, error) {
	return r.query(ctx, allAlertsQuery)
}

// Close implements Repository.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}

	return r.db.Close()
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*safety.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}

	defer rows.Close()

	var result []*safety.Alert

	for rows.Next() {
		var (
			alert    safety.Alert
			metadata []byte
		)

		err = rows.Scan(
			&alert.EventID,
			&alert.DeviceID,
			&alert.UserID,
			&alert.EventCode,
			&alert.Severity,
			&alert.TimestampMs,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		if err = json.Unmarshal(metadata, &alert.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", alert.EventID, err)
		}

		result = append(result, &alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}

	return result, nil
}
