package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db *sql.DB
}

type BlockRecord struct {
	ID            int64
	UserID        string
	BlockedUserID string
	CreatedAt     time.Time
}

type AnalyticsRecord struct {
	ID              int64
	Date            time.Time
	TotalPublishes  int
	TotalNearby     int
	CrossedNotified int
}

func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}

	if err := client.initSchema(); err != nil {
		return nil, err
	}

	return client, nil
}

func (p *PostgresClient) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocks (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		blocked_user_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, blocked_user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_user_id ON blocks (user_id);

	CREATE TABLE IF NOT EXISTS analytics (
		id SERIAL PRIMARY KEY,
		date DATE UNIQUE,
		total_publishes INT DEFAULT 0,
		total_nearby INT DEFAULT 0,
		crossed_notified INT DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := p.db.Exec(schema)
	return err
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}

// Block operations
func (p *PostgresClient) AddBlock(ctx context.Context, userID, blockedUserID string) error {
	query := `
		INSERT INTO blocks (user_id, blocked_user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, blocked_user_id) DO NOTHING
	`
	_, err := p.db.ExecContext(ctx, query, userID, blockedUserID)
	return err
}

func (p *PostgresClient) RemoveBlock(ctx context.Context, userID, blockedUserID string) error {
	query := `DELETE FROM blocks WHERE user_id = $1 AND blocked_user_id = $2`
	_, err := p.db.ExecContext(ctx, query, userID, blockedUserID)
	return err
}

// BlockedIDs returns every user the given user has blocked or been blocked by.
// Blocking hides both parties from each other's nearby lists.
func (p *PostgresClient) BlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	query := `
		SELECT blocked_user_id FROM blocks WHERE user_id = $1
		UNION
		SELECT user_id FROM blocks WHERE blocked_user_id = $1
	`

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		blocked[id] = true
	}

	return blocked, rows.Err()
}

// Analytics operations
func (p *PostgresClient) RecordDailyStats(ctx context.Context, date time.Time, publishes, nearby, crossed int) error {
	query := `
		INSERT INTO analytics (date, total_publishes, total_nearby, crossed_notified)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date) DO UPDATE SET
			total_publishes = analytics.total_publishes + EXCLUDED.total_publishes,
			total_nearby = analytics.total_nearby + EXCLUDED.total_nearby,
			crossed_notified = analytics.crossed_notified + EXCLUDED.crossed_notified
	`

	_, err := p.db.ExecContext(ctx, query, date, publishes, nearby, crossed)
	return err
}

func (p *PostgresClient) GetAnalytics(ctx context.Context, startDate, endDate time.Time) ([]AnalyticsRecord, error) {
	query := `
		SELECT id, date, total_publishes, total_nearby, crossed_notified
		FROM analytics
		WHERE date BETWEEN $1 AND $2
		ORDER BY date DESC
	`

	rows, err := p.db.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AnalyticsRecord
	for rows.Next() {
		var record AnalyticsRecord
		if err := rows.Scan(
			&record.ID,
			&record.Date,
			&record.TotalPublishes,
			&record.TotalNearby,
			&record.CrossedNotified,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
