package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Warehouse is the optional PostgreSQL reporting database holding
// aggregated boarding history loaded by the importer. The API serves
// ridership reports from it when a connection string is configured.
type Warehouse struct {
	pool *pgxpool.Pool
}

// NewWarehouse connects to the reporting database.
func NewWarehouse(databaseURL string) (*Warehouse, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Warehouse{pool: pool}, nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() {
	w.pool.Close()
}

// EnsureSchema creates the reporting tables if they don't exist.
func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	_, err := w.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS boarding_daily (
			line_id    TEXT NOT NULL,
			day        DATE NOT NULL,
			passengers DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (line_id, day)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create reporting schema: %w", err)
	}
	return nil
}

// DailyTotal is one line's boarding total for one calendar day.
type DailyTotal struct {
	LineID     string    `json:"line_id"`
	Day        time.Time `json:"day"`
	Passengers float64   `json:"passengers"`
}

// UpsertDailyTotal loads one aggregated day of boardings.
func (w *Warehouse) UpsertDailyTotal(ctx context.Context, t DailyTotal) error {
	_, err := w.pool.Exec(ctx, `
		INSERT INTO boarding_daily (line_id, day, passengers)
		VALUES ($1, $2, $3)
		ON CONFLICT (line_id, day) DO UPDATE SET
			passengers = EXCLUDED.passengers`,
		t.LineID, t.Day, t.Passengers)
	if err != nil {
		return fmt.Errorf("failed to upsert daily total: %w", err)
	}
	return nil
}

// GetDailyTotals returns a line's boarding history ordered by day.
func (w *Warehouse) GetDailyTotals(ctx context.Context, lineID string) ([]DailyTotal, error) {
	rows, err := w.pool.Query(ctx, `
		SELECT line_id, day, passengers
		FROM boarding_daily
		WHERE line_id = $1
		ORDER BY day`, lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		if err := rows.Scan(&t.LineID, &t.Day, &t.Passengers); err != nil {
			return nil, fmt.Errorf("failed to scan daily total row: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily total rows: %w", err)
	}
	return totals, nil
}

// GetLatestDay returns the most recent loaded day for a line, or
// ErrNotFound when the line has no history.
func (w *Warehouse) GetLatestDay(ctx context.Context, lineID string) (time.Time, error) {
	var day time.Time
	err := w.pool.QueryRow(ctx, `
		SELECT day FROM boarding_daily
		WHERE line_id = $1
		ORDER BY day DESC LIMIT 1`, lineID).Scan(&day)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest day: %w", err)
	}
	return day, nil
}

// TopLines returns the busiest lines by total boardings.
func (w *Warehouse) TopLines(ctx context.Context, limit int) ([]DailyTotal, error) {
	rows, err := w.pool.Query(ctx, `
		SELECT line_id, MAX(day) AS day, SUM(passengers) AS passengers
		FROM boarding_daily
		GROUP BY line_id
		ORDER BY passengers DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top lines: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		if err := rows.Scan(&t.LineID, &t.Day, &t.Passengers); err != nil {
			return nil, fmt.Errorf("failed to scan top line row: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
